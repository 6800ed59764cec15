// Package notifications pushes run outcomes to an ntfy topic.
//
// When no topic is configured NewService returns a no-op, so callers never
// need to check whether notifications are enabled.
package notifications
