// Package preflight provides readiness checks for the filesystem paths and
// services mediatool depends on.
//
// The doctor command renders these results. Directory checks accept paths
// that do not exist yet as long as they can be created, because the state,
// log and trash directories are created lazily.
package preflight
