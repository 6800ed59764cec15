// Package procrun launches external tools with a bounded wait.
//
// The runner captures one output stream, races process exit against a
// timeout and the caller's context, and reports non-zero exits as a result
// rather than an error so callers can turn them into item failures. A timed
// out child is left running unless kill-on-timeout is enabled; callers must
// tolerate the orphaned process.
package procrun
