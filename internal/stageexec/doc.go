// Package stageexec runs a single pipeline stage against an item, applying
// the sticky failure rule and emitting stage_start, stage_complete and
// stage_failure events.
package stageexec
