package preflight

import (
	"context"

	"mediatool/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks for cfg and, when target is set, the
// free-space check for the library it names.
func RunAll(ctx context.Context, cfg *config.Config, target string) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
		CheckCreatableDirectory("Log directory", cfg.Paths.LogDir),
		CheckCreatableDirectory("Trash directory", cfg.Paths.TrashDir),
	}
	if target != "" {
		results = append(results, CheckFreeSpace("Free space", target, cfg.Archive.FreeSpaceHeadroomBytes))
	}
	results = append(results, CheckVersionURL(ctx, cfg.Update.VersionURL))
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
