package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement defines an external dependency mediatool relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Resolved is the executable LookPath settled on.
	Resolved string
	Detail   string
}

// CheckBinaries resolves each requirement on PATH, or as given when the
// command is already a path.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = check(req)
	}
	return results
}

func check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	status.Resolved = resolved
	return status
}

// Managed reports whether a status resolved to a binary under installDir,
// the directory the updater maintains.
func (s Status) Managed(installDir string) bool {
	installDir = strings.TrimSpace(installDir)
	if !s.Available || installDir == "" {
		return false
	}
	rel, err := filepath.Rel(installDir, s.Resolved)
	return err == nil && !strings.HasPrefix(rel, "..")
}
