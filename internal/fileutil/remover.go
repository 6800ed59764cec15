package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Removal modes.
const (
	ModeTrash  = "trash"
	ModeDelete = "delete"
)

// Remover disposes of files the pipeline no longer needs. In trash mode files
// are moved under <trash>/<run>/ so a run can be undone by hand.
type Remover struct {
	mode string
	dir  string
}

// NewRemover constructs a Remover. An empty runID puts trashed files directly
// under trashRoot.
func NewRemover(mode, trashRoot, runID string) *Remover {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != ModeDelete {
		mode = ModeTrash
	}
	dir := trashRoot
	if runID != "" {
		dir = filepath.Join(trashRoot, runID)
	}
	return &Remover{mode: mode, dir: dir}
}

// Mode returns the effective removal mode.
func (r *Remover) Mode() string {
	return r.mode
}

// Remove trashes or deletes path. The returned string is the trash location,
// empty in delete mode.
func (r *Remover) Remove(path string) (string, error) {
	if r.mode == ModeDelete {
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("delete %s: %w", path, err)
		}
		return "", nil
	}
	return r.moveToTrash(path)
}

// Displace moves an existing file out of the way. It always moves, whatever
// the removal mode, because displaced files were never meant to be discarded.
func (r *Remover) Displace(path string) (string, error) {
	return r.moveToTrash(path)
}

func (r *Remover) moveToTrash(path string) (string, error) {
	if strings.TrimSpace(r.dir) == "" {
		return "", fmt.Errorf("trash directory not configured")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create trash dir: %w", err)
	}
	dest := UniquePath(filepath.Join(r.dir, filepath.Base(path)))
	if err := Move(path, dest); err != nil {
		return "", fmt.Errorf("move %s to trash: %w", path, err)
	}
	return dest, nil
}
