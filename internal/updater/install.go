package updater

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mediatool/internal/archive"
	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/services"
)

// install swaps toolDir for the release named remote. The previous install
// is parked at <toolDir>.<local> until the new one is in place.
func (u *Updater) install(ctx context.Context, local, remote string) error {
	source := strings.ReplaceAll(u.downloadURL, "{version}", remote)
	kind, err := archiveKind(source)
	if err != nil {
		return err
	}

	parent := filepath.Dir(u.toolDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", parent, err)
	}
	archivePath := filepath.Join(parent, "ffmpeg-"+remote+"."+string(kind))
	staging := filepath.Join(parent, ".ffmpeg-"+remote+".staging")

	backup := ""
	if fileutil.Exists(u.toolDir) {
		backup = fileutil.UniquePath(u.toolDir + "." + local)
		if err := os.Rename(u.toolDir, backup); err != nil {
			return fmt.Errorf("park previous install: %w", err)
		}
	}
	restore := func(cause error) error {
		_ = os.RemoveAll(staging)
		_ = os.Remove(archivePath)
		if backup == "" {
			return cause
		}
		_ = os.RemoveAll(u.toolDir)
		if err := os.Rename(backup, u.toolDir); err != nil {
			return errors.Join(cause, fmt.Errorf("restore previous install: %w", err))
		}
		logging.WarnWithContext(u.logger, "ffmpeg update rolled back", "update_rollback",
			logging.String("tool_dir", u.toolDir),
			logging.Error(cause),
			logging.String(logging.FieldImpact, "previous ffmpeg install kept"),
		)
		return cause
	}

	if err := u.download(ctx, source, archivePath); err != nil {
		return restore(err)
	}
	roots, err := archive.ExtractAll(archivePath, staging)
	if err != nil {
		return restore(err)
	}
	extracted, err := releaseRoot(staging, roots)
	if err != nil {
		return restore(err)
	}
	if err := os.Rename(extracted, u.toolDir); err != nil {
		return restore(fmt.Errorf("move release into place: %w", err))
	}
	if err := markExecutable(filepath.Join(u.toolDir, "bin")); err != nil {
		return restore(err)
	}

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			u.logger.Warn("previous ffmpeg install not removed",
				logging.String("path", backup),
				logging.Error(err),
			)
		}
	}
	_ = os.RemoveAll(staging)
	_ = os.Remove(archivePath)
	return nil
}

// releaseRoot returns the single top-level directory of an extracted release.
func releaseRoot(staging string, roots []string) (string, error) {
	if len(roots) != 1 {
		return "", services.Wrap(services.ErrValidation, "updater", "inspect release",
			fmt.Sprintf("expected one top-level directory, found %d entries", len(roots)), nil)
	}
	root := filepath.Join(staging, roots[0])
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "updater", "inspect release",
			fmt.Sprintf("top-level entry %q is not a directory", roots[0]), err)
	}
	return root, nil
}

func archiveKind(source string) (archive.Kind, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "updater", "parse download url", source, err)
	}
	kind, ok := archive.KindOf(path.Base(parsed.Path))
	if !ok {
		return "", services.Wrap(services.ErrConfiguration, "updater", "parse download url",
			fmt.Sprintf("%s does not name a supported archive", source), nil)
	}
	return kind, nil
}

// markExecutable sets the exec bits on every regular file in dir, since the
// archive readers write plain files.
func markExecutable(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Chmod(filepath.Join(dir, entry.Name()), 0o755); err != nil {
			return fmt.Errorf("chmod %s: %w", entry.Name(), err)
		}
	}
	return nil
}
