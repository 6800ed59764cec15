package unpacking

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"mediatool/internal/archive"
	"mediatool/internal/config"
	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/stage"
	"mediatool/internal/textutil"
)

// Name identifies the stage in logs and the journal.
const Name = "extract-archive"

type spaceCheck func(dir string, size, multiplier, headroom int64) error

// provider opens archives. The archive package satisfies it.
type provider interface {
	First(path string) (archive.Entry, error)
	Extract(path string, entry archive.Entry, destDir string, overwrite bool) (string, error)
}

type archiveProvider struct{}

func (archiveProvider) First(path string) (archive.Entry, error) { return archive.First(path) }

func (archiveProvider) Extract(path string, entry archive.Entry, destDir string, overwrite bool) (string, error) {
	return archive.Extract(path, entry, destDir, overwrite)
}

// Unpacker extracts archives in place.
type Unpacker struct {
	logger     *slog.Logger
	remover    *fileutil.Remover
	extensions []string
	multiplier int64
	headroom   int64
	simulate   bool
	checkSpace spaceCheck
	archives   provider
}

// New constructs the stage handler.
func New(cfg *config.Config, logger *slog.Logger, remover *fileutil.Remover, simulate bool) *Unpacker {
	return &Unpacker{
		logger:     logging.NewComponentLogger(logger, "unpacking"),
		remover:    remover,
		extensions: cfg.Archive.Extensions,
		multiplier: cfg.Archive.FreeSpaceMultiplier,
		headroom:   cfg.Archive.FreeSpaceHeadroomBytes,
		simulate:   simulate,
		checkSpace: fileutil.EnsureFreeSpace,
		archives:   archiveProvider{},
	}
}

// Name implements stage.Handler.
func (u *Unpacker) Name() string { return Name }

// Execute extracts the first entry of a supported archive and points the
// item at the extracted file.
func (u *Unpacker) Execute(ctx context.Context, item mediaitem.Item) (mediaitem.Item, error) {
	if item.Failed() || !archive.ShouldExtract(item.Path, u.extensions) {
		return item, nil
	}
	logger := logging.WithContext(ctx, u.logger)

	entry, err := u.archives.First(item.Path)
	if err != nil {
		return item, err
	}
	name := textutil.EntryBaseName(entry.Name)
	if name == "" {
		return item, services.Wrap(services.ErrValidation, Name, "inspect entry",
			fmt.Sprintf("archive entry %q has no usable name", entry.Name), nil)
	}
	dir := filepath.Dir(item.Path)
	dest := filepath.Join(dir, name)

	spaceErr := u.checkSpace(dir, entry.Size, u.multiplier, u.headroom)

	volumes, err := archive.Volumes(item.Path)
	if err != nil {
		return item, services.Wrap(services.ErrValidation, Name, "list volumes", filepath.Base(item.Path), err)
	}

	if u.simulate {
		logger.Info("would extract archive",
			logging.String("entry", entry.Name),
			logging.String("destination", dest),
			logging.Int("volumes", len(volumes)),
			logging.Bool("enough_space", spaceErr == nil),
		)
		if spaceErr != nil {
			return item.WithFailure(services.FailureReason(spaceErr)), nil
		}
		return item.WithTag(mediaitem.TagExtract).WithPath(dest), nil
	}

	if spaceErr != nil {
		logger.Info("archive extraction suppressed",
			logging.String("entry", entry.Name),
			logging.Int64("entry_bytes", entry.Size),
			logging.Error(spaceErr),
		)
		return item.WithFailure(services.FailureReason(spaceErr)), nil
	}

	if fileutil.Exists(dest) {
		moved, err := u.remover.Displace(dest)
		if err != nil {
			return item, services.Wrap(services.ErrValidation, Name, "displace existing", dest, err)
		}
		logger.Info("moved existing file aside",
			logging.String("existing", dest),
			logging.String("moved_to", moved),
		)
	}

	out, err := u.archives.Extract(item.Path, entry, dir, false)
	if err != nil {
		return item, err
	}
	logger.Info("archive extracted",
		logging.String("entry", entry.Name),
		logging.String("destination", out),
		logging.Int64("entry_bytes", entry.Size),
	)

	u.removeVolumes(logger, volumes)
	return item.WithTag(mediaitem.TagExtract).WithPath(out), nil
}

func (u *Unpacker) removeVolumes(logger *slog.Logger, volumes []string) {
	for _, volume := range volumes {
		dest, err := u.remover.Remove(volume)
		if err != nil {
			logging.WarnWithContext(logger, "archive volume not removed", "archive_cleanup",
				logging.String("volume", volume),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the volume by hand"),
				logging.String(logging.FieldImpact, "archive left next to the extracted file"),
			)
			continue
		}
		attrs := []logging.Attr{logging.String("volume", volume), logging.String("mode", u.remover.Mode())}
		if strings.TrimSpace(dest) != "" {
			attrs = append(attrs, logging.String("trashed_to", dest))
		}
		logger.Debug("archive volume removed", logging.Args(attrs...)...)
	}
}

// HealthCheck reports whether the stage has what it needs to run.
func (u *Unpacker) HealthCheck(context.Context) stage.Health {
	if len(u.extensions) == 0 {
		return stage.Unhealthy(Name, "no archive extensions configured")
	}
	if u.remover == nil {
		return stage.Unhealthy(Name, "remover unavailable")
	}
	return stage.Healthy(Name)
}
