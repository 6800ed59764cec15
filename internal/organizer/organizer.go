package organizer

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"mediatool/internal/archive"
	"mediatool/internal/config"
	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/naming"
	"mediatool/internal/services"
	"mediatool/internal/stage"
)

// Name identifies the stage in logs and the journal.
const Name = "rename"

// Organizer renames files to their canonical names.
type Organizer struct {
	logger            *slog.Logger
	remover           *fileutil.Remover
	archiveExtensions []string
	simulate          bool
}

// NewOrganizer constructs the rename stage handler.
func NewOrganizer(cfg *config.Config, logger *slog.Logger, remover *fileutil.Remover, simulate bool) *Organizer {
	return &Organizer{
		logger:            logging.NewComponentLogger(logger, "organizer"),
		remover:           remover,
		archiveExtensions: cfg.Archive.Extensions,
		simulate:          simulate,
	}
}

// Name implements stage.Handler.
func (o *Organizer) Name() string { return Name }

// Execute computes the canonical path and moves the file there.
func (o *Organizer) Execute(ctx context.Context, item mediaitem.Item) (mediaitem.Item, error) {
	if item.Failed() || archive.IsArchive(item.Path, o.archiveExtensions) {
		return item, nil
	}
	logger := logging.WithContext(ctx, o.logger)

	dest, res, err := naming.CanonicalPath(item.ParentDir, item.Path)
	if err != nil {
		return item, err
	}
	item = item.WithRipper(string(res.Ripper))
	if res.Ripper == naming.RipperUnknown || !res.Recognized {
		o.reportUnrecognized(logger, item, res)
	}

	if strings.EqualFold(dest, item.Path) {
		return item, nil
	}
	item = item.WithTag(mediaitem.TagRename)

	if o.simulate {
		logger.Info("would rename",
			logging.String("from", item.Name()),
			logging.String("to", res.Name),
		)
		return item, nil
	}

	if err := o.clearDestination(logger, item.Path, dest); err != nil {
		return item, err
	}
	if err := fileutil.Move(item.Path, dest); err != nil {
		return item, services.Wrap(services.ErrValidation, Name, "move", "could not rename "+item.Name(), err)
	}
	logger.Info("file renamed",
		logging.String("from", item.Name()),
		logging.String("to", res.Name),
		logging.String("ripper", string(res.Ripper)),
	)
	return item.WithPath(dest), nil
}

// clearDestination moves a different file found at dest into the trash.
func (o *Organizer) clearDestination(logger *slog.Logger, src, dest string) error {
	destInfo, err := os.Stat(dest)
	if err != nil {
		return nil
	}
	if srcInfo, err := os.Stat(src); err == nil && os.SameFile(srcInfo, destInfo) {
		return nil
	}
	moved, err := o.remover.Displace(dest)
	if err != nil {
		return services.Wrap(services.ErrValidation, Name, "displace existing", dest, err)
	}
	logging.WarnWithContext(logger, "destination already existed", "rename_collision",
		logging.String("existing", dest),
		logging.String("moved_to", moved),
		logging.String(logging.FieldErrorHint, "compare the two files and keep the better copy"),
		logging.String(logging.FieldImpact, "previous file moved to the trash"),
	)
	return nil
}

func (o *Organizer) reportUnrecognized(logger *slog.Logger, item mediaitem.Item, res naming.Result) {
	hint := naming.Hint(item.Name())
	logging.WarnWithContext(logger, "unrecognized release pattern", "unknown_ripper",
		logging.String("ripper", string(res.Ripper)),
		logging.String("tail", res.Tail),
		logging.String("suffix", res.Suffix),
		logging.String("parsed_group", hint.Group),
		logging.String("parsed_resolution", hint.Resolution),
		logging.String(logging.FieldErrorHint, "add a naming rule for this release group"),
		logging.String(logging.FieldImpact, "file renamed with its tail unchanged"),
	)
}

// HealthCheck reports whether the stage has what it needs to run.
func (o *Organizer) HealthCheck(context.Context) stage.Health {
	if o.remover == nil {
		return stage.Unhealthy(Name, "remover unavailable")
	}
	return stage.Healthy(Name)
}
