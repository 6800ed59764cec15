package remuxing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediatool/internal/config"
	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/stage"
)

// MergeName identifies the MergeSubtitle stage.
const MergeName = "merge-subtitle"

// Merger muxes a "<basename>.srt" sidecar into its output container.
type Merger struct {
	logger   *slog.Logger
	tools    Tools
	settings settings
	simulate bool
}

// NewMerger constructs the MergeSubtitle stage handler.
func NewMerger(cfg *config.Config, logger *slog.Logger, tools Tools, simulate bool) *Merger {
	return &Merger{
		logger:   logging.NewComponentLogger(logger, "remuxing"),
		tools:    tools,
		settings: newSettings(cfg),
		simulate: simulate,
	}
}

// Name implements stage.Handler.
func (m *Merger) Name() string { return MergeName }

// Execute merges the sidecar when one exists next to an output container.
func (m *Merger) Execute(ctx context.Context, item mediaitem.Item) (mediaitem.Item, error) {
	if item.Failed() || item.HasTag(mediaitem.TagMerge) || item.Ext() != strings.ToLower(m.settings.outputExtension) {
		return item, nil
	}
	sidecar := sidecarPath(item.Path)
	if !fileutil.Exists(sidecar) {
		return item, nil
	}
	logger := logging.WithContext(ctx, m.logger)

	if m.simulate {
		logger.Info("would merge subtitle", logging.String("sidecar", sidecar))
		return item.WithTag(mediaitem.TagMerge), nil
	}

	merged := strings.TrimSuffix(item.Path, filepath.Ext(item.Path)) + ".merged." + m.settings.outputExtension
	if err := displace(logger, m.tools.Remover, merged); err != nil {
		return item, services.Wrap(services.ErrValidation, MergeName, "displace output", merged, err)
	}
	if err := m.tools.Transcoder.Merge(ctx, item.Path, sidecar, merged, m.settings.remuxTimeout); err != nil {
		_ = os.Remove(merged)
		return item, err
	}
	if info, err := os.Stat(merged); err != nil || info.Size() == 0 {
		_ = os.Remove(merged)
		return item, services.Wrap(services.ErrExternalTool, MergeName, "merge", "merged output was not written", err)
	}

	if _, err := m.tools.Remover.Remove(item.Path); err != nil {
		_ = os.Remove(merged)
		return item, services.Wrap(services.ErrValidation, MergeName, "replace input", item.Name(), err)
	}
	if err := fileutil.Move(merged, item.Path); err != nil {
		return item, services.Wrap(services.ErrValidation, MergeName, "replace input",
			"merged file left at "+merged, err)
	}
	if _, err := m.tools.Remover.Remove(sidecar); err != nil {
		logger.Debug("sidecar not removed", logging.String("sidecar", sidecar), logging.Error(err))
	}
	logger.Info("subtitle merged", logging.String("sidecar", sidecar))
	return item.WithTag(mediaitem.TagMerge), nil
}

// HealthCheck reports whether the stage has its collaborators.
func (m *Merger) HealthCheck(context.Context) stage.Health {
	if m.tools.Transcoder == nil || m.tools.Remover == nil {
		return stage.Unhealthy(MergeName, "ffmpeg or remover unavailable")
	}
	return stage.Healthy(MergeName)
}
