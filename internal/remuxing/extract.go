package remuxing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"mediatool/internal/config"
	"mediatool/internal/fileutil"
	"mediatool/internal/language"
	"mediatool/internal/logging"
	"mediatool/internal/media/ffprobe"
	"mediatool/internal/media/streams"
	"mediatool/internal/mediaitem"
	"mediatool/internal/services"
	"mediatool/internal/stage"
)

// ExtractName identifies the ExtractMedia stage.
const ExtractName = "extract-media"

// Extractor is the ExtractMedia stage.
type Extractor struct {
	logger     *slog.Logger
	tools      Tools
	rules      streams.Rules
	settings   settings
	simulate   bool
	checkSpace spaceCheck
}

// NewExtractor constructs the ExtractMedia stage handler.
func NewExtractor(cfg *config.Config, logger *slog.Logger, tools Tools, simulate bool) *Extractor {
	return &Extractor{
		logger: logging.NewComponentLogger(logger, "remuxing"),
		tools:  tools,
		rules: streams.Rules{
			Language:       cfg.Media.Language,
			SubtitleCodecs: cfg.Media.SubtitleCodecs,
			AudioCodecs:    cfg.Media.AudioCodecs,
		},
		settings:   newSettings(cfg),
		simulate:   simulate,
		checkSpace: fileutil.EnsureFreeSpace,
	}
}

// Name implements stage.Handler.
func (e *Extractor) Name() string { return ExtractName }

// Execute probes and classifies the container, extracts the subtitle and
// remuxes when safe.
func (e *Extractor) Execute(ctx context.Context, item mediaitem.Item) (mediaitem.Item, error) {
	ext := item.Ext()
	if item.Failed() || item.HasTag(mediaitem.TagConvert) || !slices.Contains(e.settings.mediaExtensions, ext) {
		return item, nil
	}
	logger := logging.WithContext(ctx, e.logger)

	if e.simulate && item.HasTag(mediaitem.TagExtract) {
		logger.Debug("media inspection skipped; simulated extraction wrote no file")
		return item, nil
	}

	info, err := os.Stat(item.Path)
	if err != nil {
		return item, services.Wrap(services.ErrNotFound, ExtractName, "stat", item.Name(), err)
	}
	if !item.HasTag(mediaitem.TagExtract) {
		if err := e.checkSpace(filepath.Dir(item.Path), info.Size(), 1, e.settings.headroom); err != nil {
			return item, err
		}
	}

	probe, err := e.tools.Prober.Inspect(ctx, item.Path)
	if err != nil {
		return item, err
	}
	sel, err := streams.Classify(probe.Streams, ripperOf(item.Ripper, item.ParentDir, item.Path), e.rules)
	if err != nil {
		return item, err
	}
	e.logSelection(logger, sel, probe)

	if !slices.Contains(e.settings.remuxExtensions, ext) {
		return item, nil
	}

	if sel.HasSubtitle() {
		item, err = e.extractSubtitle(ctx, logger, item, sel.SubtitleIndex)
		if err != nil || item.Failed() {
			return item, err
		}
	}

	if !sel.ContainerChangeSafe {
		logging.WarnWithContext(logger, "container change skipped", "unsafe_container_change",
			logging.String("reason", sel.UnsafeReason),
			logging.Int("audio_streams", sel.AudioCount),
			logging.Int("subtitle_streams", sel.SubtitleStreams),
			logging.String(logging.FieldErrorHint, "inspect the streams and remux by hand"),
			logging.String(logging.FieldImpact, "file kept in its original container"),
		)
		return item, nil
	}
	return e.remux(ctx, logger, item, info.Size(), sel.AudioIndex)
}

func (e *Extractor) logSelection(logger *slog.Logger, sel streams.Selection, probe ffprobe.Result) {
	if len(sel.DataIndices) > 0 {
		logging.WarnWithContext(logger, "container carries data streams", "data_stream",
			logging.Any("indices", sel.DataIndices),
			logging.String(logging.FieldErrorHint, "data streams are dropped on remux"),
			logging.String(logging.FieldImpact, "none; stream ignored"),
		)
	}
	attrs := []logging.Attr{
		logging.String("target_language", language.DisplayName(e.rules.Language)),
		logging.Int("subtitle_index", sel.SubtitleIndex),
		logging.Int("audio_index", sel.AudioIndex),
		logging.Bool("subtitle_language_match", sel.SubtitleLanguageMatch),
		logging.Bool("audio_language_match", sel.AudioLanguageMatch),
		logging.Bool("container_change_safe", sel.ContainerChangeSafe),
	}
	if seconds := probe.DurationSeconds(); seconds > 0 {
		attrs = append(attrs, logging.Duration("duration", time.Duration(seconds*float64(time.Second))))
	}
	logger.Info("streams classified", logging.Args(attrs...)...)
}

func (e *Extractor) extractSubtitle(ctx context.Context, logger *slog.Logger, item mediaitem.Item, index int) (mediaitem.Item, error) {
	sidecar := sidecarPath(item.Path)
	if e.simulate {
		logger.Info("would extract subtitle",
			logging.Int("stream_index", index),
			logging.String("sidecar", sidecar),
		)
		return item.WithTag(mediaitem.TagSubtitle), nil
	}
	if err := displace(logger, e.tools.Remover, sidecar); err != nil {
		return item, services.Wrap(services.ErrValidation, ExtractName, "displace sidecar", sidecar, err)
	}
	if err := e.tools.Transcoder.ExtractSubtitle(ctx, item.Path, index, sidecar, e.settings.subtitleTimeout); err != nil {
		return item, err
	}
	info, err := os.Stat(sidecar)
	if err != nil {
		return item, services.Wrap(services.ErrExternalTool, ExtractName, "extract subtitle", "sidecar was not written", err)
	}
	if info.Size() < e.settings.minSubtitle {
		logging.WarnWithContext(logger, "subtitle sidecar is unusually small", "small_subtitle",
			logging.String("sidecar", sidecar),
			logging.Int64("bytes", info.Size()),
			logging.Int64("min_bytes", e.settings.minSubtitle),
			logging.String(logging.FieldErrorHint, "check the sidecar; the track may be forced-only"),
			logging.String(logging.FieldImpact, "sidecar kept"),
		)
	}
	logger.Info("subtitle extracted", logging.String("sidecar", sidecar), logging.Int64("bytes", info.Size()))
	return item.WithTag(mediaitem.TagSubtitle), nil
}

func (e *Extractor) remux(ctx context.Context, logger *slog.Logger, item mediaitem.Item, inSize int64, audioIndex int) (mediaitem.Item, error) {
	out := withExtension(item.Path, e.settings.outputExtension)
	if out == item.Path {
		return item, nil
	}
	if e.simulate {
		logger.Info("would remux", logging.Int("audio_index", audioIndex), logging.String("output", out))
		return item.WithTag(mediaitem.TagConvert), nil
	}
	if err := displace(logger, e.tools.Remover, out); err != nil {
		return item, services.Wrap(services.ErrValidation, ExtractName, "displace output", out, err)
	}
	if err := e.tools.Transcoder.Remux(ctx, item.Path, audioIndex, out, e.settings.remuxTimeout); err != nil {
		_ = os.Remove(out)
		return item, err
	}

	info, err := os.Stat(out)
	if err != nil {
		return item, services.Wrap(services.ErrExternalTool, ExtractName, "remux", "output was not written", err)
	}
	if shrink := inSize - info.Size(); shrink > e.settings.maxShrink {
		_ = os.Remove(out)
		return item.WithFailure(fmt.Sprintf("remux output is %d bytes smaller than its input", shrink)), nil
	}
	if err := e.tools.Verifier.Verify(ctx, out); err != nil {
		_ = os.Remove(out)
		return item, err
	}

	if trashed, err := e.tools.Remover.Remove(item.Path); err != nil {
		logging.WarnWithContext(logger, "remux input not removed", "remux_cleanup",
			logging.String("input", item.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the original by hand"),
			logging.String(logging.FieldImpact, "original kept next to the remuxed file"),
		)
	} else {
		logger.Debug("remux input removed",
			logging.String("input", item.Path),
			logging.String("mode", e.tools.Remover.Mode()),
			logging.String("trashed_to", trashed),
		)
	}
	logger.Info("container remuxed",
		logging.String("output", out),
		logging.Int64("input_bytes", inSize),
		logging.Int64("output_bytes", info.Size()),
	)
	return item.WithTag(mediaitem.TagConvert).WithPath(out), nil
}

// HealthCheck reports whether the stage has its collaborators.
func (e *Extractor) HealthCheck(context.Context) stage.Health {
	switch {
	case e.tools.Prober == nil:
		return stage.Unhealthy(ExtractName, "ffprobe unavailable")
	case e.tools.Transcoder == nil:
		return stage.Unhealthy(ExtractName, "ffmpeg unavailable")
	case e.tools.Verifier == nil || e.tools.Remover == nil:
		return stage.Unhealthy(ExtractName, "verifier or remover unavailable")
	}
	return stage.Healthy(ExtractName)
}
