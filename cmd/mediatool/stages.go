package main

import (
	"log/slog"

	"mediatool/internal/config"
	"mediatool/internal/fileutil"
	"mediatool/internal/media/ffmpeg"
	"mediatool/internal/media/ffprobe"
	"mediatool/internal/organizer"
	"mediatool/internal/packaging"
	"mediatool/internal/procrun"
	"mediatool/internal/remuxing"
	"mediatool/internal/unpacking"
	"mediatool/internal/workflow"
)

func newRunner(cfg *config.Config, logger *slog.Logger) *procrun.Runner {
	return procrun.New(logger, procrun.WithKillOnTimeout(cfg.Tools.KillOnTimeout))
}

// buildStages wires every stage handler against the real tools.
func buildStages(cfg *config.Config, logger *slog.Logger, runID string, simulate bool) workflow.StageSet {
	remover := fileutil.NewRemover(cfg.Removal.Mode, cfg.Paths.TrashDir, runID)
	runner := newRunner(cfg, logger)
	tools := remuxing.Tools{
		Prober:     ffprobe.NewProber(runner, cfg.FFprobeBinary(), cfg.ProbeTimeout()),
		Transcoder: ffmpeg.New(runner, cfg.FFmpegBinary()),
		Verifier:   ffprobe.NewVerifier(cfg.FFprobeBinary(), cfg.ProbeTimeout()),
		Remover:    remover,
	}
	return workflow.StageSet{
		Unpacker:       unpacking.New(cfg, logger, remover, simulate),
		Organizer:      organizer.NewOrganizer(cfg, logger, remover, simulate),
		MediaExtractor: remuxing.NewExtractor(cfg, logger, tools, simulate),
		Packager:       packaging.New(logger),
		Merger:         remuxing.NewMerger(cfg, logger, tools, simulate),
	}
}
