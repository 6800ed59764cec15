package remuxing

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mediatool/internal/config"
	"mediatool/internal/fileutil"
	"mediatool/internal/logging"
	"mediatool/internal/media/ffprobe"
	"mediatool/internal/naming"
)

// prober inspects a container. *ffprobe.Prober satisfies it.
type prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// transcoder runs the ffmpeg operations. *ffmpeg.Tool satisfies it.
type transcoder interface {
	ExtractSubtitle(ctx context.Context, in string, index int, out string, timeout time.Duration) error
	Remux(ctx context.Context, in string, audioIndex int, out string, timeout time.Duration) error
	Merge(ctx context.Context, in, subtitle, out string, timeout time.Duration) error
}

// verifier checks a remux result. *ffprobe.Verifier satisfies it.
type verifier interface {
	Verify(ctx context.Context, path string) error
}

// remover disposes of replaced inputs. *fileutil.Remover satisfies it.
type remover interface {
	Remove(path string) (string, error)
	Displace(path string) (string, error)
	Mode() string
}

type spaceCheck func(dir string, size, multiplier, headroom int64) error

// Tools bundles the external collaborators the media stages need.
type Tools struct {
	Prober     prober
	Transcoder transcoder
	Verifier   verifier
	Remover    remover
}

type settings struct {
	mediaExtensions []string
	remuxExtensions []string
	outputExtension string
	minSubtitle     int64
	maxShrink       int64
	headroom        int64
	subtitleTimeout time.Duration
	remuxTimeout    time.Duration
}

func newSettings(cfg *config.Config) settings {
	return settings{
		mediaExtensions: cfg.Media.MediaExtensions,
		remuxExtensions: cfg.Media.RemuxExtensions,
		outputExtension: strings.TrimPrefix(cfg.Media.OutputExtension, "."),
		minSubtitle:     cfg.Media.MinSubtitleBytes,
		maxShrink:       cfg.Media.MaxRemuxShrinkBytes,
		headroom:        cfg.Archive.FreeSpaceHeadroomBytes,
		subtitleTimeout: cfg.SubtitleTimeout(),
		remuxTimeout:    cfg.RemuxTimeout(),
	}
}

// sidecarPath returns "<path without extension>.srt".
func sidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".srt"
}

func withExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}

// ripperOf returns the item's recorded ripper, or classifies the file name
// when the rename stage did not run.
func ripperOf(recorded, parent, path string) naming.Ripper {
	if recorded != "" {
		return naming.Ripper(recorded)
	}
	if _, res, err := naming.CanonicalPath(parent, path); err == nil {
		return res.Ripper
	}
	return naming.RipperUnknown
}

// displace moves an existing file at path into the trash.
func displace(logger *slog.Logger, r remover, path string) error {
	if !fileutil.Exists(path) {
		return nil
	}
	moved, err := r.Displace(path)
	if err != nil {
		return err
	}
	logger.Info("moved existing file aside",
		logging.String("existing", path),
		logging.String("moved_to", moved),
	)
	return nil
}
