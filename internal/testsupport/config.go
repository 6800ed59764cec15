package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediatool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TrashDir = filepath.Join(base, "trash")
	cfgVal.Tools.FFmpegDir = filepath.Join(base, "ffmpeg")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRemovalMode sets how discarded files are disposed of.
func WithRemovalMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Removal.Mode = mode
	}
}

// WithStubbedBinaries writes executables with the given shell bodies into
// <ffmpeg_dir>/bin, where the config resolves its tools first. Names without a
// body get a script that exits 0.
func WithStubbedBinaries(scripts map[string]string) ConfigOption {
	return func(b *configBuilder) {
		if len(scripts) == 0 {
			scripts = map[string]string{"ffmpeg": "", "ffprobe": ""}
		}
		binDir := filepath.Join(b.cfg.Tools.FFmpegDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for name, body := range scripts {
			if body == "" {
				body = "exit 0\n"
			}
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
