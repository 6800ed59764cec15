package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	TrashDir string `toml:"trash_dir"`
}

// Tools locates the external transcoding tool.
type Tools struct {
	// FFmpegDir is the install root managed by the updater. Binaries are
	// resolved from <ffmpeg_dir>/bin before falling back to PATH.
	FFmpegDir     string `toml:"ffmpeg_dir"`
	FFmpeg        string `toml:"ffmpeg"`
	FFprobe       string `toml:"ffprobe"`
	KillOnTimeout bool   `toml:"kill_on_timeout"`
}

// Timeouts bounds how long the runner waits on each external invocation.
type Timeouts struct {
	ProbeSeconds    int `toml:"probe_seconds"`
	SubtitleSeconds int `toml:"subtitle_seconds"`
	RemuxSeconds    int `toml:"remux_seconds"`
	VersionSeconds  int `toml:"version_seconds"`
}

// Media contains stream selection and container settings.
type Media struct {
	Language            string   `toml:"language"`
	SubtitleCodecs      []string `toml:"subtitle_codecs"`
	AudioCodecs         []string `toml:"audio_codecs"`
	MediaExtensions     []string `toml:"media_extensions"`
	RemuxExtensions     []string `toml:"remux_extensions"`
	OutputExtension     string   `toml:"output_extension"`
	MinSubtitleBytes    int64    `toml:"min_subtitle_bytes"`
	MaxRemuxShrinkBytes int64    `toml:"max_remux_shrink_bytes"`
}

// Archive contains archive extraction settings.
type Archive struct {
	Extensions             []string `toml:"extensions"`
	FreeSpaceMultiplier    int64    `toml:"free_space_multiplier"`
	FreeSpaceHeadroomBytes int64    `toml:"free_space_headroom_bytes"`
}

// Update configures the ffmpeg updater.
type Update struct {
	VersionURL            string `toml:"version_url"`
	VersionPattern        string `toml:"version_pattern"`
	DownloadURL           string `toml:"download_url"`
	MaxVersionLength      int    `toml:"max_version_length"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Removal controls what happens to files the pipeline discards.
type Removal struct {
	Mode string `toml:"mode"`
}

// Notifications configures ntfy push messages for finished runs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifySimulated       bool   `toml:"notify_simulated"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediatool.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and trash directories
//   - Tools: ffmpeg/ffprobe location and timeout behaviour
//   - Timeouts: bounded waits per external invocation
//   - Media: stream selection, supported codecs and container extensions
//   - Archive: archive extensions and free-space safety margins
//   - Update: ffmpeg release discovery and download
//   - Removal: trash or delete discarded files
//   - Notifications: optional ntfy messages when runs finish
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Timeouts      Timeouts      `toml:"timeouts"`
	Media         Media         `toml:"media"`
	Archive       Archive       `toml:"archive"`
	Update        Update        `toml:"update"`
	Removal       Removal       `toml:"removal"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediatool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The trash
// directory is created lazily on first use.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary resolves the ffmpeg executable, preferring the managed install.
func (c *Config) FFmpegBinary() string {
	return c.resolveTool(c.Tools.FFmpeg, defaultFFmpegBinary)
}

// FFprobeBinary resolves the ffprobe executable, preferring the managed install.
func (c *Config) FFprobeBinary() string {
	return c.resolveTool(c.Tools.FFprobe, defaultFFprobeBinary)
}

func (c *Config) resolveTool(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	if candidate, ok := ToolBinaryIn(c.Tools.FFmpegDir, name); ok {
		return candidate
	}
	return name
}

// ToolBinaryIn returns <dir>/bin/<name> when that executable exists.
func ToolBinaryIn(dir, name string) (string, bool) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", false
	}
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}
	candidate := filepath.Join(dir, "bin", name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	return "", false
}

// ProbeTimeout returns the bounded wait for a probe invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Timeouts.ProbeSeconds) * time.Second
}

// SubtitleTimeout returns the bounded wait for subtitle extraction.
func (c *Config) SubtitleTimeout() time.Duration {
	return time.Duration(c.Timeouts.SubtitleSeconds) * time.Second
}

// RemuxTimeout returns the bounded wait for a container remux.
func (c *Config) RemuxTimeout() time.Duration {
	return time.Duration(c.Timeouts.RemuxSeconds) * time.Second
}

// VersionTimeout returns the bounded wait for `ffmpeg -version`.
func (c *Config) VersionTimeout() time.Duration {
	return time.Duration(c.Timeouts.VersionSeconds) * time.Second
}

// JournalPath returns the sqlite run journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the single-run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mediatool.lock")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "mediatool.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
