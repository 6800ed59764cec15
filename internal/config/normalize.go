package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeArchive()
	c.normalizeUpdate()
	c.Removal.Mode = strings.ToLower(strings.TrimSpace(c.Removal.Mode))
	if c.Removal.Mode == "" {
		c.Removal.Mode = defaultRemovalMode
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TrashDir) == "" {
		c.Paths.TrashDir = defaultTrashDir
	}
	if c.Paths.TrashDir, err = expandPath(c.Paths.TrashDir); err != nil {
		return fmt.Errorf("paths.trash_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	var err error
	if c.Tools.FFmpegDir, err = expandPath(strings.TrimSpace(c.Tools.FFmpegDir)); err != nil {
		return fmt.Errorf("tools.ffmpeg_dir: %w", err)
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.Language = strings.ToLower(strings.TrimSpace(c.Media.Language))
	if c.Media.Language == "" {
		c.Media.Language = defaultLanguage
	}
	c.Media.SubtitleCodecs = normalizeList(c.Media.SubtitleCodecs, defaultSubtitleCodecs)
	c.Media.AudioCodecs = normalizeList(c.Media.AudioCodecs, defaultAudioCodecs)
	c.Media.MediaExtensions = normalizeExtensions(c.Media.MediaExtensions, defaultMediaExtensions)
	c.Media.RemuxExtensions = normalizeExtensions(c.Media.RemuxExtensions, defaultRemuxExtensions)
	c.Media.OutputExtension = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Media.OutputExtension)), ".")
	if c.Media.OutputExtension == "" {
		c.Media.OutputExtension = defaultOutputExtension
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Extensions = normalizeExtensions(c.Archive.Extensions, defaultArchiveExts)
	if c.Archive.FreeSpaceMultiplier == 0 {
		c.Archive.FreeSpaceMultiplier = defaultFreeSpaceMultiplier
	}
}

func (c *Config) normalizeUpdate() {
	c.Update.VersionURL = strings.TrimSpace(c.Update.VersionURL)
	c.Update.VersionPattern = strings.TrimSpace(c.Update.VersionPattern)
	if c.Update.VersionPattern == "" {
		c.Update.VersionPattern = defaultVersionPattern
	}
	c.Update.DownloadURL = strings.TrimSpace(c.Update.DownloadURL)
	if c.Update.MaxVersionLength == 0 {
		c.Update.MaxVersionLength = defaultMaxVersionLength
	}
	if c.Update.RequestTimeoutSeconds == 0 {
		c.Update.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeList(values, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return cloneStrings(fallback)
	}
	return out
}

func normalizeExtensions(values, fallback []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		trimmed = append(trimmed, strings.TrimPrefix(strings.TrimSpace(value), "."))
	}
	return normalizeList(trimmed, fallback)
}
