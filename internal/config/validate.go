package config

import (
	"errors"
	"fmt"
	"regexp"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateUpdate(); err != nil {
		return err
	}
	if err := c.validateRemoval(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must be zero or positive")
	}
	return c.validateLogging()
}

func (c *Config) validateTimeouts() error {
	if c.Timeouts.ProbeSeconds <= 0 {
		return errors.New("timeouts.probe_seconds must be positive")
	}
	if c.Timeouts.SubtitleSeconds <= 0 {
		return errors.New("timeouts.subtitle_seconds must be positive")
	}
	if c.Timeouts.RemuxSeconds <= 0 {
		return errors.New("timeouts.remux_seconds must be positive")
	}
	if c.Timeouts.VersionSeconds <= 0 {
		return errors.New("timeouts.version_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.MinSubtitleBytes < 0 {
		return errors.New("media.min_subtitle_bytes must be zero or positive")
	}
	if c.Media.MaxRemuxShrinkBytes <= 0 {
		return errors.New("media.max_remux_shrink_bytes must be positive")
	}
	for _, ext := range c.Media.RemuxExtensions {
		if ext == c.Media.OutputExtension {
			return fmt.Errorf("media.remux_extensions must not contain the output extension %q", ext)
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.FreeSpaceMultiplier < 1 {
		return errors.New("archive.free_space_multiplier must be at least 1")
	}
	if c.Archive.FreeSpaceHeadroomBytes < 0 {
		return errors.New("archive.free_space_headroom_bytes must be zero or positive")
	}
	return nil
}

func (c *Config) validateUpdate() error {
	re, err := regexp.Compile(c.Update.VersionPattern)
	if err != nil {
		return fmt.Errorf("update.version_pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return errors.New("update.version_pattern must contain exactly one capture group")
	}
	if c.Update.MaxVersionLength <= 0 {
		return errors.New("update.max_version_length must be positive")
	}
	if c.Update.RequestTimeoutSeconds <= 0 {
		return errors.New("update.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRemoval() error {
	switch c.Removal.Mode {
	case RemovalTrash, RemovalDelete:
		return nil
	default:
		return fmt.Errorf("removal.mode: unsupported value %q (want %q or %q)", c.Removal.Mode, RemovalTrash, RemovalDelete)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
