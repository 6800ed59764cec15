// Package config loads, normalizes, and validates mediatool configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// pipeline and CLI need: tool locations, bounded waits for external
// invocations, stream selection preferences, and archive safety margins.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, lowercase codec lists, and clear validation errors.
package config
