package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.ProjectConfig.Validate(); err != nil {
		return err
	}
	if !slices.Contains(outputFormats, strings.ToLower(c.OutputFormat)) {
		return fmt.Errorf("invalid output format %q, must be one of: %s", c.OutputFormat, strings.Join(outputFormats, ", "))
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	return nil
}

// Level returns the log level. Verbose forces debug.
func (c *Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
