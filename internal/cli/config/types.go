// Package config provides configuration management for the sqllineage CLI.
//
// It extends the shared project configuration from internal/config with
// CLI-specific fields and loads both from layered sources.
package config

import (
	"time"

	intconfig "github.com/leapstack-labs/sqllineage/internal/config"
)

// ProjectConfig is an alias for the shared project configuration.
type ProjectConfig = intconfig.ProjectConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectConfig `koanf:",squash"`

	Verbose       bool          `koanf:"verbose"`
	LogLevel      string        `koanf:"log_level"`
	OutputFormat  string        `koanf:"output"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`

	// Set by the loader, not read from any source.
	ProjectRoot string `koanf:"-"`
	ConfigFile  string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultOutput        = intconfig.DefaultOutput
	DefaultLogLevel      = intconfig.DefaultLogLevel
	DefaultWatchDebounce = "200ms"
)

// Output formats accepted by --output.
var outputFormats = []string{"auto", "text", "markdown", "json"}

// OutputFormats returns the accepted output formats.
func OutputFormats() []string {
	return append([]string(nil), outputFormats...)
}

// Default returns the configuration used when nothing was loaded.
func Default() *Config {
	cfg := &Config{
		LogLevel:      DefaultLogLevel,
		OutputFormat:  DefaultOutput,
		WatchDebounce: 200 * time.Millisecond,
	}
	intconfig.ApplyDefaults(&cfg.ProjectConfig)
	return cfg
}
