// Package config provides the project configuration shared by the CLI
// commands: where definitions live, how they are resolved and when the
// risk gate fails.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// ProjectConfig holds the settings stored in sqllineage.yaml.
type ProjectConfig struct {
	DefaultSchema string   `koanf:"default_schema"`
	SchemaFile    string   `koanf:"schema_file"`
	Paths         []string `koanf:"paths"` // analyzed when no path is given
	Workers       int      `koanf:"workers"`
	Extensions    []string `koanf:"extensions"`
	Exclude       []string `koanf:"exclude"`
	FailOnRisk    string   `koanf:"fail_on_risk"`
}

// Validate checks the configuration values.
func (c *ProjectConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if _, _, err := c.RiskThreshold(); err != nil {
		return err
	}
	return nil
}

// RiskThreshold returns the risk level at which the risk command fails.
// enabled is false when the gate is switched off with "none".
func (c *ProjectConfig) RiskThreshold() (level lineage.RiskLevel, enabled bool, err error) {
	raw := strings.TrimSpace(c.FailOnRisk)
	if raw == "" || strings.EqualFold(raw, RiskThresholdNone) {
		return lineage.RiskLow, false, nil
	}
	level, err = lineage.ParseRiskLevel(raw)
	if err != nil {
		return lineage.RiskLow, false, fmt.Errorf("invalid fail_on_risk: %w", err)
	}
	return level, true, nil
}

// Options converts the configuration into extraction options.
func (c *ProjectConfig) Options() lineage.Options {
	return lineage.Options{
		DefaultSchema: c.DefaultSchema,
		Workers:       c.Workers,
	}
}
