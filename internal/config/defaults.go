package config

// Default configuration values.
const (
	DefaultSchema     = "dbo"
	DefaultWorkers    = 4
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultFailOnRisk = "High"
	DefaultLogLevel   = "warn"
)

// RiskThresholdNone disables the risk gate of the risk command.
const RiskThresholdNone = "none"

// DefaultExtensions returns the file extensions treated as definitions.
func DefaultExtensions() []string {
	return []string{".sql"}
}

// ApplyDefaults fills unset fields of a ProjectConfig.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.DefaultSchema == "" {
		c.DefaultSchema = DefaultSchema
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions()
	}
	if c.FailOnRisk == "" {
		c.FailOnRisk = DefaultFailOnRisk
	}
}
