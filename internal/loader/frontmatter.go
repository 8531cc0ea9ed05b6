package loader

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header of a definition file.
// Unknown fields cause parse errors (use Meta for extensions).
type Frontmatter struct {
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	Owner         string         `yaml:"owner"`
	DefaultSchema string         `yaml:"default_schema"`
	Tags          []string       `yaml:"tags"`
	Skip          bool           `yaml:"skip"`
	Meta          map[string]any `yaml:"meta"`
}

// FrontmatterResult holds the result of frontmatter extraction.
type FrontmatterResult struct {
	Config  *Frontmatter
	HasYAML bool
}

// frontmatterPattern matches a leading /*--- ... ---*/ block.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

var knownFields = map[string]bool{
	"name":           true,
	"description":    true,
	"owner":          true,
	"default_schema": true,
	"tags":           true,
	"skip":           true,
	"meta":           true,
}

// ExtractFrontmatter parses the YAML header of content. The header is a
// block comment, so the SQL text is left untouched and line numbers in
// lineage output match the file.
func ExtractFrontmatter(content string) (*FrontmatterResult, error) {
	result := &FrontmatterResult{Config: &Frontmatter{}}

	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) < 2 {
		return result, nil
	}

	config, err := parseFrontmatterYAML(matches[1])
	if err != nil {
		return nil, err
	}
	result.Config = config
	result.HasYAML = true
	return result, nil
}

func parseFrontmatterYAML(yamlContent string) (*Frontmatter, error) {
	// Decode into a map first to report unknown fields by name
	var rawMap map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &rawMap); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	for field := range rawMap {
		if !knownFields[field] {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	var config Frontmatter
	if err := yaml.Unmarshal([]byte(yamlContent), &config); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("failed to parse frontmatter: %v", err),
		}
	}
	return &config, nil
}

// ApplyDefaults fills the definition name from the file name.
func (c *Frontmatter) ApplyDefaults(filename string) {
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
}

// FrontmatterParseError represents a frontmatter parsing error.
type FrontmatterParseError struct {
	File    string
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an error for unknown frontmatter fields.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in frontmatter, use \"meta\" field for custom fields", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
