package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		hasYAML bool
		check   func(t *testing.T, fm *Frontmatter)
	}{
		{
			name:    "no frontmatter",
			content: "SELECT 1",
			check: func(t *testing.T, fm *Frontmatter) {
				assert.Empty(t, fm.Name)
			},
		},
		{
			name: "all fields",
			content: `/*---
name: dbo.usp_load
description: nightly load
owner: data-team
default_schema: stage
tags:
  - nightly
  - etl
skip: false
meta:
  ticket: DATA-12
---*/
CREATE PROCEDURE dbo.usp_load AS SELECT 1`,
			hasYAML: true,
			check: func(t *testing.T, fm *Frontmatter) {
				assert.Equal(t, "dbo.usp_load", fm.Name)
				assert.Equal(t, "nightly load", fm.Description)
				assert.Equal(t, "data-team", fm.Owner)
				assert.Equal(t, "stage", fm.DefaultSchema)
				assert.Equal(t, []string{"nightly", "etl"}, fm.Tags)
				assert.False(t, fm.Skip)
				assert.Equal(t, "DATA-12", fm.Meta["ticket"])
			},
		},
		{
			name:    "leading whitespace",
			content: "\n  /*---\nskip: true\n---*/\nSELECT 1",
			hasYAML: true,
			check: func(t *testing.T, fm *Frontmatter) {
				assert.True(t, fm.Skip)
			},
		},
		{
			name:    "ordinary comment is not frontmatter",
			content: "/* name: x */\nSELECT 1",
			check: func(t *testing.T, fm *Frontmatter) {
				assert.Empty(t, fm.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ExtractFrontmatter(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.hasYAML, res.HasYAML)
			tt.check(t, res.Config)
		})
	}
}

func TestExtractFrontmatter_Errors(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		_, err := ExtractFrontmatter("/*---\nunique_key: id\n---*/\nSELECT 1")
		var fieldErr *UnknownFieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, "unique_key", fieldErr.Field)
		assert.Contains(t, err.Error(), "meta")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ExtractFrontmatter("/*---\nname: [unclosed\n---*/\nSELECT 1")
		var parseErr *FrontmatterParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Contains(t, err.Error(), "invalid YAML")
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := ExtractFrontmatter("/*---\nskip: sometimes\n---*/\nSELECT 1")
		var parseErr *FrontmatterParseError
		require.True(t, errors.As(err, &parseErr))
	})
}

func TestFrontmatter_ApplyDefaults(t *testing.T) {
	fm := &Frontmatter{}
	fm.ApplyDefaults("dbo.v_sales.sql")
	assert.Equal(t, "dbo.v_sales", fm.Name)

	named := &Frontmatter{Name: "kept"}
	named.ApplyDefaults("other.sql")
	assert.Equal(t, "kept", named.Name)
}
