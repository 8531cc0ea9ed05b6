package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

func TestLoadFromDir(t *testing.T) {
	t.Run("no config file", func(t *testing.T) {
		cfg, err := LoadFromDir(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("yaml with defaults applied", func(t *testing.T) {
		dir := t.TempDir()
		content := "default_schema: sales\nschema_file: schema.yaml\nexclude:\n  - archive/**\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "sales", cfg.DefaultSchema)
		assert.Equal(t, "schema.yaml", cfg.SchemaFile)
		assert.Equal(t, []string{"archive/**"}, cfg.Exclude)
		assert.Equal(t, DefaultWorkers, cfg.Workers)
		assert.Equal(t, []string{".sql"}, cfg.Extensions)
		assert.Equal(t, DefaultFailOnRisk, cfg.FailOnRisk)
	})

	t.Run("alternate file name", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte("workers: 2\n"), 0o600))

		cfg, err := LoadFromDir(dir)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Workers)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("workers: [\n"), 0o600))

		_, err := LoadFromDir(dir)
		assert.Error(t, err)
	})
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(""), 0o600))

	assert.Equal(t, root, FindProjectRoot(nested, 10))
	assert.Equal(t, "", FindProjectRoot(nested, 1))
}

func TestProjectConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProjectConfig
		wantErr string
	}{
		{name: "valid", cfg: ProjectConfig{Workers: 2, Extensions: []string{".sql"}, FailOnRisk: "medium"}},
		{name: "gate disabled", cfg: ProjectConfig{FailOnRisk: "none"}},
		{name: "negative workers", cfg: ProjectConfig{Workers: -1}, wantErr: "workers"},
		{name: "extension without dot", cfg: ProjectConfig{Extensions: []string{"sql"}}, wantErr: "must start with a dot"},
		{name: "unknown risk", cfg: ProjectConfig{FailOnRisk: "severe"}, wantErr: "fail_on_risk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProjectConfig_RiskThreshold(t *testing.T) {
	level, enabled, err := (&ProjectConfig{FailOnRisk: "Critical"}).RiskThreshold()
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, lineage.RiskCritical, level)

	_, enabled, err = (&ProjectConfig{FailOnRisk: "NONE"}).RiskThreshold()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestProjectConfig_Options(t *testing.T) {
	opts := (&ProjectConfig{DefaultSchema: "sales", Workers: 3}).Options()
	assert.Equal(t, "sales", opts.DefaultSchema)
	assert.Equal(t, 3, opts.Workers)
}
