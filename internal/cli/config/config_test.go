package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a sqllineage.yaml into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqllineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// testFlags mirrors the persistent flags of the root command.
func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("project-dir", "", "")
	flags.String("schema", "", "")
	flags.String("schema-file", "", "")
	flags.Int("workers", 0, "")
	flags.StringSlice("ext", nil, "")
	flags.String("fail-on-risk", "", "")
	flags.String("output", "", "")
	flags.Bool("verbose", false, "")
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	cfgPath := writeConfig(t, "")

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "dbo", cfg.DefaultSchema)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{".sql"}, cfg.Extensions)
	assert.Equal(t, "High", cfg.FailOnRisk)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, 200*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, filepath.Dir(cfgPath), cfg.ProjectRoot)
	assert.Equal(t, cfgPath, cfg.ConfigFile)
}

func TestLoad_File(t *testing.T) {
	cfgPath := writeConfig(t, `default_schema: sales
schema_file: meta/schema.yaml
paths: [procs, views]
workers: 2
extensions: [.sql, .prc]
exclude: ["*_old.sql"]
fail_on_risk: medium
output: json
watch_debounce: 1s
`)
	root := filepath.Dir(cfgPath)

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "sales", cfg.DefaultSchema)
	assert.Equal(t, filepath.Join(root, "meta", "schema.yaml"), cfg.SchemaFile)
	assert.Equal(t, []string{filepath.Join(root, "procs"), filepath.Join(root, "views")}, cfg.Paths)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{".sql", ".prc"}, cfg.Extensions)
	assert.Equal(t, []string{"*_old.sql"}, cfg.Exclude)
	assert.Equal(t, "medium", cfg.FailOnRisk)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
}

func TestLoad_EnvPrecedenceOverFile(t *testing.T) {
	cfgPath := writeConfig(t, "default_schema: from_file\nworkers: 2\n")
	t.Setenv("SQLLINEAGE_DEFAULT_SCHEMA", "from_env")
	t.Setenv("SQLLINEAGE_EXTENSIONS", ".sql,.tsql")
	t.Setenv("SQLLINEAGE_VERBOSE", "true")

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.DefaultSchema)
	assert.Equal(t, []string{".sql", ".tsql"}, cfg.Extensions)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoad_FlagPrecedence(t *testing.T) {
	cfgPath := writeConfig(t, "default_schema: from_file\nschema_file: file.yaml\n")
	t.Setenv("SQLLINEAGE_DEFAULT_SCHEMA", "from_env")

	flags := testFlags()
	require.NoError(t, flags.Set("schema", "from_flag"))
	require.NoError(t, flags.Set("schema-file", "flag.yaml"))
	require.NoError(t, flags.Set("workers", "7"))
	require.NoError(t, flags.Set("ext", ".sql,.vw"))

	cfg, err := Load(cfgPath, flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, "from_flag", cfg.DefaultSchema)
	assert.Equal(t, filepath.Join(cwd, "flag.yaml"), cfg.SchemaFile, "flag paths are relative to the working directory")
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, []string{".sql", ".vw"}, cfg.Extensions)
}

func TestLoad_FlagNotSetUsesEnv(t *testing.T) {
	cfgPath := writeConfig(t, "default_schema: from_file\n")
	t.Setenv("SQLLINEAGE_DEFAULT_SCHEMA", "from_env")

	cfg, err := Load(cfgPath, testFlags())
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.DefaultSchema)
}

func TestLoad_ProjectDirFlag(t *testing.T) {
	cfgPath := writeConfig(t, "default_schema: from_project\n")

	flags := testFlags()
	require.NoError(t, flags.Set("project-dir", filepath.Dir(cfgPath)))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "from_project", cfg.DefaultSchema)
	assert.Equal(t, cfgPath, cfg.ConfigFile)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad output", "output: html\n", "invalid output format"},
		{"bad risk", "fail_on_risk: severe\n", "fail_on_risk"},
		{"bad log level", "log_level: loud\n", "log_level"},
		{"bad workers", "workers: many\n", "decode"},
		{"bad yaml", "workers: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.Error(t, err)
	})
}

func TestConfig_Level(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want slog.Level
	}{
		{"default", Config{}, slog.LevelWarn},
		{"named", Config{LogLevel: "info"}, slog.LevelInfo},
		{"verbose wins", Config{LogLevel: "error", Verbose: true}, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Level()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, Default(), GetConfig(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := &Config{OutputFormat: "json"}
	var buf bytes.Buffer
	logger := NewLogger(&buf, &Config{Verbose: true})

	ctx = WithLogger(WithConfig(ctx, cfg), logger)
	assert.Same(t, cfg, GetConfig(ctx))

	GetLogger(ctx).Debug("hello")
	assert.Contains(t, buf.String(), "hello")
}
