package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/cli/commands"
	"github.com/leapstack-labs/sqllineage/internal/cli/testutil"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root := NewRootCmd()
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"analyze", "risk", "watch", "doctor", "trace", "patterns", "init", "version", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "project-dir", "schema", "schema-file", "workers", "ext", "exclude", "fail-on-risk", "verbose", "log-level", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_AnalyzeProject(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := run(t, "analyze", "--project-dir", dir, "-o", "json")
	require.NoError(t, err)

	var rep struct {
		Definitions []struct {
			Name string `json:"name"`
		} `json:"definitions"`
		Summary struct {
			Edges    int `json:"edges"`
			Findings int `json:"findings"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Definitions, 2)
	assert.Equal(t, "dbo.usp_copy_orders", rep.Definitions[0].Name)
	assert.Equal(t, 3, rep.Summary.Edges, "SELECT * is expanded from the schema file")
	assert.Equal(t, 1, rep.Summary.Findings)
}

func TestRootCommand_Markdown(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := run(t, "analyze", "--project-dir", dir)
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Column Lineage")
	assert.Contains(t, out, "dbo.OrderCopy.amount")
}

func TestRootCommand_RiskGate(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := run(t, "risk", "--project-dir", dir, "-o", "json")
	var exitErr *commands.ExitError
	require.ErrorAs(t, err, &exitErr)

	_, _, err = run(t, "risk", "--project-dir", dir, "-o", "json", "--fail-on-risk", "critical")
	assert.NoError(t, err)
}

func TestRootCommand_EnvOverridesFile(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Setenv("SQLLINEAGE_FAIL_ON_RISK", "none")

	_, _, err := run(t, "risk", "--project-dir", dir, "-o", "json")
	assert.NoError(t, err)
}

func TestRootCommand_VerboseLogs(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, errOut, err := run(t, "analyze", "--project-dir", dir, "-o", "json", "-v")
	require.NoError(t, err)
	assert.Contains(t, errOut, "level=DEBUG")
	assert.Contains(t, errOut, "using config file")
	assert.Contains(t, errOut, "analysis complete")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqllineage.yaml"), []byte("fail_on_risk: severe\n"), 0600))

	_, _, err := run(t, "analyze", "--project-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCommand_HelpSkipsConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqllineage.yaml"), []byte("workers: -1\n"), 0600))

	out, _, err := run(t, "completion", "bash", "--project-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "sqllineage")
}

func TestRootCommand_Version(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "sqllineage "+Version)
}
