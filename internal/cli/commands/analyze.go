package commands

import (
	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/spf13/cobra"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	Strict bool // Fail on parse errors and coverage gaps
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Extract column lineage from T-SQL definitions",
		Long: `Extract column-level lineage from T-SQL procedures, views, functions and scripts.

Each file is one definition. Directories are searched recursively for files
with a configured extension. With no paths, the paths from sqllineage.yaml are
used, or the project root.

For every definition the report lists the lineage edges, the dynamic SQL
findings, any parse errors and the coverage gaps where lineage could not be
determined.

Output adapts to environment:
  - Terminal: Styled tables with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Analyze the project
  sqllineage analyze

  # Analyze a directory with a schema file for SELECT * expansion
  sqllineage analyze ./procs --schema-file schema.yaml

  # Output as JSON
  sqllineage analyze usp_load_orders.sql -o json

  # Fail when a definition does not parse or has coverage gaps
  sqllineage analyze --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit non-zero on parse errors or coverage gaps")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	cmdCtx := NewCommandContext(cmd)

	rep, err := cmdCtx.Analyze(cmd.Context(), args)
	if err != nil {
		return err
	}
	if err := cmdCtx.Renderer.Analysis(rep); err != nil {
		return err
	}

	if opts.Strict {
		return strictCheck(rep)
	}
	return nil
}

func strictCheck(rep *output.Report) error {
	if rep.Summary.Failed > 0 {
		return exitErrorf("%d definition(s) failed to parse", rep.Summary.Failed)
	}
	if rep.Summary.Gaps > 0 {
		return exitErrorf("%d coverage gap(s)", rep.Summary.Gaps)
	}
	return nil
}
