package commands

import (
	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewRiskCommand creates the risk command.
func NewRiskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk [paths...]",
		Short: "Report dynamic SQL in T-SQL definitions",
		Long: `Report the dynamic SQL constructs whose data flow cannot be determined.

Every EXEC of a string or variable, sp_executesql, sp_execute, OPENQUERY and
INSERT ... EXEC is listed with its risk level. When fail_on_risk is set (the
default is High), the command exits non-zero if any finding is at or above
that level. Set it to none to only report.`,
		Example: `  # Gate a deployment on High or Critical findings
  sqllineage risk ./procs

  # Only fail on Critical findings
  sqllineage risk ./procs --fail-on-risk critical

  # Report without failing
  sqllineage risk --fail-on-risk none -o json`,
		RunE: runRisk,
	}
	return cmd
}

func runRisk(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	threshold, err := cmdCtx.threshold()
	if err != nil {
		return err
	}

	rep, err := cmdCtx.Analyze(cmd.Context(), args)
	if err != nil {
		return err
	}

	rr := output.NewRiskReport(rep, threshold)
	if err := cmdCtx.Renderer.Risks(rr); err != nil {
		return err
	}

	if rr.Exceeded {
		return exitErrorf("dynamic SQL at or above %s risk", *threshold)
	}
	return nil
}
