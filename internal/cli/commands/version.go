package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display sqllineage version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "sqllineage v%s\n", info.Version)
			_, _ = fmt.Fprintln(w, "Column-level lineage for T-SQL")
			if info.Commit != "" && info.Commit != "unknown" {
				_, _ = fmt.Fprintf(w, "commit: %s\n", info.Commit)
			}
			if info.Date != "" && info.Date != "unknown" {
				_, _ = fmt.Fprintf(w, "built:  %s\n", info.Date)
			}
		},
	}
}
