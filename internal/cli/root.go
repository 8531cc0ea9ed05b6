// Package cli provides the command-line interface for sqllineage.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqllineage/internal/cli/commands"
	"github.com/leapstack-labs/sqllineage/internal/cli/config"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sqllineage",
		Short: "sqllineage - Column-level lineage for T-SQL",
		Long: `sqllineage extracts column-level lineage from T-SQL procedures, views,
functions and scripts.

It reports which target columns are derived from which source columns, through
SELECT, INSERT, UPDATE, MERGE and DELETE, and flags dynamic SQL whose data flow
cannot be determined statically.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger := config.NewLogger(cmd.ErrOrStderr(), cfg)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.WithConfig(ctx, cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cfg.ConfigFile != "" {
				logger.Info("using config file", slog.String("path", cfg.ConfigFile))
			}
			logger.Debug("configuration loaded",
				slog.String("project_root", cfg.ProjectRoot),
				slog.String("default_schema", cfg.DefaultSchema),
				slog.Int("workers", cfg.Workers))

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Column-level lineage for T-SQL
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./sqllineage.yaml)")
	flags.String("project-dir", "", "Project root directory")
	flags.String("schema", "", "Default schema for unqualified table names (default dbo)")
	flags.String("schema-file", "", "YAML file with table columns, used to expand SELECT *")
	flags.Int("workers", 0, "Number of definitions analyzed in parallel")
	flags.StringSlice("ext", nil, "File extensions treated as definitions (default .sql)")
	flags.StringSlice("exclude", nil, "Glob patterns of files and directories to skip")
	flags.String("fail-on-risk", "", "Lowest risk that fails the risk command (low|medium|high|critical|none)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("fail-on-risk", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"low", "medium", "high", "critical", "none"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{
		Version: Version,
		Commit:  GitCommit,
		Date:    BuildDate,
	}))
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewRiskCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewTraceCommand())
	rootCmd.AddCommand(commands.NewPatternsCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqllineage.

To load completions:

Bash:
  $ source <(sqllineage completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ sqllineage completion bash > /etc/bash_completion.d/sqllineage
  # macOS:
  $ sqllineage completion bash > $(brew --prefix)/etc/bash_completion.d/sqllineage

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ sqllineage completion zsh > "${fpath[1]}/_sqllineage"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ sqllineage completion fish | source

  # To load completions for each session, execute once:
  $ sqllineage completion fish > ~/.config/fish/completions/sqllineage.fish

PowerShell:
  PS> sqllineage completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> sqllineage completion powershell > sqllineage.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
