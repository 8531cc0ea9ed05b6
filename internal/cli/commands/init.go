package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	intconfig "github.com/leapstack-labs/sqllineage/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new sqllineage project",
		Long: `Initialize a new sqllineage project with a default configuration.

This creates:
  - sqllineage.yaml configuration file
  - sql/ directory for T-SQL definitions

Use --example to create a working demo project with procedures, a view and a
schema file, including a procedure that runs dynamic SQL.`,
		Example: `  # Initialize in current directory
  sqllineage init

  # Initialize with a working example
  sqllineage init --example

  # Initialize in a new directory
  sqllineage init my-project --example

  # Force overwrite existing config
  sqllineage init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := NewCommandContext(cmd).Renderer
			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example project with procedures, a view and a schema file")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if existing := intconfig.FindConfigFile(dir); existing != "" && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", filepath.Base(existing))
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.Success(f)
	}
	r.Println("")
	r.Header(2, "Definitions")
	for _, f := range groups["definitions"] {
		r.Success(f)
	}

	r.Println("")
	r.Success("sqllineage project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if template == "example" {
		r.Println("  sqllineage analyze   Extract column lineage")
		r.Println("  sqllineage risk      Report dynamic SQL")
		r.Println("  sqllineage doctor    Check lineage coverage")
	} else {
		r.Println("  1. Put procedures, views and functions in sql/")
		r.Println("  2. Set schema_file in sqllineage.yaml to expand SELECT *")
		r.Println("  3. Run 'sqllineage analyze' to extract column lineage")
	}

	return nil
}
