package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/spf13/cobra"
)

// PatternsOptions holds options for the patterns command.
type PatternsOptions struct {
	MinRisk string // Only list patterns at or above this risk
	Verbose bool   // Show descriptions and examples
}

// NewPatternsCommand creates the patterns command.
func NewPatternsCommand() *cobra.Command {
	opts := &PatternsOptions{}
	cmd := &cobra.Command{
		Use:   "patterns [kind]",
		Short: "List the dynamic SQL patterns that are reported",
		Long: `List the constructs reported as dynamic SQL findings with their kind and
risk level.

Pass a finding kind (e.g. SpExecuteSql) to show only the patterns of that kind.
Use --verbose to see descriptions and examples.`,
		Example: `  # List all patterns
  sqllineage patterns

  # Show the patterns reported as ExecVariable
  sqllineage patterns ExecVariable -V

  # Only patterns that fail the default gate
  sqllineage patterns --min-risk high`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := ""
			if len(args) > 0 {
				kind = args[0]
			}
			return listPatterns(cmd, kind, opts)
		},
	}

	cmd.Flags().StringVar(&opts.MinRisk, "min-risk", "", "Only list patterns at or above this risk")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show descriptions and examples")

	return cmd
}

func listPatterns(cmd *cobra.Command, kind string, opts *PatternsOptions) error {
	r := NewCommandContext(cmd).Renderer

	patterns, err := filterPatterns(lineage.Patterns(), kind, opts.MinRisk)
	if err != nil {
		return err
	}
	if kind != "" && len(patterns) == 0 {
		return fmt.Errorf("finding kind %q not found", kind)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(patterns)
	case output.ModeMarkdown:
		return listPatternsMarkdown(r, patterns, opts.Verbose)
	default:
		return listPatternsText(r, patterns, opts.Verbose)
	}
}

func filterPatterns(patterns []lineage.Pattern, kind, minRisk string) ([]lineage.Pattern, error) {
	floor := lineage.RiskLow
	if minRisk != "" {
		level, err := lineage.ParseRiskLevel(minRisk)
		if err != nil {
			return nil, err
		}
		floor = level
	}

	filtered := make([]lineage.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if kind != "" && !strings.EqualFold(string(p.Kind), kind) {
			continue
		}
		if p.Risk < floor {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

func listPatternsText(r *output.Renderer, patterns []lineage.Pattern, verbose bool) error {
	styles := r.Styles

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Dynamic SQL Patterns (%d)", len(patterns))))
	r.Println("")

	var current *lineage.RiskLevel
	for _, p := range patterns {
		if current == nil || p.Risk != *current {
			risk := p.Risk
			current = &risk
			r.Println(styles.Risk(risk).Render("  " + risk.String()))
		}

		r.Printf("    %s  %s\n", styles.Muted.Render(fmt.Sprintf("%-13s", p.Kind)), p.Construct)
		if verbose {
			r.Println(styles.Muted.Render("        " + p.Description))
			r.Println(styles.Muted.Render("        e.g. " + p.Example))
			r.Println("")
		}
	}

	r.Println("")
	r.Println(styles.Muted.Render("Findings at or above fail_on_risk make 'sqllineage risk' exit non-zero"))
	r.Println("")
	return nil
}

func listPatternsMarkdown(r *output.Renderer, patterns []lineage.Pattern, verbose bool) error {
	r.Println("# Dynamic SQL Patterns")
	r.Println("")

	var current *lineage.RiskLevel
	for _, p := range patterns {
		if current == nil || p.Risk != *current {
			risk := p.Risk
			current = &risk
			r.Println("## " + risk.String())
			r.Println("")
		}

		r.Printf("- **%s** - %s\n", p.Kind, p.Construct)
		if verbose {
			r.Println("  " + p.Description)
			r.Println("")
			r.Println("  ```sql")
			r.Println("  " + p.Example)
			r.Println("  ```")
		}
	}

	r.Println("")
	return nil
}
