package commands

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/internal/dag"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/spf13/cobra"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [paths...]",
		Short: "Check how much lineage can be extracted from a project",
		Long: `Analyze a project and report how complete its column lineage is.

The doctor command groups the results of an analysis into health checks:
- Parsing: definitions that could not be parsed
- Coverage: coverage gaps, ambiguous columns, unexpanded SELECT * and
  columns derived from themselves across definitions
- Dynamic SQL: findings at or above and below the fail_on_risk threshold
- Setup: configuration and schema file

A health score (0-100) and recommendations are printed after the checks.`,
		Example: `  # Check the project
  sqllineage doctor

  # Output as JSON
  sqllineage doctor -o json`,
		RunE: runDoctor,
	}
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         output.Summary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

// doctorSetup describes the configuration the report was produced with.
type doctorSetup struct {
	ConfigFile string
	SchemaFile string
	Threshold  *lineage.RiskLevel
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	threshold, err := cmdCtx.threshold()
	if err != nil {
		return err
	}

	rep, err := cmdCtx.Analyze(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := buildDoctorOutput(rep, doctorSetup{
		ConfigFile: cmdCtx.Cfg.ConfigFile,
		SchemaFile: cmdCtx.Cfg.SchemaFile,
		Threshold:  threshold,
	})

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

func buildDoctorOutput(rep *output.Report, setup doctorSetup) *DoctorOutput {
	var parse, gaps, ambiguous, wildcards, cycles, gated, ungated, config, schema []string

	results := make([]*lineage.Result, 0, len(rep.Definitions))
	for _, def := range rep.Definitions {
		results = append(results, def.Result)
		name := def.Name
		if name == "" {
			name = def.Path
		}
		for _, pe := range def.ParseErrors {
			parse = append(parse, fmt.Sprintf("%s: %s", name, pe.Error()))
		}
		for _, g := range def.Gaps {
			gaps = append(gaps, fmt.Sprintf("%s:%d: %s", name, g.Line, g.Reason))
		}
		for _, e := range def.Edges {
			for _, src := range e.SourceColumns {
				if src.Ambiguous {
					ambiguous = append(ambiguous, fmt.Sprintf("%s:%d: %s", name, e.Line, src.ColumnName))
				}
			}
			if e.IsWildcard && e.TargetColumn == "*" {
				wildcards = append(wildcards, fmt.Sprintf("%s:%d: %s", name, e.Line, e.Target()))
			}
		}
		for _, f := range def.Findings {
			detail := fmt.Sprintf("%s:%d: %s (%s)", name, f.Line, f.Kind, f.Risk)
			if setup.Threshold != nil && f.Risk >= *setup.Threshold {
				gated = append(gated, detail)
			} else {
				ungated = append(ungated, detail)
			}
		}
	}

	if hasCycle, path := dag.Build(results).HasCycle(); hasCycle {
		cycles = append(cycles, strings.Join(path, " -> "))
	}

	if setup.ConfigFile == "" {
		config = append(config, "no sqllineage.yaml found, using defaults")
	}
	if setup.SchemaFile == "" && len(wildcards) > 0 {
		schema = append(schema, "no schema_file set, SELECT * cannot be expanded")
	}

	checks := []HealthCheck{
		newCheck("LN01", "Definitions parse", "parsing", "error", parse),
		newCheck("LN02", "No coverage gaps", "coverage", "warn", gaps),
		newCheck("LN03", "Column references resolve", "coverage", "warn", ambiguous),
		newCheck("LN04", "Wildcards expanded", "coverage", "warn", wildcards),
		newCheck("LN05", "No circular column lineage", "coverage", "warn", cycles),
		newCheck("DS01", "No dynamic SQL at or above threshold", "dynamic sql", "error", gated),
		newCheck("DS02", "No dynamic SQL below threshold", "dynamic sql", "warn", ungated),
		newCheck("CF01", "Configuration file", "setup", "warn", config),
		newCheck("CF02", "Schema file", "setup", "warn", schema),
	}

	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].Group < checks[j].Group
	})

	issues := 0
	for _, c := range checks {
		issues += c.IssueCount
	}

	return &DoctorOutput{
		Summary:         rep.Summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks, rep.Summary.Definitions),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

func newCheck(id, name, group, failStatus string, details []string) HealthCheck {
	status := "pass"
	if len(details) > 0 {
		status = failStatus
	}
	return HealthCheck{
		RuleID:     id,
		Name:       name,
		Group:      group,
		Status:     status,
		IssueCount: len(details),
		Details:    details,
	}
}

// calculateHealthScore computes a health score from 0-100.
// More definitions means issues have less individual impact.
func calculateHealthScore(checks []HealthCheck, definitionCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if definitionCount > 10 {
		basePenalty = 3.0
	}
	if definitionCount > 50 {
		basePenalty = 2.0
	}
	if definitionCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * basePenalty * 2 // Errors count double
		case "warn":
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	return int(score)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		rec := getRecommendation(check.RuleID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(ruleID string) string {
	switch ruleID {
	case "LN01":
		return "Fix the syntax errors so the definitions can be analyzed"
	case "LN02":
		return "List target columns explicitly in INSERT statements"
	case "LN03":
		return "Qualify columns with a table alias when joining several tables"
	case "LN04", "CF02":
		return "Add a schema_file so SELECT * can be expanded into columns"
	case "LN05":
		return "Check the procedures that write a column back into its own sources"
	case "DS01":
		return "Replace dynamic SQL with static statements or document its data flow"
	case "DS02":
		return "Review low risk dynamic SQL for hidden data flow"
	case "CF01":
		return "Run from a directory with sqllineage.yaml or pass --config"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles

	r.Println("")
	r.Println(styles.Header1.Render("Lineage Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Project Summary"))
	r.Printf("   Definitions: %d | Failed: %d | Edges: %d\n", out.Summary.Definitions, out.Summary.Failed, out.Summary.Edges)
	r.Printf("   Source columns: %d | Findings: %d | Gaps: %d\n", out.Summary.DistinctSources, out.Summary.Findings, out.Summary.Gaps)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# Lineage Health Report")
	r.Println("")

	r.Println("## Project Summary")
	r.Println("")
	r.Printf("- **Definitions**: %d\n", out.Summary.Definitions)
	r.Printf("- **Failed to parse**: %d\n", out.Summary.Failed)
	r.Printf("- **Edges**: %d\n", out.Summary.Edges)
	r.Printf("- **Distinct source columns**: %d\n", out.Summary.DistinctSources)
	r.Printf("- **Findings**: %d\n", out.Summary.Findings)
	r.Printf("- **Coverage gaps**: %d\n", out.Summary.Gaps)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := "PASS"
		switch check.Status {
		case "warn":
			status = "WARN"
		case "error":
			status = "ERROR"
		}

		r.Printf("- **[%s]** %s: %s", status, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Printf("**Health Score**: %d/100\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
