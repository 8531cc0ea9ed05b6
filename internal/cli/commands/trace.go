package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
	"github.com/leapstack-labs/sqllineage/internal/dag"
	"github.com/leapstack-labs/sqllineage/pkg/lineage"
	"github.com/spf13/cobra"
)

// TraceOptions holds options for the trace command.
type TraceOptions struct {
	Downstream bool // Follow dependents instead of sources
}

// TraceOutput is the JSON output for the trace command.
type TraceOutput struct {
	Column    string         `json:"column"`
	Direction string         `json:"direction"`
	Writers   []string       `json:"writers,omitempty"`
	Columns   []TracedColumn `json:"columns"`
}

// TracedColumn is a column reached from the traced column.
type TracedColumn struct {
	Name    string   `json:"name"`
	Writers []string `json:"writers,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand() *cobra.Command {
	opts := &TraceOptions{}
	cmd := &cobra.Command{
		Use:   "trace <schema.table.column> [paths...]",
		Short: "Follow a column through every definition in the project",
		Long: `Follow the lineage of one column across definitions.

All definitions are analyzed and their edges joined into one column graph.
By default the command lists every column the given column is derived from,
directly or through other tables. With --downstream it lists every column
derived from it instead.

Only columns resolved to a table take part. Columns of local temporary
tables and table variables are named <definition>::#t.col, since they do not
outlive the definition that creates them. Names are matched without regard
to case.`,
		Example: `  # Where does the fact total come from?
  sqllineage trace dbo.OrderFacts.total

  # What is affected by a change to sales.Orders.price?
  sqllineage trace sales.Orders.price --downstream`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, args[0], args[1:], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Downstream, "downstream", false, "List the columns derived from the column")

	return cmd
}

func runTrace(cmd *cobra.Command, column string, args []string, opts *TraceOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	rep, err := cmdCtx.Analyze(cmd.Context(), args)
	if err != nil {
		return err
	}

	results := make([]*lineage.Result, 0, len(rep.Definitions))
	for _, def := range rep.Definitions {
		results = append(results, def.Result)
	}
	g := dag.Build(results)
	cmdCtx.Logger.Debug("column graph built",
		slog.Int("columns", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()))

	out, err := buildTraceOutput(g, column, opts.Downstream)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderTraceMarkdown(r, out)
	default:
		renderTraceText(r, out)
	}
	return nil
}

func buildTraceOutput(g *dag.Graph, column string, downstream bool) (*TraceOutput, error) {
	node, ok := g.GetNode(column)
	if !ok {
		return nil, fmt.Errorf("column %q not found in lineage", column)
	}

	out := &TraceOutput{
		Column:    node.Name,
		Direction: "upstream",
		Writers:   node.Writers,
		Columns:   []TracedColumn{},
	}

	ids := g.GetUpstreamNodes(node.ID)
	if downstream {
		out.Direction = "downstream"
		ids = g.GetDownstreamNodes(node.ID)
	}
	for _, id := range ids {
		n, _ := g.GetNode(id)
		out.Columns = append(out.Columns, TracedColumn{Name: n.Name, Writers: n.Writers})
	}
	return out, nil
}

func renderTraceText(r *output.Renderer, out *TraceOutput) {
	styles := r.Styles

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("%s (%s)", out.Column, out.Direction)))
	r.Println("")

	if len(out.Columns) == 0 {
		r.Println(styles.Muted.Render("  No " + out.Direction + " columns"))
		r.Println("")
		return
	}

	for _, c := range out.Columns {
		line := "  " + c.Name
		if len(c.Writers) > 0 {
			line += styles.Muted.Render("  written by "+strings.Join(c.Writers, ", "))
		}
		r.Println(line)
	}
	r.Println("")
}

func renderTraceMarkdown(r *output.Renderer, out *TraceOutput) {
	r.Printf("# %s\n\n", out.Column)
	r.Printf("%d %s column(s)\n\n", len(out.Columns), out.Direction)

	for _, c := range out.Columns {
		if len(c.Writers) > 0 {
			r.Printf("- `%s` (written by %s)\n", c.Name, strings.Join(c.Writers, ", "))
		} else {
			r.Printf("- `%s`\n", c.Name)
		}
	}
	r.Println("")
}
