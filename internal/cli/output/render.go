package output

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// Analysis writes a lineage report in the effective mode.
func (r *Renderer) Analysis(rep *Report) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(rep)
	case ModeMarkdown:
		r.analysisMarkdown(rep)
	default:
		r.analysisText(rep)
	}
	return nil
}

// Risks writes a risk report in the effective mode.
func (r *Renderer) Risks(rr *RiskReport) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(rr)
	case ModeMarkdown:
		r.Println(FormatHeader(1, "Dynamic SQL"))
		r.Println("")
		if len(rr.Findings) == 0 {
			r.Println("No dynamic SQL found.")
			return nil
		}
		r.riskTable(rr, false).RenderMarkdown()
		r.Println("")
		r.Println(r.riskVerdict(rr))
	default:
		r.Header(1, "Dynamic SQL")
		if len(rr.Findings) == 0 {
			r.Success("No dynamic SQL found")
			return nil
		}
		r.riskTable(rr, true).Render()
		if rr.Exceeded {
			r.Println(r.Styles.Error.Render(r.riskVerdict(rr)))
		} else {
			r.Muted(r.riskVerdict(rr))
		}
	}
	return nil
}

func (r *Renderer) analysisText(rep *Report) {
	for _, def := range rep.Definitions {
		title := def.Name
		if title == "" {
			title = def.Path
		}
		r.Header(1, title)
		if def.Path != "" && def.Path != title {
			r.Muted(def.Path)
		}

		for _, pe := range def.ParseErrors {
			r.Println(r.Styles.Error.Render("✗ " + pe.Error()))
		}

		if len(def.Edges) > 0 {
			r.edgeTable(def.Edges).Render()
		} else if !def.Failed() {
			r.Muted("no column lineage")
		}
		if len(def.Findings) > 0 {
			r.findingTable(def.Findings, true).Render()
		}
		if len(def.Gaps) > 0 {
			r.gapTable(def.Gaps).Render()
		}
		r.Println("")
	}
	r.Muted(summaryLine(rep.Summary))
}

func (r *Renderer) analysisMarkdown(rep *Report) {
	r.Println(FormatHeader(1, "Column Lineage"))
	r.Println("")

	for _, def := range rep.Definitions {
		title := def.Name
		if title == "" {
			title = def.Path
		}
		r.Println(FormatHeader(2, title))
		r.Println("")
		if def.Path != "" && def.Path != title {
			r.Println(FormatKeyValue("File", def.Path))
			r.Println("")
		}

		if len(def.ParseErrors) > 0 {
			r.Println(FormatHeader(3, "Parse errors"))
			r.Println("")
			for _, pe := range def.ParseErrors {
				r.Printf("- %s\n", pe.Error())
			}
			r.Println("")
		}
		if len(def.Edges) > 0 {
			r.edgeTable(def.Edges).RenderMarkdown()
			r.Println("")
		}
		if len(def.Findings) > 0 {
			r.Println(FormatHeader(3, "Dynamic SQL"))
			r.Println("")
			r.findingTable(def.Findings, false).RenderMarkdown()
			r.Println("")
		}
		if len(def.Gaps) > 0 {
			r.Println(FormatHeader(3, "Coverage gaps"))
			r.Println("")
			r.gapTable(def.Gaps).RenderMarkdown()
			r.Println("")
		}
	}
	r.Println(FormatKeyValue("Summary", summaryLine(rep.Summary)))
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	return t
}

func (r *Renderer) edgeTable(edges []lineage.Edge) table.Writer {
	t := r.newTable()
	t.AppendHeader(table.Row{"#", "Kind", "Target", "Sources", "Transformation", "Notes", "Line"})
	for _, e := range edges {
		t.AppendRow(table.Row{
			e.StatementIndex,
			string(e.StatementKind),
			e.Target(),
			Sources(e),
			e.Transformation,
			Notes(e),
			e.Line,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 60},
		{Number: 5, WidthMax: 40},
	})
	return t
}

func (r *Renderer) findingTable(findings []lineage.Finding, styled bool) table.Writer {
	t := r.newTable()
	t.AppendHeader(table.Row{"Risk", "Kind", "Position", "Pattern"})
	for _, f := range findings {
		t.AppendRow(table.Row{r.risk(f.Risk, styled), string(f.Kind), position(f), f.Pattern})
	}
	return t
}

func (r *Renderer) riskTable(rr *RiskReport, styled bool) table.Writer {
	t := r.newTable()
	t.AppendHeader(table.Row{"Definition", "Risk", "Kind", "Position", "Pattern"})
	for _, f := range rr.Findings {
		t.AppendRow(table.Row{f.Definition, r.risk(f.Risk, styled), string(f.Kind), position(f.Finding), f.Pattern})
	}
	return t
}

func (r *Renderer) gapTable(gaps []lineage.CoverageGap) table.Writer {
	t := r.newTable()
	t.AppendHeader(table.Row{"#", "Line", "Reason", "Detail"})
	for _, g := range gaps {
		t.AppendRow(table.Row{g.StatementIndex, g.Line, g.Reason, g.Detail})
	}
	return t
}

func (r *Renderer) risk(level lineage.RiskLevel, styled bool) string {
	if !styled {
		return level.String()
	}
	return r.Styles.Risk(level).Render(level.String())
}

func (r *Renderer) riskVerdict(rr *RiskReport) string {
	msg := fmt.Sprintf("%d finding(s)", len(rr.Findings))
	if rr.HighestRisk != nil {
		msg += ", highest risk " + rr.HighestRisk.String()
	}
	if rr.Threshold != nil {
		if rr.Exceeded {
			msg += ", at or above threshold " + rr.Threshold.String()
		} else {
			msg += ", below threshold " + rr.Threshold.String()
		}
	}
	return msg
}

func position(f lineage.Finding) string {
	return strconv.Itoa(f.Line) + ":" + strconv.Itoa(f.Column)
}

func summaryLine(s Summary) string {
	line := fmt.Sprintf("%d definition(s), %d edge(s), %d distinct source column(s), %d finding(s), %d gap(s)",
		s.Definitions, s.Edges, s.DistinctSources, s.Findings, s.Gaps)
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed to parse", s.Failed)
	}
	return line
}
