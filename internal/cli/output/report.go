package output

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// Definition is the lineage of one analyzed definition.
type Definition struct {
	Path string `json:"path,omitempty"`
	*lineage.Result
}

// Summary holds totals over all definitions.
type Summary struct {
	Definitions     int                `json:"definitions"`
	Failed          int                `json:"failed"`
	Edges           int                `json:"edges"`
	Findings        int                `json:"findings"`
	Gaps            int                `json:"gaps"`
	DistinctSources int                `json:"distinct_sources"`
	HighestRisk     *lineage.RiskLevel `json:"highest_risk,omitempty"`
}

// Report is the output of the analyze command.
type Report struct {
	Definitions []Definition `json:"definitions"`
	Summary     Summary      `json:"summary"`
}

// NewReport pairs results with the files they came from. paths may be
// shorter than results.
func NewReport(paths []string, results []*lineage.Result) *Report {
	rep := &Report{Definitions: make([]Definition, 0, len(results))}

	var sources []lineage.SourceColumnRef
	for i, res := range results {
		def := Definition{Result: res}
		if i < len(paths) {
			def.Path = paths[i]
		}
		rep.Definitions = append(rep.Definitions, def)

		rep.Summary.Definitions++
		if res.Failed() {
			rep.Summary.Failed++
		}
		rep.Summary.Edges += len(res.Edges)
		rep.Summary.Findings += len(res.Findings)
		rep.Summary.Gaps += len(res.Gaps)
		sources = append(sources, res.DistinctSources()...)

		if res.HasDynamicSQL() {
			level := res.HighestRisk()
			if rep.Summary.HighestRisk == nil || level > *rep.Summary.HighestRisk {
				rep.Summary.HighestRisk = &level
			}
		}
	}
	rep.Summary.DistinctSources = len(lineage.DistinctColumns(sources))
	return rep
}

// RiskFinding is a finding with the definition it was found in.
type RiskFinding struct {
	Definition string `json:"definition"`
	Path       string `json:"path,omitempty"`
	lineage.Finding
}

// RiskReport is the output of the risk command.
type RiskReport struct {
	Findings  []RiskFinding      `json:"findings"`
	Threshold *lineage.RiskLevel `json:"threshold,omitempty"`
	// Exceeded is true when a finding is at or above the threshold.
	Exceeded    bool               `json:"exceeded"`
	HighestRisk *lineage.RiskLevel `json:"highest_risk,omitempty"`
}

// NewRiskReport collects the findings of rep. threshold is nil when the
// gate is off.
func NewRiskReport(rep *Report, threshold *lineage.RiskLevel) *RiskReport {
	rr := &RiskReport{
		Findings:    []RiskFinding{},
		Threshold:   threshold,
		HighestRisk: rep.Summary.HighestRisk,
	}
	for _, def := range rep.Definitions {
		for _, f := range def.Findings {
			rr.Findings = append(rr.Findings, RiskFinding{Definition: def.Name, Path: def.Path, Finding: f})
			if threshold != nil && f.Risk >= *threshold {
				rr.Exceeded = true
			}
		}
	}
	return rr
}

// Sources formats the source columns of an edge. Ambiguous references are
// marked with a question mark.
func Sources(e lineage.Edge) string {
	if len(e.SourceColumns) == 0 {
		return "-"
	}
	parts := make([]string, len(e.SourceColumns))
	for i, src := range e.SourceColumns {
		parts[i] = src.QualifiedName()
		if src.Ambiguous {
			parts[i] += "?"
		}
	}
	return strings.Join(parts, ", ")
}

// Notes summarizes the flags of an edge.
func Notes(e lineage.Edge) string {
	var notes []string
	if e.IsWildcard {
		if e.WildcardQualifier != "" {
			notes = append(notes, "wildcard "+e.WildcardQualifier+".*")
		} else {
			notes = append(notes, "wildcard")
		}
	}
	if e.IsLiteralSource {
		notes = append(notes, "literal")
	}
	if e.IsDynamicSource {
		notes = append(notes, "dynamic")
	}
	if e.IsDelete {
		notes = append(notes, "delete")
	}
	if e.MergeAction != "" {
		notes = append(notes, fmt.Sprintf("%s (%s)", e.MergeAction, e.ConditionType))
	}
	if e.AssignmentOperator != "" && e.AssignmentOperator != "=" {
		notes = append(notes, "op "+e.AssignmentOperator)
	}
	return strings.Join(notes, "; ")
}
