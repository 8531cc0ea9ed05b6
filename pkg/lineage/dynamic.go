package lineage

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
)

// dynamicProcedures are the system procedures that run SQL text or a
// prepared handle. Keys are lower case.
var dynamicProcedures = map[string]struct {
	kind FindingKind
	risk RiskLevel
}{
	"sp_executesql": {FindingSpExecuteSQL, RiskHigh},
	"sp_execute":    {FindingSpExecute, RiskMedium},
	"sp_prepexec":   {FindingSpExecute, RiskMedium},
}

// suspiciousNames mark a variable passed to a procedure as likely SQL text.
var suspiciousNames = []string{"sql", "query", "cmd"}

// detect records a finding for every construct that executes SQL the
// extractor cannot see. Each statement is walked once; statements nested in
// blocks and bodies are walked on their own.
func (r *run) detect(stmts []*stmtInfo) {
	indexed := make(map[core.Stmt]bool, len(stmts))
	for _, info := range stmts {
		indexed[info.stmt] = true
	}

	for _, info := range stmts {
		r.cur = info
		core.Walk(info.stmt, func(n any) bool {
			if st, ok := n.(core.Stmt); ok && st != info.stmt && indexed[st] {
				return false
			}
			switch n := n.(type) {
			case *core.InsertStmt:
				if n.Exec != nil && staticExec(n.Exec) {
					r.finding(FindingInsertExec, RiskLow, n.NodeInfo)
				}
			case *core.ExecStmt:
				r.classifyExec(n)
			case *core.OpenRowsetTable:
				r.finding(FindingOpenQuery, RiskCritical, n.NodeInfo)
			}
			return true
		})
	}

	slices.SortStableFunc(r.result.Findings, func(a, b Finding) int {
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return a.Column - b.Column
	})
}

// classifyExec records at most one finding for an EXEC.
func (r *run) classifyExec(exec *core.ExecStmt) {
	switch {
	case exec.AtServer != "":
		r.finding(FindingOpenQuery, RiskCritical, exec.NodeInfo)
		return
	case exec.DynamicSQL != nil:
		r.finding(FindingExecString, RiskHigh, exec.NodeInfo)
		return
	case exec.ProcVariable != "":
		r.finding(FindingExecVariable, RiskHigh, exec.NodeInfo)
		return
	case exec.Procedure == nil:
		return
	}

	if p, ok := dynamicProcedures[strings.ToLower(exec.Procedure.Name)]; ok {
		r.finding(p.kind, p.risk, exec.NodeInfo)
		return
	}
	for _, param := range exec.Params {
		if v, ok := param.Value.(*core.Variable); ok && suspicious(v.Name) {
			r.finding(FindingExecVariable, RiskMedium, exec.NodeInfo)
			return
		}
	}
}

// staticExec reports whether an EXEC calls a named procedure that does not
// itself run dynamic SQL.
func staticExec(exec *core.ExecStmt) bool {
	if exec.Procedure == nil || exec.AtServer != "" {
		return false
	}
	_, dynamic := dynamicProcedures[strings.ToLower(exec.Procedure.Name)]
	return !dynamic
}

func suspicious(name string) bool {
	name = strings.ToLower(name)
	for _, s := range suspiciousNames {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func (r *run) finding(kind FindingKind, risk RiskLevel, node core.NodeInfo) {
	r.result.Findings = append(r.result.Findings, Finding{
		Kind:           kind,
		Pattern:        pattern(node.Span.Text(r.src)),
		Line:           node.Span.Start.Line,
		Column:         node.Span.Start.Column,
		Risk:           risk,
		StatementIndex: r.cur.index,
	})
}

// pattern collapses whitespace and shortens long statement text.
func pattern(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxPatternLength {
		return text
	}
	return string(runes[:maxPatternLength]) + "..."
}

// Pattern documents one construct the detector reports.
type Pattern struct {
	Kind        FindingKind `json:"kind"`
	Risk        RiskLevel   `json:"risk"`
	Construct   string      `json:"construct"`
	Description string      `json:"description"`
	Example     string      `json:"example"`
}

// Patterns lists the constructs reported as findings, ordered by risk from
// highest to lowest.
func Patterns() []Pattern {
	return []Pattern{
		{
			Kind: FindingOpenQuery, Risk: RiskCritical,
			Construct:   "OPENQUERY / OPENROWSET / OPENDATASOURCE",
			Description: "Reads from a remote source through a query string.",
			Example:     "SELECT a FROM OPENQUERY(LinkedSrv, 'SELECT a FROM t') q",
		},
		{
			Kind: FindingOpenQuery, Risk: RiskCritical,
			Construct:   "EXEC (...) AT server",
			Description: "Runs SQL text on a linked server.",
			Example:     "EXEC ('SELECT 1') AT LinkedSrv",
		},
		{
			Kind: FindingExecString, Risk: RiskHigh,
			Construct:   "EXEC (string)",
			Description: "Runs a string literal, variable or concatenation as SQL.",
			Example:     "EXEC ('SELECT * FROM ' + @table)",
		},
		{
			Kind: FindingExecVariable, Risk: RiskHigh,
			Construct:   "EXEC @procedure",
			Description: "Calls a procedure whose name is held in a variable.",
			Example:     "EXEC @proc",
		},
		{
			Kind: FindingSpExecuteSQL, Risk: RiskHigh,
			Construct:   "sp_executesql",
			Description: "Runs parameterized SQL text.",
			Example:     "EXEC sp_executesql @sql",
		},
		{
			Kind: FindingSpExecute, Risk: RiskMedium,
			Construct:   "sp_execute / sp_prepexec",
			Description: "Runs a prepared statement handle.",
			Example:     "EXEC sp_execute 1, 2",
		},
		{
			Kind: FindingExecVariable, Risk: RiskMedium,
			Construct:   "EXEC proc @sql",
			Description: "Passes a variable named like SQL text (sql, query, cmd) to a procedure.",
			Example:     "EXEC dbo.run_batch @text = @myQuery",
		},
		{
			Kind: FindingInsertExec, Risk: RiskLow,
			Construct:   "INSERT ... EXEC",
			Description: "Inserts the result set of a procedure whose columns are not visible.",
			Example:     "INSERT INTO #t EXEC dbo.p",
		},
	}
}
