package lineage

import "github.com/leapstack-labs/sqllineage/pkg/core"

// mergeStmt extracts every WHEN clause of a MERGE against the merged
// bindings of target and source.
func (r *run) mergeStmt(stmt *core.MergeStmt) {
	outer := r.batch
	if stmt.With != nil {
		outer = r.defineCTEs(stmt.With, outer)
	}
	tb := r.tableBinding(stmt.Target, stmt.TargetAlias, outer)
	s := outer.child().bind(tb)
	if stmt.Source != nil {
		s = r.bindTable(stmt.Source, s)
	}
	tgt := r.bindingTarget(tb)

	for _, w := range stmt.Whens {
		cond := conditionType(w)
		switch w.Action {
		case core.MergeUpdate:
			ws := r.whenScope(w, s, outer, tb)
			for _, set := range w.Sets {
				if e, ok := r.assignEdge(KindMerge, tgt, tb, set, ws); ok {
					e.MergeAction = WhenMatchedUpdate
					e.ConditionType = cond
					r.emit(e)
				}
			}

		case core.MergeDelete:
			e := deleteEdge(KindDelete, tgt, w.Pos().Line)
			e.MergeAction = WhenMatchedDelete
			e.ConditionType = cond
			r.emit(e)

		case core.MergeInsert:
			r.mergeInsert(w, tgt, r.whenScope(w, s, outer, tb), cond)
		}
	}

	if stmt.Output != nil {
		r.output(stmt.Output, tb, s)
	}
}

// mergeInsert pairs the insert column list with the VALUES expressions.
func (r *run) mergeInsert(w *core.MergeWhen, tgt target, s *scope, cond string) {
	targets := make([]string, len(w.Columns))
	for i, c := range w.Columns {
		targets[i] = c.Column
	}
	if len(targets) == 0 {
		if cols, ok := r.columnsOf(TableReference{Name: tgt.table, Schema: tgt.schema, Kind: TablePlain}); ok {
			targets = cols
		}
	}
	line := w.Pos().Line

	edge := func(e Edge) Edge {
		e.StatementKind = KindMerge
		e.MergeAction = WhenNotMatchedInsert
		e.ConditionType = cond
		return e
	}

	if w.DefaultValues {
		for _, name := range targets {
			r.emit(edge(Edge{
				TargetSchema:    tgt.schema,
				TargetTable:     tgt.table,
				TargetColumn:    name,
				Transformation:  transformDefaultValues,
				IsLiteralSource: true,
				Line:            line,
			}))
		}
		return
	}
	if len(targets) == 0 {
		r.gap(line, ReasonUnresolvedTargetColumns, "MERGE INSERT without a column list")
		return
	}

	cols := make([]column, len(w.Values))
	for i, v := range w.Values {
		cols[i] = column{sources: r.expr(v, s), line: v.Pos().Line}
	}
	r.pair(targets, cols, line, func(name string, c column) Edge {
		e := edge(r.columnEdge(KindMerge, tgt, name, c))
		if len(c.sources.columns) == 0 && (c.sources.tag == transformLiteral || c.sources.tag == transformVariable) {
			e.IsLiteralSource = true
		}
		return e
	})
}

// whenScope returns the bindings a WHEN clause can see. Rows not matched by
// the source only have the target; rows not matched by the target only have
// the source for unqualified columns.
func (r *run) whenScope(w *core.MergeWhen, s, outer *scope, tb *binding) *scope {
	switch w.Match {
	case core.MergeNotMatchedBySource:
		return outer.child().bind(tb)
	case core.MergeNotMatchedByTarget:
		hidden := *tb
		hidden.hidden = true
		return s.bind(&hidden)
	}
	return s
}

// conditionType classifies the guard of a WHEN clause. An AND guard wins
// over everything else.
func conditionType(w *core.MergeWhen) string {
	switch {
	case w.Condition != nil:
		return ConditionConditional
	case w.DefaultValues:
		return ConditionDefault
	case w.Match == core.MergeNotMatchedBySource:
		return ConditionNotMatchedBySource
	case w.Match == core.MergeNotMatchedByTarget:
		return ConditionNotMatched
	}
	return ConditionMatched
}
