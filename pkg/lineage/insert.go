package lineage

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/core"
)

// insertStmt extracts INSERT ... SELECT, VALUES, EXEC and DEFAULT VALUES.
func (r *run) insertStmt(stmt *core.InsertStmt) {
	s := r.batch
	if stmt.With != nil {
		s = r.defineCTEs(stmt.With, s)
	}
	tgt := r.targetOf(stmt.Target)
	targets := r.insertColumns(stmt.Target, stmt.Columns)
	line := stmt.Pos().Line

	switch {
	case stmt.Select != nil:
		r.insertSelect(tgt, targets, r.query(stmt.Select, s), line)

	case stmt.Values != nil:
		if len(targets) == 0 {
			r.gap(line, ReasonUnresolvedTargetColumns, "INSERT VALUES without a column list")
			break
		}
		for i, row := range stmt.Values {
			if len(row) != len(targets) {
				r.gap(line, ReasonColumnCountMismatch,
					fmt.Sprintf("row %d: %d target columns, %d values", i+1, len(targets), len(row)))
			}
		}
		r.literalEdges(KindInsert, tgt, targets, transformValues, line)

	case stmt.Exec != nil:
		if len(targets) == 0 {
			r.gap(line, ReasonUnresolvedTargetColumns, "INSERT EXEC without a column list")
			break
		}
		tag := execTag(stmt.Exec)
		for _, name := range targets {
			r.emit(Edge{
				StatementKind:   KindInsert,
				TargetSchema:    tgt.schema,
				TargetTable:     tgt.table,
				TargetColumn:    name,
				Transformation:  tag,
				IsDynamicSource: true,
				Line:            line,
			})
		}

	case stmt.DefaultValues:
		r.literalEdges(KindInsert, tgt, targets, transformDefaultValues, line)
	}

	if stmt.Output != nil {
		ref := r.plainRef(stmt.Target, "")
		cols, known := r.columnsOf(ref)
		r.output(stmt.Output, &binding{key: r.key(ref.Key()), ref: ref, columns: cols, known: known}, s)
	}
}

// insertColumns returns the explicit column list, or the known columns of
// the target table.
func (r *run) insertColumns(name *core.ObjectName, explicit []*core.ColumnRef) []string {
	if len(explicit) > 0 {
		names := make([]string, len(explicit))
		for i, c := range explicit {
			names[i] = c.Column
		}
		return names
	}
	if name == nil {
		return nil
	}
	cols, ok := r.columnsOf(r.plainRef(name, ""))
	if !ok {
		return nil
	}
	return cols
}

// insertSelect pairs the projection of an INSERT's SELECT with the target
// columns by position.
func (r *run) insertSelect(tgt target, targets []string, cols []column, line int) {
	if hasWildcard(cols) {
		for _, c := range cols {
			if c.wildcard {
				r.emit(r.columnEdge(KindInsert, tgt, wildcardColumn, c))
			}
		}
		r.gap(line, ReasonUnresolvedWildcard, "SELECT * could not be expanded into the target columns")
		return
	}
	if len(targets) == 0 {
		targets, _ = columnNames(cols)
	}
	if len(targets) == 0 {
		r.gap(line, ReasonUnresolvedTargetColumns, "target columns unknown")
		return
	}
	r.pair(targets, cols, line, func(name string, c column) Edge {
		return r.columnEdge(KindInsert, tgt, name, c)
	})
}

// pair emits an edge for each target column and the source column at the
// same position. Unmatched columns on either side are dropped with a gap.
func (r *run) pair(targets []string, cols []column, line int, edge func(string, column) Edge) {
	if len(targets) != len(cols) {
		r.gap(line, ReasonColumnCountMismatch,
			fmt.Sprintf("%d target columns, %d source columns", len(targets), len(cols)))
	}
	for i := 0; i < len(targets) && i < len(cols); i++ {
		r.emit(edge(targets[i], cols[i]))
	}
}

func (r *run) literalEdges(kind StatementKind, tgt target, targets []string, tag string, line int) {
	for _, name := range targets {
		r.emit(Edge{
			StatementKind:   kind,
			TargetSchema:    tgt.schema,
			TargetTable:     tgt.table,
			TargetColumn:    name,
			Transformation:  tag,
			IsLiteralSource: true,
			Line:            line,
		})
	}
}

// output extracts an OUTPUT clause. inserted and deleted read the target
// table. OUTPUT INTO writes to its table; a bare OUTPUT is a result set.
func (r *run) output(out *core.OutputClause, tb *binding, outer *scope) {
	s := outer.child()
	for _, name := range []string{"inserted", "deleted"} {
		pseudo := *tb
		pseudo.key = r.key(name)
		pseudo.ref.Alias = name
		pseudo.hidden = false
		s = s.bind(&pseudo)
	}
	cols := r.projection(out.Columns, s)

	if out.Into == nil {
		r.emitColumns(KindSelect, r.ownerTarget(), cols)
		return
	}
	tgt := r.targetOf(out.Into)
	targets := r.insertColumns(out.Into, out.IntoColumns)
	if len(targets) == 0 {
		targets, _ = columnNames(cols)
	}
	r.pair(targets, cols, out.Pos().Line, func(name string, c column) Edge {
		return r.columnEdge(KindInsert, tgt, name, c)
	})
}

func hasWildcard(cols []column) bool {
	for _, c := range cols {
		if c.wildcard {
			return true
		}
	}
	return false
}

// execTag describes the procedure or string an EXEC runs.
func execTag(exec *core.ExecStmt) string {
	switch {
	case exec.Procedure != nil:
		return "EXEC " + exec.Procedure.String()
	case exec.ProcVariable != "":
		return "EXEC " + exec.ProcVariable
	}
	return "EXEC (...)"
}
