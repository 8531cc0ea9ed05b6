package lineage

import "github.com/leapstack-labs/sqllineage/pkg/core"

// deleteStmt emits a single row-removal edge for the target.
func (r *run) deleteStmt(stmt *core.DeleteStmt) {
	outer := r.batch
	if stmt.With != nil {
		outer = r.defineCTEs(stmt.With, outer)
	}
	s, tb := r.bindTarget(stmt.Target, stmt.From, outer)
	r.emit(deleteEdge(KindDelete, r.bindingTarget(tb), stmt.Pos().Line))
	if stmt.Output != nil {
		r.output(stmt.Output, tb, s)
	}
}

func (r *run) truncateStmt(stmt *core.TruncateStmt) {
	e := deleteEdge(KindDelete, r.targetOf(stmt.Table), stmt.Pos().Line)
	e.Transformation = transformTruncate
	r.emit(e)
}

func deleteEdge(kind StatementKind, tgt target, line int) Edge {
	return Edge{
		StatementKind: kind,
		TargetSchema:  tgt.schema,
		TargetTable:   tgt.table,
		TargetColumn:  wildcardColumn,
		IsDelete:      true,
		Line:          line,
	}
}
