package lineage

import (
	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// updateStmt emits one edge per SET assignment to a column.
func (r *run) updateStmt(stmt *core.UpdateStmt) {
	outer := r.batch
	if stmt.With != nil {
		outer = r.defineCTEs(stmt.With, outer)
	}
	s, tb := r.bindTarget(stmt.Target, stmt.From, outer)
	tgt := r.bindingTarget(tb)

	for _, set := range stmt.Sets {
		if e, ok := r.assignEdge(KindUpdate, tgt, tb, set, s); ok {
			r.emit(e)
		}
	}
	if stmt.Output != nil {
		r.output(stmt.Output, tb, s)
	}
}

// assignEdge builds the edge of one SET item. A compound assignment also
// reads the column it writes.
func (r *run) assignEdge(kind StatementKind, tgt target, tb *binding, set *core.SetClause, s *scope) (Edge, bool) {
	if set.Column == nil {
		return Edge{}, false
	}
	src := r.expr(set.Value, s)
	op := token.EQ
	if token.IsCompoundAssign(set.Op) {
		op = set.Op
		tag := src.tag
		if !meaningful(tag) {
			tag = transformExpression
		}
		src = sources{
			columns: append([]SourceColumnRef{tb.source(set.Column.Column)}, src.columns...),
			tag:     op.String() + " " + tag,
		}
	}
	return Edge{
		StatementKind:      kind,
		TargetSchema:       tgt.schema,
		TargetTable:        tgt.table,
		TargetColumn:       set.Column.Column,
		SourceColumns:      distinct(r.fold, src.columns),
		Transformation:     src.tag,
		AssignmentOperator: op.String(),
		Line:               set.Pos().Line,
	}, true
}
