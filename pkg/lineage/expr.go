package lineage

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
)

// sources is what a scalar expression reads: every column reference in
// order of appearance, duplicates included, and the transformation tag.
// The tag is empty for a bare column reference.
type sources struct {
	columns []SourceColumnRef
	tag     string
}

// expr extracts the source columns of e under scope s.
//
//nolint:gocyclo // one case per expression type
func (r *run) expr(e core.Expr, s *scope) sources {
	switch e := e.(type) {
	case nil:
		return sources{tag: transformExpression}

	case *core.ColumnRef:
		return sources{columns: []SourceColumnRef{r.resolveColumn(e, s)}}

	case *core.Literal:
		return sources{tag: transformLiteral}

	case *core.Variable:
		return sources{tag: transformVariable}

	case *core.FuncCall:
		return sources{columns: r.funcColumns(e, s), tag: funcTag(e)}

	case *core.CaseExpr:
		var cols []SourceColumnRef
		if e.Operand != nil {
			cols = append(cols, r.expr(e.Operand, s).columns...)
		}
		for _, w := range e.Whens {
			cols = append(cols, r.expr(w.Condition, s).columns...)
			cols = append(cols, r.expr(w.Result, s).columns...)
		}
		if e.Else != nil {
			cols = append(cols, r.expr(e.Else, s).columns...)
		}
		return sources{columns: cols, tag: transformCase}

	case *core.CastExpr:
		return sources{columns: r.expr(e.Expr, s).columns, tag: transformCast}

	case *core.ConvertExpr:
		// The type and style arguments shape the value but are not its source.
		return sources{columns: r.expr(e.Expr, s).columns, tag: transformCast}

	case *core.CoalesceExpr:
		return sources{columns: r.exprColumns(e.Args, s), tag: "COALESCE(...)"}

	case *core.NullIfExpr:
		return sources{columns: r.exprColumns([]core.Expr{e.Left, e.Right}, s), tag: "NULLIF(...)"}

	case *core.IifExpr:
		return sources{columns: r.exprColumns([]core.Expr{e.Cond, e.Then, e.Else}, s), tag: "IIF(...)"}

	case *core.BinaryExpr:
		left, right := r.expr(e.Left, s), r.expr(e.Right, s)
		return sources{
			columns: append(left.columns, right.columns...),
			tag:     composeTag(left.tag, e.Op.String(), right.tag),
		}

	case *core.UnaryExpr:
		inner := r.expr(e.Expr, s)
		if !meaningful(inner.tag) {
			inner.tag = transformExpression
		}
		return inner

	case *core.ParenExpr:
		return r.expr(e.Expr, s)

	case *core.CollateExpr:
		return sources{columns: r.expr(e.Expr, s).columns, tag: transformCollate}

	case *core.SubqueryExpr:
		return sources{columns: projectedColumns(r.query(e.Select, s)), tag: transformSubquery}

	case *core.ExistsExpr:
		return sources{columns: projectedColumns(r.query(e.Select, s)), tag: transformExists}

	case *core.InExpr:
		cols := r.expr(e.Expr, s).columns
		cols = append(cols, r.exprColumns(e.Values, s)...)
		if e.Query != nil {
			cols = append(cols, projectedColumns(r.query(e.Query, s))...)
		}
		return sources{columns: cols, tag: transformExpression}

	case *core.BetweenExpr:
		return sources{columns: r.exprColumns([]core.Expr{e.Expr, e.Low, e.High}, s), tag: transformExpression}

	case *core.LikeExpr:
		return sources{columns: r.exprColumns([]core.Expr{e.Expr, e.Pattern, e.Escape}, s), tag: transformExpression}

	case *core.IsNullExpr:
		return sources{columns: r.expr(e.Expr, s).columns, tag: transformExpression}

	case *core.StarExpr:
		return sources{tag: transformExpression}

	default:
		// Unknown expression types still give up every column they contain.
		var cols []SourceColumnRef
		core.Walk(e, func(n any) bool {
			if ref, ok := n.(*core.ColumnRef); ok {
				cols = append(cols, r.resolveColumn(ref, s))
			}
			return true
		})
		return sources{columns: cols, tag: transformExpression}
	}
}

// exprColumns concatenates the columns of exprs, skipping nil entries.
func (r *run) exprColumns(exprs []core.Expr, s *scope) []SourceColumnRef {
	var cols []SourceColumnRef
	for _, e := range exprs {
		if e != nil {
			cols = append(cols, r.expr(e, s).columns...)
		}
	}
	return cols
}

// funcColumns collects arguments, WITHIN GROUP ordering and the window
// partitioning and ordering of a function call.
func (r *run) funcColumns(fn *core.FuncCall, s *scope) []SourceColumnRef {
	cols := r.exprColumns(fn.Args, s)
	for _, o := range fn.WithinGroup {
		cols = append(cols, r.expr(o.Expr, s).columns...)
	}
	if fn.Over != nil {
		cols = append(cols, r.exprColumns(fn.Over.PartitionBy, s)...)
		for _, o := range fn.Over.OrderBy {
			cols = append(cols, r.expr(o.Expr, s).columns...)
		}
	}
	return cols
}

// resolveColumn binds a column reference to a table in scope. Qualified
// references use the innermost binding of the qualifier. Unqualified ones
// need exactly one candidate table; more than one is reported as ambiguous.
func (r *run) resolveColumn(ref *core.ColumnRef, s *scope) SourceColumnRef {
	out := SourceColumnRef{ColumnName: ref.Column, TableAlias: ref.Table}
	if ref.Table != "" {
		if b := s.lookup(r.key(ref.Table)); b != nil {
			return b.source(ref.Column)
		}
		r.log.Debug("unresolved qualifier",
			slog.String("qualifier", ref.Table),
			slog.String("column", ref.Column),
			slog.Int("line", ref.Pos().Line))
		return out
	}

	candidates := s.candidates(ref.Column, r.fold)
	switch len(candidates) {
	case 0:
		return out
	case 1:
		return candidates[0].source(ref.Column)
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.ref.Key()
	}
	r.log.Debug("ambiguous column",
		slog.String("column", ref.Column),
		slog.String("candidates", strings.Join(names, ", ")),
		slog.Int("line", ref.Pos().Line))
	out.Ambiguous = true
	return out
}

func funcTag(fn *core.FuncCall) string {
	if strings.HasPrefix(fn.Name, transformNextValue) {
		return transformNextValue
	}
	return strings.ToUpper(fn.Name) + "(...)"
}

// meaningful reports whether a tag names a transformation worth keeping
// when composed into a larger expression.
func meaningful(tag string) bool {
	switch tag {
	case "", transformLiteral, transformVariable, transformExpression:
		return false
	}
	return true
}

// composeTag combines the tags of the operands of a binary operator.
func composeTag(left, op, right string) string {
	l, r := meaningful(left), meaningful(right)
	switch {
	case l && r:
		return left + " " + op + " " + right
	case l:
		return left
	case r:
		return right
	}
	return transformExpression
}

// projectedColumns flattens the sources of a subquery's projection.
func projectedColumns(cols []column) []SourceColumnRef {
	var out []SourceColumnRef
	for _, c := range cols {
		out = append(out, c.sources.columns...)
	}
	return out
}
