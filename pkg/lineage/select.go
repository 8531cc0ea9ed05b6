package lineage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
)

// column is the lineage of one projected column.
type column struct {
	name      string
	explicit  bool // named by an alias
	sources   sources
	wildcard  bool
	qualifier string
	line      int
}

// selectStmt extracts a statement-level SELECT. Its columns flow into the
// INTO table, or into the result set of the enclosing object.
func (r *run) selectStmt(stmt *core.SelectStmt) {
	cols := r.query(stmt, r.batch)

	tgt := r.ownerTarget()
	if stmt.Body != nil && stmt.Body.Left != nil && stmt.Body.Left.Into != nil {
		into := stmt.Body.Left.Into
		tgt = r.targetOf(into)
		if names, known := columnNames(cols); known {
			r.remember(into, names)
		}
	}
	r.emitColumns(KindSelect, tgt, cols)
}

// viewStmt extracts the SELECT of a view into the view's columns.
func (r *run) viewStmt(stmt *core.CreateViewStmt) {
	cols := r.query(stmt.Select, r.batch)
	r.emitColumns(KindSelect, r.targetOf(stmt.Name), renamed(cols, stmt.Columns))
}

// returnStmt extracts RETURN (SELECT ...) of an inline table-valued function.
func (r *run) returnStmt(stmt *core.ReturnStmt) {
	r.emitColumns(KindSelect, r.ownerTarget(), r.query(stmt.Select, r.batch))
}

// cursorStmt extracts the SELECT of a cursor declaration into the cursor.
func (r *run) cursorStmt(stmt *core.DeclareCursorStmt) {
	r.emitColumns(KindSelect, target{table: stmt.Name}, r.query(stmt.Select, r.batch))
}

// query returns the projected columns of stmt. CTEs it defines become
// visible to the rest of the batch and emit edges into the CTE.
func (r *run) query(stmt *core.SelectStmt, outer *scope) []column {
	if stmt == nil {
		return nil
	}
	s := outer
	if stmt.With != nil {
		s = r.defineCTEs(stmt.With, s)
	}
	return r.body(stmt.Body, s)
}

// defineCTEs extracts each CTE in order. A CTE is defined before its body is
// extracted so that recursive references resolve to it.
func (r *run) defineCTEs(with *core.WithClause, s *scope) *scope {
	for _, cte := range with.CTEs {
		def := &cteDef{key: r.key(cte.Name), name: cte.Name, columns: cte.Columns, known: len(cte.Columns) > 0}
		cols := r.query(cte.Select, s.defineCTE(def))
		if !def.known {
			names, known := columnNames(cols)
			def = &cteDef{key: def.key, name: def.name, columns: names, known: known}
		}
		s = s.defineCTE(def)
		r.batch = r.batch.defineCTE(def)
		r.emitColumns(KindSelect, target{table: cte.Name}, renamed(cols, cte.Columns))
	}
	return s
}

// body merges set operation branches position by position into the columns
// of the leftmost branch. EXCEPT contributes no values.
func (r *run) body(body *core.SelectBody, s *scope) []column {
	if body == nil || body.Left == nil {
		return nil
	}
	cols := r.selectCore(body.Left, s)
	if body.Right == nil {
		return cols
	}

	right := r.body(body.Right, s)
	if body.Op == core.SetOpExcept {
		return cols
	}
	tag := string(body.Op)
	if body.All {
		tag += " ALL"
	}
	for i := range cols {
		if i >= len(right) || cols[i].wildcard || right[i].wildcard {
			continue
		}
		cols[i].sources.columns = append(cols[i].sources.columns, right[i].sources.columns...)
		if cols[i].sources.tag == "" {
			cols[i].sources.tag = tag
		}
	}
	return cols
}

func (r *run) selectCore(sc *core.SelectCore, outer *scope) []column {
	return r.projection(sc.Columns, r.bindFrom(sc.From, outer))
}

// projection extracts a select list left to right. Variable assignments
// produce no columns.
func (r *run) projection(items []*core.SelectItem, s *scope) []column {
	var cols []column
	for i, item := range items {
		line := item.Pos().Line
		switch {
		case item.Variable != "":
			continue
		case item.Star:
			cols = append(cols, r.wildcard(s, "", line)...)
		case item.TableStar != "":
			cols = append(cols, r.wildcard(s, item.TableStar, line)...)
		default:
			c := column{name: item.Alias, explicit: item.Alias != "", sources: r.expr(item.Expr, s), line: line}
			if !c.explicit {
				c.name = deriveName(item.Expr, i+1)
			}
			cols = append(cols, c)
		}
	}
	return r.uniqueNames(cols)
}

// wildcard expands * or qualifier.* when the columns of every table it
// covers are known, and returns a single wildcard column otherwise.
func (r *run) wildcard(s *scope, qualifier string, line int) []column {
	tables := s.tables
	if qualifier != "" {
		tables = nil
		if i := strings.LastIndex(qualifier, "."); i >= 0 {
			qualifier = qualifier[i+1:]
		}
		if b := s.lookup(r.key(qualifier)); b != nil {
			tables = []*binding{b}
		}
	}

	expandable := len(tables) > 0
	for _, t := range tables {
		if !t.known {
			expandable = false
		}
	}
	if !expandable {
		r.log.Debug("wildcard left unexpanded", slog.String("qualifier", qualifier), slog.Int("line", line))
		return []column{{name: wildcardColumn, wildcard: true, qualifier: qualifier, line: line}}
	}

	var cols []column
	for _, t := range tables {
		for _, name := range t.columns {
			cols = append(cols, column{
				name:    name,
				sources: sources{columns: []SourceColumnRef{t.source(name)}},
				line:    line,
			})
		}
	}
	return cols
}

// uniqueNames gives derived names that collide with an earlier name a
// numeric suffix. Aliases are kept as written.
func (r *run) uniqueNames(cols []column) []column {
	used := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c.explicit {
			used[r.key(c.name)] = true
		}
	}
	for i := range cols {
		c := &cols[i]
		if c.explicit || c.wildcard {
			continue
		}
		base := c.name
		for k := 2; used[r.key(c.name)]; k++ {
			c.name = fmt.Sprintf("%s_%d", base, k)
		}
		used[r.key(c.name)] = true
	}
	return cols
}

// deriveName names an unaliased select item: the column name, the function
// name, case_result, or expr for any other expression. Items with nothing to
// name them by (no expression, NEXT VALUE FOR) get column_<position>.
func deriveName(e core.Expr, position int) string {
	switch e := e.(type) {
	case *core.ColumnRef:
		return e.Column
	case *core.FuncCall:
		if !strings.HasPrefix(e.Name, transformNextValue) {
			return strings.ToLower(e.Name)
		}
	case *core.CaseExpr:
		return "case_result"
	case *core.CoalesceExpr:
		return "coalesce"
	case *core.NullIfExpr:
		return "nullif"
	case *core.IifExpr:
		return "iif"
	case *core.CastExpr:
		return deriveName(e.Expr, position)
	case *core.ConvertExpr:
		return deriveName(e.Expr, position)
	case *core.ParenExpr:
		return deriveName(e.Expr, position)
	case *core.CollateExpr:
		return deriveName(e.Expr, position)
	case nil:
		return fmt.Sprintf("column_%d", position)
	default:
		return "expr"
	}
	return fmt.Sprintf("column_%d", position)
}

// renamed applies an explicit column list by position.
func renamed(cols []column, names []string) []column {
	if len(names) == 0 {
		return cols
	}
	out := make([]column, len(cols))
	copy(out, cols)
	for i := range out {
		if i < len(names) && !out[i].wildcard {
			out[i].name = names[i]
			out[i].explicit = true
		}
	}
	return out
}

// columnNames returns the names of cols. known is false when a wildcard
// could not be expanded or there are no columns.
func columnNames(cols []column) (names []string, known bool) {
	names = make([]string, 0, len(cols))
	for _, c := range cols {
		if c.wildcard {
			return nil, false
		}
		names = append(names, c.name)
	}
	return names, len(names) > 0
}

func (r *run) emitColumns(kind StatementKind, tgt target, cols []column) {
	for _, c := range cols {
		r.emit(r.columnEdge(kind, tgt, c.name, c))
	}
}

// columnEdge builds the edge from c into column name of tgt.
func (r *run) columnEdge(kind StatementKind, tgt target, name string, c column) Edge {
	e := Edge{
		StatementKind: kind,
		TargetSchema:  tgt.schema,
		TargetTable:   tgt.table,
		TargetColumn:  name,
		Line:          c.line,
	}
	if c.wildcard {
		e.TargetColumn = wildcardColumn
		e.IsWildcard = true
		e.WildcardQualifier = c.qualifier
		return e
	}
	e.SourceColumns = distinct(r.fold, c.sources.columns)
	e.Transformation = c.sources.tag
	return e
}
