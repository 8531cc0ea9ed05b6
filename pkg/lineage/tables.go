package lineage

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
)

// bindFrom binds the table sources of from into a new level below outer.
// Sources are bound left to right, so APPLY arguments and derived tables
// see the tables before them.
func (r *run) bindFrom(from *core.FromClause, outer *scope) *scope {
	s := outer.child()
	for _, t := range from.Tables() {
		s = r.bindTable(t, s)
	}
	return s
}

// bindTable binds one table source into the level s. Derived tables are
// extracted on the way and emit edges targeting their alias.
func (r *run) bindTable(ref core.TableRef, s *scope) *scope {
	switch t := ref.(type) {
	case *core.TableName:
		return s.bind(r.tableBinding(t.Name, t.Alias, s))

	case *core.DerivedTable:
		cols := r.query(t.Select, s)
		r.emitColumns(KindSelect, target{table: t.Alias}, renamed(cols, t.Columns))
		names, known := columnNames(cols)
		if len(t.Columns) > 0 {
			names, known = t.Columns, true
		}
		return s.bind(r.derived(derivedTableName, t.Alias, t.Pos().Line, names, known))

	case *core.ValuesTable:
		return s.bind(r.derived(valuesTableName, t.Alias, t.Pos().Line, t.Columns, len(t.Columns) > 0))

	case *core.FuncTable:
		if t.Source != nil {
			r.bindTable(t.Source, s.child())
			return s.bind(r.derived(pivotTableName, t.Alias, t.Pos().Line, t.Columns, len(t.Columns) > 0))
		}
		b := r.derived(t.Func.Name, t.Alias, t.Pos().Line, t.Columns, len(t.Columns) > 0)
		b.ref.Schema = t.Func.Schema
		return s.bind(b)

	case *core.OpenRowsetTable:
		b := r.derived("("+strings.ToLower(t.Kind)+")", t.Alias, t.Pos().Line, nil, false)
		if t.Object != nil {
			b.ref.Name = t.Object.Name
			b.ref.Schema = t.Object.Schema
			b.ref.Database = t.Object.Database
			b.ref.Server = t.Kind
		}
		if b.ref.Alias == "" {
			b.key = r.key(b.ref.Name)
		}
		return s.bind(b)

	case *core.JoinedTable:
		for _, inner := range t.From.Tables() {
			s = r.bindTable(inner, s)
		}
	}
	return s
}

// tableBinding binds a named table: a CTE when one is visible under the
// name, a trigger pseudo table, or a plain table.
func (r *run) tableBinding(name *core.ObjectName, alias string, s *scope) *binding {
	if name.Server == "" && name.Database == "" && name.Schema == "" {
		if def := s.cte(r.key(name.Name)); def != nil {
			ref := TableReference{Name: def.name, Alias: alias, Kind: TableCTE, Line: name.Pos().Line}
			return &binding{key: r.key(ref.Key()), ref: ref, columns: def.columns, known: def.known}
		}
		if b := r.pseudoTable(name, alias); b != nil {
			return b
		}
	}
	ref := r.plainRef(name, alias)
	cols, known := r.columnsOf(ref)
	return &binding{key: r.key(ref.Key()), ref: ref, columns: cols, known: known}
}

// pseudoTable binds inserted and deleted inside a trigger body to the table
// the trigger is defined on.
func (r *run) pseudoTable(name *core.ObjectName, alias string) *binding {
	if r.cur == nil || r.cur.owner == nil || r.cur.owner.trigger == nil {
		return nil
	}
	switch r.key(name.Name) {
	case "inserted", "deleted":
	default:
		return nil
	}
	if alias == "" {
		alias = name.Name
	}
	ref := r.plainRef(r.cur.owner.trigger, alias)
	ref.Line = name.Pos().Line
	cols, known := r.columnsOf(ref)
	return &binding{key: r.key(alias), ref: ref, columns: cols, known: known}
}

func (r *run) plainRef(name *core.ObjectName, alias string) TableReference {
	t := r.targetOf(name)
	return TableReference{
		Name:     name.Name,
		Schema:   t.schema,
		Database: name.Database,
		Server:   name.Server,
		Alias:    alias,
		Kind:     TablePlain,
		Line:     name.Pos().Line,
	}
}

// derived builds a derived-like binding known by alias.
func (r *run) derived(name, alias string, line int, columns []string, known bool) *binding {
	ref := TableReference{Name: name, Alias: alias, Kind: TableDerived, Line: line}
	return &binding{key: r.key(ref.Key()), ref: ref, columns: columns, known: known}
}

// bindTarget binds the FROM clause and the target of an UPDATE or DELETE.
// A target that names a FROM table or alias is that table. Any other target
// is bound under its own name and, when there is a FROM clause, is not a
// candidate for unqualified columns.
func (r *run) bindTarget(name *core.ObjectName, from *core.FromClause, outer *scope) (*scope, *binding) {
	s := r.bindFrom(from, outer)
	if b := s.lookup(r.key(name.Name)); b != nil && name.Database == "" {
		if name.Schema == "" || r.key(name.Schema) == r.key(b.ref.Schema) {
			return s, b
		}
	}
	b := r.tableBinding(name, "", s)
	b.hidden = from != nil
	return s.bind(b), b
}

// bindingTarget is the table written when b is the target of a statement.
func (r *run) bindingTarget(b *binding) target {
	if b.ref.Kind == TablePlain {
		return target{schema: b.ref.Schema, table: b.ref.Name}
	}
	if b.ref.Kind == TableCTE {
		return target{table: b.ref.Name}
	}
	return target{table: b.ref.Key()}
}
