package lineage

import "golang.org/x/text/cases"

// scope is one level of table bindings for a query block. Levels are never
// modified once built: bind and defineCTE return a new level sharing the
// same parent, so a callee can not leak bindings into its caller.
type scope struct {
	parent *scope
	tables []*binding
	ctes   []*cteDef
}

// binding is a table source visible under a key (alias or name).
type binding struct {
	key     string // folded TableReference.Key()
	ref     TableReference
	columns []string
	known   bool // columns is the complete column list
	hidden  bool // never a candidate for unqualified columns
}

// cteDef is a common table expression that FROM clauses may reference.
type cteDef struct {
	key     string
	name    string
	columns []string
	known   bool
}

func (s *scope) child() *scope {
	return &scope{parent: s}
}

// bind returns a copy of s with b added. An earlier binding with the same
// key at this level is replaced.
func (s *scope) bind(b *binding) *scope {
	next := &scope{parent: s.parent, ctes: s.ctes}
	next.tables = make([]*binding, 0, len(s.tables)+1)
	for _, t := range s.tables {
		if t.key != b.key {
			next.tables = append(next.tables, t)
		}
	}
	next.tables = append(next.tables, b)
	return next
}

// defineCTE returns a copy of s with d defined.
func (s *scope) defineCTE(d *cteDef) *scope {
	next := &scope{parent: s.parent, tables: s.tables}
	next.ctes = make([]*cteDef, 0, len(s.ctes)+1)
	for _, c := range s.ctes {
		if c.key != d.key {
			next.ctes = append(next.ctes, c)
		}
	}
	next.ctes = append(next.ctes, d)
	return next
}

// lookup finds the binding for a folded key, innermost level first.
func (s *scope) lookup(key string) *binding {
	for sc := s; sc != nil; sc = sc.parent {
		for _, t := range sc.tables {
			if t.key == key {
				return t
			}
		}
	}
	return nil
}

// cte finds a CTE definition by folded name, innermost level first.
func (s *scope) cte(key string) *cteDef {
	for sc := s; sc != nil; sc = sc.parent {
		for _, c := range sc.ctes {
			if c.key == key {
				return c
			}
		}
	}
	return nil
}

// candidates returns the tables that may own an unqualified column. Levels
// are searched innermost first and the first level with a candidate wins.
// Tables with known columns are candidates only if they have the column.
func (s *scope) candidates(column string, fold cases.Caser) []*binding {
	for sc := s; sc != nil; sc = sc.parent {
		var out []*binding
		for _, t := range sc.tables {
			if t.hidden {
				continue
			}
			if t.known && !t.has(column, fold) {
				continue
			}
			out = append(out, t)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (b *binding) has(column string, fold cases.Caser) bool {
	want := fold.String(column)
	for _, c := range b.columns {
		if fold.String(c) == want {
			return true
		}
	}
	return false
}

// source returns column as read through b.
func (b *binding) source(column string) SourceColumnRef {
	return SourceColumnRef{
		ColumnName:       column,
		TableAlias:       b.ref.Alias,
		ResolvedDatabase: b.ref.Database,
		ResolvedSchema:   b.ref.Schema,
		ResolvedTable:    b.ref.Name,
		ResolvedKind:     b.ref.Kind,
	}
}
