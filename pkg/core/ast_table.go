package core

// ---------- Table Reference Types ----------

// TableName represents a table, view, CTE or @table variable reference.
type TableName struct {
	NodeInfo
	Name  *ObjectName
	Alias string
	Hints []string // WITH (NOLOCK, ...)
}

func (*TableName) tableRefNode() {}

// DerivedTable represents a subquery in FROM clause.
type DerivedTable struct {
	NodeInfo
	Select  *SelectStmt
	Alias   string
	Columns []string // optional column aliases: AS d(a, b)
}

func (*DerivedTable) tableRefNode() {}

// ValuesTable represents (VALUES (...), (...)) AS alias(cols).
type ValuesTable struct {
	NodeInfo
	Rows    [][]Expr
	Alias   string
	Columns []string
}

func (*ValuesTable) tableRefNode() {}

// FuncTable represents a table-valued function in FROM (dbo.fn(x), STRING_SPLIT(...)).
// PIVOT and UNPIVOT are FuncTables named after the operator whose Source is
// the rotated relation.
type FuncTable struct {
	NodeInfo
	Func    *FuncCall
	Source  TableRef
	Alias   string
	Columns []string
}

func (*FuncTable) tableRefNode() {}

// OpenRowsetTable represents OPENQUERY, OPENROWSET and OPENDATASOURCE sources.
// For OPENDATASOURCE(...).db.schema.table, Object holds the trailing name.
type OpenRowsetTable struct {
	NodeInfo
	Kind   string // OPENQUERY, OPENROWSET, OPENDATASOURCE
	Args   []Expr
	Object *ObjectName
	Alias  string
}

func (*OpenRowsetTable) tableRefNode() {}

// JoinedTable represents a parenthesized join tree used as a table source.
type JoinedTable struct {
	NodeInfo
	From *FromClause
}

func (*JoinedTable) tableRefNode() {}

// FromClause represents the FROM clause.
type FromClause struct {
	NodeInfo
	Source TableRef
	Joins  []*Join
}

// Join represents a JOIN or APPLY clause.
type Join struct {
	NodeInfo
	Type      JoinType
	Right     TableRef
	Condition Expr // ON clause; nil for CROSS JOIN, APPLY and comma joins
}

// JoinType represents the type of join.
type JoinType string

// JoinType constants.
const (
	JoinComma      JoinType = ","
	JoinInner      JoinType = "INNER"
	JoinLeft       JoinType = "LEFT"
	JoinRight      JoinType = "RIGHT"
	JoinFull       JoinType = "FULL"
	JoinCross      JoinType = "CROSS"
	JoinCrossApply JoinType = "CROSS APPLY"
	JoinOuterApply JoinType = "OUTER APPLY"
)

// Tables returns the table sources of the clause in source order.
func (f *FromClause) Tables() []TableRef {
	if f == nil {
		return nil
	}
	refs := make([]TableRef, 0, len(f.Joins)+1)
	if f.Source != nil {
		refs = append(refs, f.Source)
	}
	for _, j := range f.Joins {
		if j.Right != nil {
			refs = append(refs, j.Right)
		}
	}
	return refs
}
