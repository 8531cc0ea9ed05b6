package core

import "github.com/leapstack-labs/sqllineage/pkg/token"

// ---------- Query Types ----------

// SelectStmt represents a complete SELECT statement with optional WITH clause.
// It is also used for subqueries, CTE bodies and derived tables.
type SelectStmt struct {
	NodeInfo
	With    *WithClause
	Body    *SelectBody
	OrderBy []OrderByItem
	Offset  Expr
	Fetch   Expr
	For     string // FOR XML / FOR JSON mode, if present
}

func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	NodeInfo
	CTEs []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	NodeInfo
	Name    string
	Columns []string // optional column list: cte(a, b) AS (...)
	Select  *SelectStmt
}

// SelectBody represents the body of a SELECT with possible set operations.
type SelectBody struct {
	NodeInfo
	Left  *SelectCore
	Op    SetOpType   // UNION, INTERSECT, EXCEPT, or empty
	All   bool        // UNION ALL
	Right *SelectBody // For chained set operations
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents one query specification.
type SelectCore struct {
	NodeInfo
	Distinct bool
	Top      *TopClause
	Columns  []*SelectItem
	Into     *ObjectName // SELECT ... INTO target
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
}

// TopClause represents TOP (n) [PERCENT] [WITH TIES].
type TopClause struct {
	Count    Expr
	Percent  bool
	WithTies bool
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	NodeInfo
	Star      bool   // SELECT *
	TableStar string // SELECT t.* (qualifier as written, may be schema.table)
	Expr      Expr
	Alias     string // AS alias, or alias = expr
	Variable  string // SELECT @v = expr
}

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	Expr Expr
	Desc bool
}

// ---------- Control Flow ----------

// BlockStmt represents BEGIN ... END.
type BlockStmt struct {
	NodeInfo
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}

// IfStmt represents IF cond stmt [ELSE stmt].
type IfStmt struct {
	NodeInfo
	Cond Expr
	Then Stmt
	Else Stmt
}

func (*IfStmt) stmtNode() {}

// WhileStmt represents WHILE cond stmt.
type WhileStmt struct {
	NodeInfo
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode() {}

// TryCatchStmt represents BEGIN TRY ... END TRY BEGIN CATCH ... END CATCH.
type TryCatchStmt struct {
	NodeInfo
	Try   []Stmt
	Catch []Stmt
}

func (*TryCatchStmt) stmtNode() {}

// TransactionStmt represents BEGIN TRAN, COMMIT, ROLLBACK and SAVE TRAN.
type TransactionStmt struct {
	NodeInfo
	Action string // BEGIN, COMMIT, ROLLBACK, SAVE
	Name   string
}

func (*TransactionStmt) stmtNode() {}

// ReturnStmt represents RETURN [expr]. Select is set for inline table-valued
// functions: RETURN (SELECT ...).
type ReturnStmt struct {
	NodeInfo
	Value  Expr
	Select *SelectStmt
}

func (*ReturnStmt) stmtNode() {}

// PrintStmt represents PRINT expr.
type PrintStmt struct {
	NodeInfo
	Value Expr
}

func (*PrintStmt) stmtNode() {}

// RaiseStmt represents RAISERROR(...) and THROW.
type RaiseStmt struct {
	NodeInfo
	Keyword string
	Args    []Expr
}

func (*RaiseStmt) stmtNode() {}

// SetVariableStmt represents SET @v = expr (or a compound assignment).
type SetVariableStmt struct {
	NodeInfo
	Variable string
	Op       token.TokenType
	Value    Expr
}

func (*SetVariableStmt) stmtNode() {}

// SetOptionStmt represents session options such as SET NOCOUNT ON.
type SetOptionStmt struct {
	NodeInfo
	Option string
	Value  string
}

func (*SetOptionStmt) stmtNode() {}

// CursorStmt represents OPEN, CLOSE, DEALLOCATE and FETCH on a cursor.
type CursorStmt struct {
	NodeInfo
	Action string
	Cursor string
	Into   []string
}

func (*CursorStmt) stmtNode() {}

// ControlStmt represents BREAK, CONTINUE, GOTO label and label definitions.
type ControlStmt struct {
	NodeInfo
	Keyword string
	Label   string
}

func (*ControlStmt) stmtNode() {}

// UseStmt represents USE database.
type UseStmt struct {
	NodeInfo
	Database string
}

func (*UseStmt) stmtNode() {}

// OtherStmt is a statement the parser recognizes but does not model
// (GRANT, CREATE INDEX, WAITFOR, ...). Its tokens are skipped.
type OtherStmt struct {
	NodeInfo
	Keyword string
}

func (*OtherStmt) stmtNode() {}
