package core

import "github.com/leapstack-labs/sqllineage/pkg/token"

// ---------- Expression Types ----------

// ColumnRef represents a column reference, optionally qualified with
// table (or alias), schema and database.
type ColumnRef struct {
	NodeInfo
	Database string
	Schema   string
	Table    string // optional table/alias qualifier
	Column   string
}

func (*ColumnRef) exprNode() {}

// Literal represents a literal value.
type Literal struct {
	NodeInfo
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for SQL literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralNull
	LiteralDefault // DEFAULT in VALUES lists
)

// Variable represents a @local or @@global variable.
type Variable struct {
	NodeInfo
	Name string // including the leading @ or @@
}

func (*Variable) exprNode() {}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	NodeInfo
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall represents a function call. Schema is set for user functions
// called with a qualified name (dbo.fn_total(...)).
type FuncCall struct {
	NodeInfo
	Schema      string
	Name        string
	Distinct    bool
	Args        []Expr
	Star        bool          // COUNT(*)
	WithinGroup []OrderByItem // STRING_AGG(...) WITHIN GROUP (ORDER BY ...)
	Over        *WindowSpec
}

func (*FuncCall) exprNode() {}

// WindowSpec represents an OVER clause. Frame bounds are parsed and dropped.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// CaseExpr represents a simple or searched CASE expression.
type CaseExpr struct {
	NodeInfo
	Operand Expr // CASE operand WHEN... (optional)
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// WhenClause represents a WHEN clause in CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents CAST(expr AS type) and TRY_CAST.
type CastExpr struct {
	NodeInfo
	Expr     Expr
	TypeName string
	Try      bool
}

func (*CastExpr) exprNode() {}

// ConvertExpr represents CONVERT(type, expr [, style]) and TRY_CONVERT.
type ConvertExpr struct {
	NodeInfo
	TypeName string
	Expr     Expr
	Style    Expr
	Try      bool
}

func (*ConvertExpr) exprNode() {}

// CoalesceExpr represents COALESCE(a, b, ...).
type CoalesceExpr struct {
	NodeInfo
	Args []Expr
}

func (*CoalesceExpr) exprNode() {}

// NullIfExpr represents NULLIF(a, b).
type NullIfExpr struct {
	NodeInfo
	Left  Expr
	Right Expr
}

func (*NullIfExpr) exprNode() {}

// IifExpr represents IIF(cond, then, else).
type IifExpr struct {
	NodeInfo
	Cond Expr
	Then Expr
	Else Expr
}

func (*IifExpr) exprNode() {}

// InExpr represents an IN expression.
type InExpr struct {
	NodeInfo
	Expr   Expr
	Not    bool
	Values []Expr      // IN (1, 2, 3)
	Query  *SelectStmt // IN (SELECT ...)
}

func (*InExpr) exprNode() {}

// BetweenExpr represents a BETWEEN expression.
type BetweenExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsNullExpr represents an IS NULL expression.
type IsNullExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// LikeExpr represents a LIKE expression.
type LikeExpr struct {
	NodeInfo
	Expr    Expr
	Not     bool
	Pattern Expr
	Escape  Expr
}

func (*LikeExpr) exprNode() {}

// CollateExpr represents expr COLLATE collation_name.
type CollateExpr struct {
	NodeInfo
	Expr      Expr
	Collation string
}

func (*CollateExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	NodeInfo
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// StarExpr represents * as a function argument or projection.
type StarExpr struct {
	NodeInfo
	Table string // optional qualifier for t.*
}

func (*StarExpr) exprNode() {}

// SubqueryExpr represents a scalar subquery used as an expression.
type SubqueryExpr struct {
	NodeInfo
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ExistsExpr represents an EXISTS expression.
type ExistsExpr struct {
	NodeInfo
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}
