package core

import "github.com/leapstack-labs/sqllineage/pkg/token"

// ---------- Data Modification ----------

// InsertStmt represents INSERT [INTO] target [(cols)] source.
// Exactly one of Values, Select, Exec or DefaultValues describes the source.
type InsertStmt struct {
	NodeInfo
	With          *WithClause
	Top           *TopClause
	Target        *ObjectName
	Columns       []*ColumnRef
	Output        *OutputClause
	Values        [][]Expr
	Select        *SelectStmt
	Exec          *ExecStmt
	DefaultValues bool
}

func (*InsertStmt) stmtNode() {}

// UpdateStmt represents UPDATE target SET ... [FROM ...] [WHERE ...].
// Target may name an alias declared in From.
type UpdateStmt struct {
	NodeInfo
	With   *WithClause
	Top    *TopClause
	Target *ObjectName
	Sets   []*SetClause
	Output *OutputClause
	From   *FromClause
	Where  Expr
}

func (*UpdateStmt) stmtNode() {}

// SetClause is one assignment in an UPDATE or MERGE SET list.
// Column is nil for pure variable assignments (SET @v = expr); both are set
// for SET @v = col = expr.
type SetClause struct {
	NodeInfo
	Column   *ColumnRef
	Variable string
	Op       token.TokenType // EQ or a compound assignment
	Value    Expr
}

// DeleteStmt represents DELETE [FROM] target [FROM ...] [WHERE ...].
type DeleteStmt struct {
	NodeInfo
	With   *WithClause
	Top    *TopClause
	Target *ObjectName
	Output *OutputClause
	From   *FromClause
	Where  Expr
}

func (*DeleteStmt) stmtNode() {}

// MergeStmt represents MERGE [INTO] target [AS alias] USING source ON cond WHEN ...
type MergeStmt struct {
	NodeInfo
	With        *WithClause
	Target      *ObjectName
	TargetAlias string
	Source      TableRef
	On          Expr
	Whens       []*MergeWhen
	Output      *OutputClause
}

func (*MergeStmt) stmtNode() {}

// MergeMatch identifies the WHEN branch of a MERGE clause.
type MergeMatch int

// MergeMatch values.
const (
	MergeMatched MergeMatch = iota
	MergeNotMatchedByTarget
	MergeNotMatchedBySource
)

// MergeActionType is the action of a MERGE WHEN clause.
type MergeActionType int

// MergeActionType values.
const (
	MergeUpdate MergeActionType = iota
	MergeDelete
	MergeInsert
)

// MergeWhen represents WHEN [NOT] MATCHED [BY TARGET|SOURCE] [AND cond] THEN action.
type MergeWhen struct {
	NodeInfo
	Match         MergeMatch
	Condition     Expr
	Action        MergeActionType
	Sets          []*SetClause
	Columns       []*ColumnRef
	Values        []Expr
	DefaultValues bool
}

// OutputClause represents OUTPUT items [INTO target [(cols)]].
type OutputClause struct {
	NodeInfo
	Columns     []*SelectItem
	Into        *ObjectName
	IntoColumns []*ColumnRef
}

// ExecStmt represents EXEC in its procedure and string forms:
//
//	EXEC [@ret =] schema.proc [params]
//	EXEC @procVar [params]
//	EXEC (string_expr [+ ...]) [AT linked_server]
type ExecStmt struct {
	NodeInfo
	ReturnVariable string
	Procedure      *ObjectName
	ProcVariable   string
	Params         []*ExecParam
	DynamicSQL     Expr
	AtServer       string
}

func (*ExecStmt) stmtNode() {}

// ExecParam is one argument of a procedure call.
type ExecParam struct {
	NodeInfo
	Name    string // @param name for named arguments
	Value   Expr
	Output  bool
	Default bool
}
