package core

// ---------- Object Definitions ----------

// CreateProcStmt represents CREATE [OR ALTER] PROCEDURE name params AS body.
type CreateProcStmt struct {
	NodeInfo
	Alter  bool
	Name   *ObjectName
	Params []*ParamDef
	Body   []Stmt
}

func (*CreateProcStmt) stmtNode() {}

// ParamDef is a procedure or function parameter.
type ParamDef struct {
	Name     string
	TypeName string
	Default  Expr
	Output   bool
	ReadOnly bool
}

// CreateViewStmt represents CREATE [OR ALTER] VIEW name [(cols)] AS select.
type CreateViewStmt struct {
	NodeInfo
	Alter   bool
	Name    *ObjectName
	Columns []string
	Select  *SelectStmt
}

func (*CreateViewStmt) stmtNode() {}

// CreateFunctionStmt represents CREATE [OR ALTER] FUNCTION.
//
// Scalar and multi-statement functions carry Body; inline table-valued
// functions carry a single RETURN with a SELECT in Body.
type CreateFunctionStmt struct {
	NodeInfo
	Alter        bool
	Name         *ObjectName
	Params       []*ParamDef
	ReturnType   string       // scalar return type, or TABLE
	ReturnTable  string       // @t for RETURNS @t TABLE (...)
	TableColumns []*ColumnDef // columns of the returned table variable
	Body         []Stmt
}

func (*CreateFunctionStmt) stmtNode() {}

// CreateTriggerStmt represents CREATE [OR ALTER] TRIGGER name ON table ... AS body.
type CreateTriggerStmt struct {
	NodeInfo
	Alter  bool
	Name   *ObjectName
	Table  *ObjectName
	Events []string // INSERT, UPDATE, DELETE
	Body   []Stmt
}

func (*CreateTriggerStmt) stmtNode() {}

// CreateTableStmt represents CREATE TABLE name (column definitions).
type CreateTableStmt struct {
	NodeInfo
	Name    *ObjectName
	Columns []*ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

// ColumnDef is a column in CREATE TABLE or a table variable declaration.
type ColumnDef struct {
	Name     string
	TypeName string
	Computed Expr // AS expr for computed columns
}

// DeclareStmt represents DECLARE @a type [= expr], @t TABLE (...), ...
type DeclareStmt struct {
	NodeInfo
	Vars []*VarDecl
}

func (*DeclareStmt) stmtNode() {}

// VarDecl is one variable in a DECLARE list.
type VarDecl struct {
	NodeInfo
	Name         string
	TypeName     string
	Value        Expr
	TableColumns []*ColumnDef // set when TypeName is TABLE
}

// DeclareCursorStmt represents DECLARE name CURSOR [options] FOR select.
type DeclareCursorStmt struct {
	NodeInfo
	Name   string
	Select *SelectStmt
}

func (*DeclareCursorStmt) stmtNode() {}

// DropStmt represents DROP TABLE/VIEW/PROC/... [IF EXISTS] names.
type DropStmt struct {
	NodeInfo
	Kind  string
	Names []*ObjectName
}

func (*DropStmt) stmtNode() {}

// TruncateStmt represents TRUNCATE TABLE name.
type TruncateStmt struct {
	NodeInfo
	Table *ObjectName
}

func (*TruncateStmt) stmtNode() {}
