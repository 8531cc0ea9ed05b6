package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// parseOne parses sql and returns its only statement.
func parseOne(t *testing.T, sql string) core.Stmt {
	t.Helper()
	script, errs := Parse(sql)
	require.Empty(t, errs)
	require.NotNil(t, script)
	require.Len(t, script.Batches, 1)
	require.Len(t, script.Batches[0].Stmts, 1)
	return script.Batches[0].Stmts[0]
}

func TestParse_StatementKinds(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want any
	}{
		{"select", "SELECT 1", &core.SelectStmt{}},
		{"parenthesized select", "(SELECT a FROM t) UNION (SELECT a FROM u)", &core.SelectStmt{}},
		{"cte insert", "WITH c AS (SELECT 1 AS a) INSERT INTO t (a) SELECT a FROM c", &core.InsertStmt{}},
		{"update", "UPDATE t SET a = 1", &core.UpdateStmt{}},
		{"delete", "DELETE FROM t WHERE a = 1", &core.DeleteStmt{}},
		{"exec", "EXEC dbo.p", &core.ExecStmt{}},
		{"declare", "DECLARE @a int", &core.DeclareStmt{}},
		{"declare cursor", "DECLARE c CURSOR LOCAL FAST_FORWARD FOR SELECT a FROM t", &core.DeclareCursorStmt{}},
		{"set variable", "SET @a = 1", &core.SetVariableStmt{}},
		{"set option", "SET NOCOUNT ON", &core.SetOptionStmt{}},
		{"set transaction isolation", "SET TRANSACTION ISOLATION LEVEL READ UNCOMMITTED", &core.SetOptionStmt{}},
		{"if", "IF @a = 1 PRINT 'x'", &core.IfStmt{}},
		{"while", "WHILE @i < 10 SET @i += 1", &core.WhileStmt{}},
		{"block", "BEGIN SELECT 1 END", &core.BlockStmt{}},
		{"try catch", "BEGIN TRY SELECT 1 END TRY BEGIN CATCH THROW; END CATCH", &core.TryCatchStmt{}},
		{"begin tran", "BEGIN TRANSACTION", &core.TransactionStmt{}},
		{"commit", "COMMIT", &core.TransactionStmt{}},
		{"return", "RETURN", &core.ReturnStmt{}},
		{"raiserror", "RAISERROR('bad', 16, 1) WITH NOWAIT", &core.RaiseStmt{}},
		{"throw", "THROW 50000, 'bad', 1", &core.RaiseStmt{}},
		{"fetch", "FETCH NEXT FROM c INTO @a, @b", &core.CursorStmt{}},
		{"goto", "GOTO done", &core.ControlStmt{}},
		{"label", "done:", &core.ControlStmt{}},
		{"use", "USE Sales", &core.UseStmt{}},
		{"grant", "GRANT SELECT ON dbo.t TO reader", &core.OtherStmt{}},
		{"create index", "CREATE INDEX ix ON dbo.t (a) WITH (ONLINE = ON)", &core.OtherStmt{}},
		{"create table", "CREATE TABLE #t (id int NOT NULL, name varchar(10))", &core.CreateTableStmt{}},
		{"drop", "DROP TABLE IF EXISTS #t", &core.DropStmt{}},
		{"truncate", "TRUNCATE TABLE dbo.t", &core.TruncateStmt{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql)
			assert.IsType(t, tt.want, stmt)
		})
	}
}

func TestParse_Batches(t *testing.T) {
	script, errs := Parse("SELECT 1\nGO\n\nGO\nSELECT 2;\nSELECT 3\nGO")
	require.Empty(t, errs)
	require.NotNil(t, script)
	require.Len(t, script.Batches, 2)
	assert.Len(t, script.Batches[0].Stmts, 1)
	assert.Len(t, script.Batches[1].Stmts, 2)
}

func TestParse_ErrorRecovery(t *testing.T) {
	script, errs := Parse("SELECT FROM;\nSELECT a FROM t")
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Pos.Line)
	assert.Contains(t, errs[0].Error(), "parse error at line 1")

	require.NotNil(t, script)
	require.Len(t, script.Batches, 1)
	require.Len(t, script.Batches[0].Stmts, 1)
	assert.IsType(t, &core.SelectStmt{}, script.Batches[0].Stmts[0])
}

func TestParse_TotalFailure(t *testing.T) {
	script, errs := Parse("SELECT FROM")
	assert.Nil(t, script)
	assert.NotEmpty(t, errs)
}

func TestParse_MaxDepth(t *testing.T) {
	sql := "SELECT " + strings.Repeat("(", 600) + "1" + strings.Repeat(")", 600)
	assert.NotPanics(t, func() {
		_, errs := Parse(sql)
		require.NotEmpty(t, errs)
		assert.Contains(t, errs[0].Message, "nesting exceeds")
	})
}

func TestParse_SelectCore(t *testing.T) {
	stmt := parseOne(t, "SELECT DISTINCT TOP (10) PERCENT t.a, b AS c, total = x + y, 'lit' d, t.* INTO #tmp FROM dbo.T t WITH (NOLOCK) WHERE x = 1 GROUP BY a HAVING COUNT(*) > 1").(*core.SelectStmt)
	sc := stmt.Body.Left
	require.NotNil(t, sc)

	assert.True(t, sc.Distinct)
	require.NotNil(t, sc.Top)
	assert.True(t, sc.Top.Percent)

	require.Len(t, sc.Columns, 5)
	col := sc.Columns[0].Expr.(*core.ColumnRef)
	assert.Equal(t, "t", col.Table)
	assert.Equal(t, "a", col.Column)
	assert.Equal(t, "c", sc.Columns[1].Alias)
	assert.Equal(t, "total", sc.Columns[2].Alias)
	assert.IsType(t, &core.BinaryExpr{}, sc.Columns[2].Expr)
	assert.Equal(t, "d", sc.Columns[3].Alias)
	assert.Equal(t, "t", sc.Columns[4].TableStar)

	require.NotNil(t, sc.Into)
	assert.True(t, sc.Into.IsTemp())

	tn, ok := sc.From.Source.(*core.TableName)
	require.True(t, ok)
	assert.Equal(t, "dbo", tn.Name.Schema)
	assert.Equal(t, "T", tn.Name.Name)
	assert.Equal(t, "t", tn.Alias)
	assert.Equal(t, []string{"NOLOCK"}, tn.Hints)

	assert.NotNil(t, sc.Where)
	assert.Len(t, sc.GroupBy, 1)
	assert.NotNil(t, sc.Having)
}

func TestParse_SelectVariableAssignment(t *testing.T) {
	stmt := parseOne(t, "SELECT @total = SUM(amount), @n += 1 FROM dbo.Orders").(*core.SelectStmt)
	cols := stmt.Body.Left.Columns
	require.Len(t, cols, 2)
	assert.Equal(t, "@total", cols[0].Variable)
	assert.Equal(t, "@n", cols[1].Variable)
}

func TestParse_ObjectNames(t *testing.T) {
	tests := []struct {
		sql  string
		want core.ObjectName
	}{
		{"SELECT a FROM t", core.ObjectName{Name: "t"}},
		{"SELECT a FROM [dbo].[My Table]", core.ObjectName{Schema: "dbo", Name: "My Table"}},
		{"SELECT a FROM Sales..Orders", core.ObjectName{Database: "Sales", Name: "Orders"}},
		{"SELECT a FROM srv.Sales.dbo.Orders", core.ObjectName{Server: "srv", Database: "Sales", Schema: "dbo", Name: "Orders"}},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt := parseOne(t, tt.sql).(*core.SelectStmt)
			tn := stmt.Body.Left.From.Source.(*core.TableName)
			got := *tn.Name
			got.NodeInfo = core.NodeInfo{}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_SetOperations(t *testing.T) {
	stmt := parseOne(t, "SELECT a FROM t UNION ALL SELECT a FROM u EXCEPT SELECT a FROM v ORDER BY a").(*core.SelectStmt)
	body := stmt.Body
	assert.Equal(t, core.SetOpUnion, body.Op)
	assert.True(t, body.All)
	require.NotNil(t, body.Right)
	assert.Equal(t, core.SetOpExcept, body.Right.Op)
	require.NotNil(t, body.Right.Right)
	assert.NotNil(t, body.Right.Right.Left)
	assert.Len(t, stmt.OrderBy, 1)
}

func TestParse_CTE(t *testing.T) {
	stmt := parseOne(t, "WITH c (a, b) AS (SELECT 1, 2), d AS (SELECT a FROM c) SELECT a FROM d").(*core.SelectStmt)
	require.NotNil(t, stmt.With)
	require.Len(t, stmt.With.CTEs, 2)
	assert.Equal(t, "c", stmt.With.CTEs[0].Name)
	assert.Equal(t, []string{"a", "b"}, stmt.With.CTEs[0].Columns)
	assert.Equal(t, "d", stmt.With.CTEs[1].Name)
}

func TestParse_FromSources(t *testing.T) {
	stmt := parseOne(t, `SELECT x.a
FROM (SELECT a FROM t) AS x
CROSS APPLY dbo.fn(x.a) f
LEFT OUTER JOIN (VALUES (1, 'a'), (2, 'b')) v (id, name) ON v.id = x.a
OUTER APPLY OPENJSON(x.a) WITH (k int '$.k') j
INNER HASH JOIN @t tv ON tv.id = x.a, u`).(*core.SelectStmt)

	from := stmt.Body.Left.From
	dt, ok := from.Source.(*core.DerivedTable)
	require.True(t, ok)
	assert.Equal(t, "x", dt.Alias)

	require.Len(t, from.Joins, 5)

	assert.Equal(t, core.JoinCrossApply, from.Joins[0].Type)
	ft := from.Joins[0].Right.(*core.FuncTable)
	assert.Equal(t, "dbo", ft.Func.Schema)
	assert.Equal(t, "fn", ft.Func.Name)
	assert.Equal(t, "f", ft.Alias)

	assert.Equal(t, core.JoinLeft, from.Joins[1].Type)
	vt := from.Joins[1].Right.(*core.ValuesTable)
	assert.Len(t, vt.Rows, 2)
	assert.Equal(t, []string{"id", "name"}, vt.Columns)
	assert.NotNil(t, from.Joins[1].Condition)

	assert.Equal(t, core.JoinOuterApply, from.Joins[2].Type)
	oj := from.Joins[2].Right.(*core.FuncTable)
	assert.Equal(t, []string{"k"}, oj.Columns)
	assert.Equal(t, "j", oj.Alias)

	assert.Equal(t, core.JoinInner, from.Joins[3].Type)
	tv := from.Joins[3].Right.(*core.TableName)
	assert.True(t, tv.Name.IsVariable())
	assert.Equal(t, "tv", tv.Alias)

	assert.Equal(t, core.JoinComma, from.Joins[4].Type)
}

func TestParse_OpenRowset(t *testing.T) {
	stmt := parseOne(t, "SELECT a FROM OPENQUERY(LinkedSrv, 'SELECT a FROM remote.t') q").(*core.SelectStmt)
	ot, ok := stmt.Body.Left.From.Source.(*core.OpenRowsetTable)
	require.True(t, ok)
	assert.Equal(t, "OPENQUERY", ot.Kind)
	assert.Equal(t, "q", ot.Alias)
	require.Len(t, ot.Args, 1)
	assert.Equal(t, "SELECT a FROM remote.t", ot.Args[0].(*core.Literal).Value)
}

func TestParse_Expressions(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want any
	}{
		{"case", "SELECT CASE WHEN a > 1 THEN 'x' ELSE 'y' END", &core.CaseExpr{}},
		{"cast", "SELECT CAST(a AS decimal(18, 2))", &core.CastExpr{}},
		{"try_cast", "SELECT TRY_CAST(a AS int)", &core.CastExpr{}},
		{"convert", "SELECT CONVERT(varchar(10), a, 120)", &core.ConvertExpr{}},
		{"coalesce", "SELECT COALESCE(a, b, 0)", &core.CoalesceExpr{}},
		{"nullif", "SELECT NULLIF(a, 0)", &core.NullIfExpr{}},
		{"iif", "SELECT IIF(a > 0, a, 0)", &core.IifExpr{}},
		{"subquery", "SELECT (SELECT MAX(a) FROM t)", &core.SubqueryExpr{}},
		{"window", "SELECT ROW_NUMBER() OVER (PARTITION BY a ORDER BY b DESC ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)", &core.FuncCall{}},
		{"left function", "SELECT LEFT(name, 3)", &core.FuncCall{}},
		{"niladic", "SELECT CURRENT_TIMESTAMP", &core.FuncCall{}},
		{"collate", "SELECT a COLLATE Latin1_General_CI_AS", &core.CollateExpr{}},
		{"unary", "SELECT -a", &core.UnaryExpr{}},
		{"xml method", "SELECT (SELECT ',' + a FROM t FOR XML PATH(''), TYPE).value('.', 'nvarchar(max)')", &core.FuncCall{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := parseOne(t, tt.sql).(*core.SelectStmt)
			require.Len(t, stmt.Body.Left.Columns, 1)
			assert.IsType(t, tt.want, stmt.Body.Left.Columns[0].Expr)
		})
	}
}

func TestParse_Predicates(t *testing.T) {
	stmt := parseOne(t, "SELECT a FROM t WHERE a NOT IN (SELECT b FROM u) AND c BETWEEN 1 AND 2 OR d LIKE 'x%' AND e IS NOT NULL").(*core.SelectStmt)

	or, ok := stmt.Body.Left.Where.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.OR, or.Op)

	and := or.Left.(*core.BinaryExpr)
	assert.Equal(t, token.AND, and.Op)
	in := and.Left.(*core.InExpr)
	assert.True(t, in.Not)
	assert.NotNil(t, in.Query)
	assert.IsType(t, &core.BetweenExpr{}, and.Right)

	right := or.Right.(*core.BinaryExpr)
	assert.IsType(t, &core.LikeExpr{}, right.Left)
	isNull := right.Right.(*core.IsNullExpr)
	assert.True(t, isNull.Not)
}

func TestParse_DatePartArgument(t *testing.T) {
	stmt := parseOne(t, "SELECT DATEADD(day, 1, created)").(*core.SelectStmt)
	fn := stmt.Body.Left.Columns[0].Expr.(*core.FuncCall)
	require.Len(t, fn.Args, 3)
	lit, ok := fn.Args[0].(*core.Literal)
	require.True(t, ok)
	assert.Equal(t, "day", lit.Value)
	assert.IsType(t, &core.ColumnRef{}, fn.Args[2])
}

func TestParse_IfElse(t *testing.T) {
	stmt := parseOne(t, "IF @x = 1\n  SELECT 1;\nELSE\n  SELECT 2").(*core.IfStmt)
	assert.IsType(t, &core.SelectStmt{}, stmt.Then)
	assert.IsType(t, &core.SelectStmt{}, stmt.Else)
}

func TestParse_CreateProcedure(t *testing.T) {
	sql := `CREATE OR ALTER PROCEDURE dbo.LoadOrders
    @since date,
    @count int = NULL OUTPUT
WITH EXECUTE AS OWNER
AS
BEGIN
    SET NOCOUNT ON;
    INSERT INTO dbo.Orders (id, total)
    SELECT id, amount FROM staging.Orders WHERE created > @since;
    SET @count = @@ROWCOUNT;
END`
	proc := parseOne(t, sql).(*core.CreateProcStmt)
	assert.True(t, proc.Alter)
	assert.Equal(t, "dbo.LoadOrders", proc.Name.String())

	require.Len(t, proc.Params, 2)
	assert.Equal(t, "@since", proc.Params[0].Name)
	assert.Equal(t, "date", proc.Params[0].TypeName)
	assert.True(t, proc.Params[1].Output)

	require.Len(t, proc.Body, 1)
	block := proc.Body[0].(*core.BlockStmt)
	require.Len(t, block.Stmts, 3)
	ins := block.Stmts[1].(*core.InsertStmt)
	require.Len(t, ins.Columns, 2)
	assert.Equal(t, "total", ins.Columns[1].Column)
	assert.NotNil(t, ins.Select)
}

func TestParse_CreateView(t *testing.T) {
	view := parseOne(t, "CREATE VIEW dbo.v (x) WITH SCHEMABINDING AS WITH c AS (SELECT a FROM dbo.t) SELECT a FROM c WITH CHECK OPTION").(*core.CreateViewStmt)
	assert.Equal(t, "v", view.Name.Name)
	assert.Equal(t, []string{"x"}, view.Columns)
	require.NotNil(t, view.Select)
	assert.NotNil(t, view.Select.With)
}

func TestParse_CreateFunction(t *testing.T) {
	t.Run("inline table-valued", func(t *testing.T) {
		fn := parseOne(t, "CREATE FUNCTION dbo.f(@id int) RETURNS TABLE AS RETURN (SELECT a FROM t WHERE id = @id)").(*core.CreateFunctionStmt)
		assert.Equal(t, "TABLE", fn.ReturnType)
		require.Len(t, fn.Body, 1)
		ret := fn.Body[0].(*core.ReturnStmt)
		assert.NotNil(t, ret.Select)
		assert.Nil(t, ret.Value)
	})

	t.Run("multi-statement", func(t *testing.T) {
		fn := parseOne(t, `CREATE FUNCTION dbo.g() RETURNS @r TABLE (id int, name nvarchar(50))
AS BEGIN
  INSERT INTO @r (id, name) SELECT id, name FROM dbo.t;
  RETURN;
END`).(*core.CreateFunctionStmt)
		assert.Equal(t, "@r", fn.ReturnTable)
		require.Len(t, fn.TableColumns, 2)
		assert.Equal(t, "name", fn.TableColumns[1].Name)
	})

	t.Run("scalar", func(t *testing.T) {
		fn := parseOne(t, "CREATE FUNCTION dbo.h(@a int) RETURNS int WITH SCHEMABINDING AS BEGIN RETURN @a + 1 END").(*core.CreateFunctionStmt)
		assert.Equal(t, "int", fn.ReturnType)
		block := fn.Body[0].(*core.BlockStmt)
		ret := block.Stmts[0].(*core.ReturnStmt)
		assert.Nil(t, ret.Select)
		assert.IsType(t, &core.BinaryExpr{}, ret.Value)
	})
}

func TestParse_CreateTrigger(t *testing.T) {
	trg := parseOne(t, "CREATE TRIGGER trg ON dbo.T AFTER INSERT, UPDATE AS INSERT INTO audit (id) SELECT id FROM inserted").(*core.CreateTriggerStmt)
	assert.Equal(t, "T", trg.Table.Name)
	assert.Equal(t, []string{"INSERT", "UPDATE"}, trg.Events)
	require.Len(t, trg.Body, 1)
	assert.IsType(t, &core.InsertStmt{}, trg.Body[0])
}

func TestParse_Declare(t *testing.T) {
	decl := parseOne(t, "DECLARE @t TABLE (id int PRIMARY KEY, name nvarchar(50), CHECK (id > 0)), @n int = 5").(*core.DeclareStmt)
	require.Len(t, decl.Vars, 2)
	assert.Equal(t, "TABLE", decl.Vars[0].TypeName)
	require.Len(t, decl.Vars[0].TableColumns, 2)
	assert.Equal(t, "id", decl.Vars[0].TableColumns[0].Name)
	assert.IsType(t, &core.Literal{}, decl.Vars[1].Value)
}

func TestParseError_Format(t *testing.T) {
	err := &ParseError{Pos: token.Position{Line: 3, Column: 7}, Message: "boom"}
	assert.Equal(t, "parse error at line 3, column 7: boom", err.Error())
}
