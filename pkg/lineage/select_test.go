package lineage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/testutil"
)

// extract runs ExtractSQL with a test logger and fails on parse errors.
func extract(t *testing.T, sql string, resolver ColumnResolver) *Result {
	t.Helper()
	res := ExtractSQL(sql, Options{Logger: testutil.NewTestLogger(t), Resolver: resolver})
	require.Empty(t, res.ParseErrors, "unexpected parse errors")
	return res
}

// names renders source columns as qualified names.
func names(refs []SourceColumnRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.QualifiedName()
	}
	return out
}

// edgesOf returns the edges of one statement.
func edgesOf(res *Result, statement int) []Edge {
	var out []Edge
	for _, e := range res.Edges {
		if e.StatementIndex == statement {
			out = append(out, e)
		}
	}
	return out
}

// staticSchema resolves table names case-insensitively from a fixed map.
func staticSchema(tables map[string][]string) ColumnResolver {
	return ColumnResolverFunc(func(_, table string) ([]string, bool) {
		cols, ok := tables[strings.ToLower(table)]
		return cols, ok
	})
}

func TestExtract_SimpleSelect(t *testing.T) {
	res := extract(t, "SELECT col FROM T", nil)

	require.Len(t, res.Edges, 1)
	e := res.Edges[0]
	assert.Equal(t, KindSelect, e.StatementKind)
	assert.Equal(t, "col", e.TargetColumn)
	assert.Equal(t, []string{"dbo.T.col"}, names(e.SourceColumns))
	assert.Empty(t, e.Transformation)
	assert.False(t, e.IsWildcard)
	assert.Equal(t, 1, e.Line)
	assert.False(t, res.Failed())
}

func TestExtract_SelectExpressions(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		target  string
		sources []string
		tag     string
	}{
		{"arithmetic", "SELECT a.x + a.y AS s FROM T a", "s", []string{"dbo.T.x", "dbo.T.y"}, "expression"},
		{"scalar function", "SELECT UPPER(name) FROM T", "upper", []string{"dbo.T.name"}, "UPPER(...)"},
		{"cast", "SELECT CAST(a AS int) AS c FROM T", "c", []string{"dbo.T.a"}, "CAST(...)"},
		{"convert", "SELECT CONVERT(varchar(10), a, 120) AS c FROM T", "c", []string{"dbo.T.a"}, "CAST(...)"},
		{"convert style column", "SELECT CONVERT(varchar(10), t.d, t.fmt) AS c FROM T t", "c", []string{"dbo.T.d"}, "CAST(...)"},
		{"coalesce", "SELECT COALESCE(a, b, 0) AS c FROM T", "c", []string{"dbo.T.a", "dbo.T.b"}, "COALESCE(...)"},
		{"case", "SELECT CASE WHEN a > 0 THEN b ELSE c END FROM T", "case_result", []string{"dbo.T.a", "dbo.T.b", "dbo.T.c"}, "CASE...END"},
		{"literal", "SELECT 1 AS one FROM T", "one", []string{}, "literal"},
		{"variable", "SELECT @v AS v FROM T", "v", []string{}, "variable"},
		{"aggregate arithmetic", "SELECT SUM(a) * 2 AS total FROM T", "total", []string{"dbo.T.a"}, "SUM(...)"},
		{"window", "SELECT ROW_NUMBER() OVER (PARTITION BY a ORDER BY b) AS rn FROM T", "rn", []string{"dbo.T.a", "dbo.T.b"}, "ROW_NUMBER(...)"},
		{"scalar subquery", "SELECT (SELECT MAX(x) FROM U) AS m FROM T", "m", []string{"dbo.U.x"}, "subquery"},
		{"repeated column", "SELECT a + a AS d FROM T", "d", []string{"dbo.T.a"}, "expression"},
		{"no columns", "SELECT GETDATE() AS now FROM T", "now", []string{}, "GETDATE(...)"},
		{"collate", "SELECT a COLLATE Latin1_General_CI_AS AS a2 FROM T", "a2", []string{"dbo.T.a"}, "COLLATE"},
		{"alias assignment", "SELECT total = a * b FROM T", "total", []string{"dbo.T.a", "dbo.T.b"}, "expression"},
		{"iif", "SELECT IIF(a > 0, b, c) AS x FROM T", "x", []string{"dbo.T.a", "dbo.T.b", "dbo.T.c"}, "IIF(...)"},
		{"nullif", "SELECT NULLIF(a, 0) FROM T", "nullif", []string{"dbo.T.a"}, "NULLIF(...)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extract(t, tt.sql, nil)
			require.Len(t, res.Edges, 1)
			e := res.Edges[0]
			assert.Equal(t, tt.target, e.TargetColumn)
			assert.Equal(t, tt.sources, names(e.SourceColumns))
			assert.Equal(t, tt.tag, e.Transformation)
		})
	}
}

func TestExtract_DerivedNames(t *testing.T) {
	res := extract(t, "SELECT UPPER(t.a), CASE WHEN t.a = 1 THEN t.b END, 1, t.b + 1, t.id, u.id FROM T t JOIN U u ON t.id = u.id", nil)

	var got []string
	for _, e := range res.Edges {
		got = append(got, e.TargetColumn)
	}
	assert.Equal(t, []string{"upper", "case_result", "expr", "expr_2", "id", "id_2"}, got)
}

func TestExtract_GenericExpressionNames(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"binary", "SELECT a + b, a * 2 FROM T", []string{"expr", "expr_2"}},
		{"unary and literal", "SELECT -a, 'x', @v FROM T", []string{"expr", "expr_2", "expr_3"}},
		{"alias takes the generic name", "SELECT a + 1 AS expr, b - 1 FROM T", []string{"expr", "expr_2"}},
		{"sequence has no name", "SELECT NEXT VALUE FOR dbo.seq, a FROM T", []string{"column_1", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extract(t, tt.sql, nil)
			var got []string
			for _, e := range res.Edges {
				got = append(got, e.TargetColumn)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_AliasKeepsName(t *testing.T) {
	res := extract(t, "SELECT b.x AS id, b.id FROM T b", nil)

	require.Len(t, res.Edges, 2)
	assert.Equal(t, "id", res.Edges[0].TargetColumn)
	assert.Equal(t, "id_2", res.Edges[1].TargetColumn)
	assert.Equal(t, []string{"dbo.T.id"}, names(res.Edges[1].SourceColumns))
}

func TestExtract_VariableAssignmentSelect(t *testing.T) {
	res := extract(t, "SELECT @v = a FROM T", nil)
	assert.Empty(t, res.Edges)
	assert.False(t, res.Failed())
}

func TestExtract_AmbiguousColumn(t *testing.T) {
	t.Run("without schema", func(t *testing.T) {
		res := extract(t, "SELECT b FROM S JOIN U ON S.id = U.id", nil)
		require.Len(t, res.Edges, 1)
		require.Len(t, res.Edges[0].SourceColumns, 1)
		ref := res.Edges[0].SourceColumns[0]
		assert.True(t, ref.Ambiguous)
		assert.False(t, ref.Resolved())
		assert.Equal(t, "b", ref.QualifiedName())
	})

	t.Run("schema narrows candidates", func(t *testing.T) {
		schema := staticSchema(map[string][]string{"s": {"id", "b"}, "u": {"id", "c"}})
		res := extract(t, "SELECT b FROM S JOIN U ON S.id = U.id", schema)
		require.Len(t, res.Edges, 1)
		ref := res.Edges[0].SourceColumns[0]
		assert.False(t, ref.Ambiguous)
		assert.Equal(t, "dbo.S.b", ref.QualifiedName())
	})
}

func TestExtract_Wildcard(t *testing.T) {
	t.Run("unresolved", func(t *testing.T) {
		res := extract(t, "SELECT * FROM T", nil)
		require.Len(t, res.Edges, 1)
		e := res.Edges[0]
		assert.True(t, e.IsWildcard)
		assert.Equal(t, "*", e.TargetColumn)
		assert.NotNil(t, e.SourceColumns)
		assert.Empty(t, e.SourceColumns)
		assert.Empty(t, e.WildcardQualifier)
	})

	t.Run("qualified unresolved", func(t *testing.T) {
		res := extract(t, "SELECT t.* FROM T t JOIN U u ON t.id = u.id", nil)
		require.Len(t, res.Edges, 1)
		assert.True(t, res.Edges[0].IsWildcard)
		assert.Equal(t, "t", res.Edges[0].WildcardQualifier)
	})

	t.Run("expanded with schema", func(t *testing.T) {
		res := extract(t, "SELECT * FROM T", staticSchema(map[string][]string{"t": {"a", "b"}}))
		require.Len(t, res.Edges, 2)
		assert.Equal(t, "a", res.Edges[0].TargetColumn)
		assert.Equal(t, []string{"dbo.T.a"}, names(res.Edges[0].SourceColumns))
		assert.Equal(t, "b", res.Edges[1].TargetColumn)
		assert.False(t, res.Edges[1].IsWildcard)
	})

	t.Run("partially known join stays a wildcard", func(t *testing.T) {
		res := extract(t, "SELECT * FROM T t JOIN U u ON t.id = u.id", staticSchema(map[string][]string{"t": {"id"}}))
		require.Len(t, res.Edges, 1)
		assert.True(t, res.Edges[0].IsWildcard)
	})

	t.Run("qualifier expands known table", func(t *testing.T) {
		res := extract(t, "SELECT t.* FROM T t JOIN U u ON t.id = u.id", staticSchema(map[string][]string{"t": {"id", "x"}}))
		require.Len(t, res.Edges, 2)
		assert.Equal(t, "x", res.Edges[1].TargetColumn)
		assert.Equal(t, "t", res.Edges[1].SourceColumns[0].TableAlias)
	})
}

func TestExtract_SetOperations(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		sources []string
		tag     string
	}{
		{"union", "SELECT a FROM T UNION SELECT b FROM U", []string{"dbo.T.a", "dbo.U.b"}, "UNION"},
		{"union all", "SELECT a FROM T UNION ALL SELECT b FROM U", []string{"dbo.T.a", "dbo.U.b"}, "UNION ALL"},
		{"intersect", "SELECT a FROM T INTERSECT SELECT b FROM U", []string{"dbo.T.a", "dbo.U.b"}, "INTERSECT"},
		{"except keeps left", "SELECT a FROM T EXCEPT SELECT b FROM U", []string{"dbo.T.a"}, ""},
		{"left tag wins", "SELECT UPPER(a) AS a FROM T UNION SELECT b FROM U", []string{"dbo.T.a", "dbo.U.b"}, "UPPER(...)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extract(t, tt.sql, nil)
			require.Len(t, res.Edges, 1)
			assert.Equal(t, "a", res.Edges[0].TargetColumn)
			assert.Equal(t, tt.sources, names(res.Edges[0].SourceColumns))
			assert.Equal(t, tt.tag, res.Edges[0].Transformation)
		})
	}
}

func TestExtract_CTEVisibleForBatch(t *testing.T) {
	res := extract(t, `WITH c AS (SELECT id, name FROM dbo.Customers)
SELECT id FROM c;
SELECT name FROM c;
GO
SELECT id FROM c`, nil)

	first := edgesOf(res, 0)
	require.Len(t, first, 3)
	assert.Equal(t, "c.id", first[0].Target())
	assert.Equal(t, []string{"dbo.Customers.id"}, names(first[0].SourceColumns))
	assert.Equal(t, "c.name", first[1].Target())
	assert.Equal(t, "id", first[2].Target())
	assert.Equal(t, TableCTE, first[2].SourceColumns[0].ResolvedKind)
	assert.Equal(t, []string{"c.id"}, names(first[2].SourceColumns))

	second := edgesOf(res, 1)
	require.Len(t, second, 1)
	assert.Equal(t, TableCTE, second[0].SourceColumns[0].ResolvedKind)

	third := edgesOf(res, 2)
	require.Len(t, third, 1)
	assert.Equal(t, TablePlain, third[0].SourceColumns[0].ResolvedKind)
	assert.Equal(t, []string{"dbo.c.id"}, names(third[0].SourceColumns))
}

func TestExtract_RecursiveCTE(t *testing.T) {
	res := extract(t, `WITH r AS (
  SELECT id, parent_id FROM dbo.Tree
  UNION ALL
  SELECT t.id, t.parent_id FROM dbo.Tree t JOIN r ON t.parent_id = r.id
)
SELECT id FROM r`, nil)

	require.Len(t, res.Edges, 3)
	assert.Equal(t, "r.id", res.Edges[0].Target())
	assert.Equal(t, []string{"dbo.Tree.id"}, names(res.Edges[0].SourceColumns))
	assert.Equal(t, "UNION ALL", res.Edges[0].Transformation)
	assert.Equal(t, []string{"r.id"}, names(res.Edges[2].SourceColumns))
}

func TestExtract_CTEColumnList(t *testing.T) {
	res := extract(t, "WITH c (x, y) AS (SELECT a, b FROM T) SELECT * FROM c", nil)

	require.Len(t, res.Edges, 4)
	assert.Equal(t, "c.x", res.Edges[0].Target())
	assert.Equal(t, []string{"dbo.T.a"}, names(res.Edges[0].SourceColumns))
	assert.Equal(t, "x", res.Edges[2].TargetColumn)
	assert.Equal(t, []string{"c.x"}, names(res.Edges[2].SourceColumns))
	assert.Equal(t, "y", res.Edges[3].TargetColumn)
}

func TestExtract_DerivedTable(t *testing.T) {
	res := extract(t, "SELECT d.total FROM (SELECT SUM(amount) AS total FROM dbo.Orders) AS d", nil)

	require.Len(t, res.Edges, 2)
	assert.Equal(t, "d.total", res.Edges[0].Target())
	assert.Equal(t, []string{"dbo.Orders.amount"}, names(res.Edges[0].SourceColumns))
	assert.Equal(t, "SUM(...)", res.Edges[0].Transformation)

	outer := res.Edges[1]
	assert.Equal(t, "total", outer.Target())
	require.Len(t, outer.SourceColumns, 1)
	assert.Equal(t, TableDerived, outer.SourceColumns[0].ResolvedKind)
	assert.Equal(t, "d.total", outer.SourceColumns[0].QualifiedName())
}

func TestExtract_SelectIntoFeedsLaterWildcard(t *testing.T) {
	res := extract(t, "SELECT a, b INTO #x FROM T; SELECT * FROM #x", nil)

	first := edgesOf(res, 0)
	require.Len(t, first, 2)
	assert.Equal(t, "#x.a", first[0].Target())
	assert.Empty(t, first[0].TargetSchema)

	second := edgesOf(res, 1)
	require.Len(t, second, 2)
	assert.Equal(t, []string{"#x.a"}, names(second[0].SourceColumns))
	assert.Equal(t, []string{"#x.b"}, names(second[1].SourceColumns))
}

func TestExtract_Objects(t *testing.T) {
	t.Run("view", func(t *testing.T) {
		res := extract(t, "CREATE VIEW dbo.v (x) AS SELECT a FROM T", nil)
		assert.Equal(t, []string{"dbo.v"}, res.Objects)
		require.Len(t, res.Edges, 1)
		assert.Equal(t, "dbo.v.x", res.Edges[0].Target())
		assert.Equal(t, []string{"dbo.T.a"}, names(res.Edges[0].SourceColumns))
	})

	t.Run("procedure result set", func(t *testing.T) {
		res := extract(t, "CREATE PROCEDURE dbo.p AS BEGIN SELECT a FROM T END", nil)
		assert.Equal(t, []string{"dbo.p"}, res.Objects)
		require.Len(t, res.Edges, 1)
		assert.Equal(t, "dbo.p.a", res.Edges[0].Target())
		assert.Equal(t, 2, res.Edges[0].StatementIndex)
	})

	t.Run("inline function", func(t *testing.T) {
		res := extract(t, "CREATE FUNCTION dbo.f(@x int) RETURNS TABLE AS RETURN (SELECT a FROM T WHERE b = @x)", nil)
		require.Len(t, res.Edges, 1)
		assert.Equal(t, "dbo.f.a", res.Edges[0].Target())
	})

	t.Run("trigger pseudo tables", func(t *testing.T) {
		res := extract(t, "CREATE TRIGGER trg ON dbo.T AFTER INSERT AS INSERT INTO dbo.audit (id) SELECT id FROM inserted", nil)
		require.Len(t, res.Edges, 1)
		e := res.Edges[0]
		assert.Equal(t, "dbo.audit.id", e.Target())
		require.Len(t, e.SourceColumns, 1)
		assert.Equal(t, "dbo.T.id", e.SourceColumns[0].QualifiedName())
		assert.Equal(t, "inserted", e.SourceColumns[0].TableAlias)
	})

	t.Run("cursor", func(t *testing.T) {
		res := extract(t, "DECLARE c CURSOR FOR SELECT a FROM T", nil)
		require.Len(t, res.Edges, 1)
		assert.Equal(t, "c.a", res.Edges[0].Target())
	})
}

func TestExtract_ParseFailure(t *testing.T) {
	res := ExtractSQL("SELECT FROM;", Options{Logger: testutil.NewTestLogger(t)})

	assert.NotEmpty(t, res.ParseErrors)
	assert.Empty(t, res.Edges)
	assert.True(t, res.Failed())
}

func TestExtract_NilScript(t *testing.T) {
	res := Extract(nil, nil, Options{})

	assert.NotNil(t, res.Edges)
	assert.NotNil(t, res.Findings)
	assert.False(t, res.Failed())
}

func TestExtract_DDLOnly(t *testing.T) {
	res := extract(t, "CREATE TABLE #t (id int); DROP TABLE #t", nil)

	assert.Empty(t, res.Edges)
	assert.False(t, res.Failed())
}
