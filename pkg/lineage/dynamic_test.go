package lineage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_Patterns(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind FindingKind
		risk RiskLevel
	}{
		{"exec string", "EXEC('SELECT * FROM t')", FindingExecString, RiskHigh},
		{"exec variable string", "EXEC (@sql)", FindingExecString, RiskHigh},
		{"exec concatenation", "EXECUTE (@a + @b)", FindingExecString, RiskHigh},
		{"exec procedure variable", "EXEC @proc", FindingExecVariable, RiskHigh},
		{"sp_executesql", "EXEC sp_executesql @sql", FindingSpExecuteSQL, RiskHigh},
		{"qualified sp_executesql", "EXEC sys.sp_executesql N'SELECT 1'", FindingSpExecuteSQL, RiskHigh},
		{"sp_execute", "EXEC sp_execute 1, 2", FindingSpExecute, RiskMedium},
		{"sp_prepexec", "EXEC sp_prepexec @handle OUTPUT, NULL, N'SELECT 1'", FindingSpExecute, RiskMedium},
		{"suspicious parameter", "EXEC dbo.run_batch @text = @myQuery", FindingExecVariable, RiskMedium},
		{"linked server exec", "EXEC ('SELECT 1') AT LinkedSrv", FindingOpenQuery, RiskCritical},
		{"openquery", "SELECT a FROM OPENQUERY(LinkedSrv, 'SELECT a FROM t') q", FindingOpenQuery, RiskCritical},
		{"openrowset", "SELECT * FROM OPENROWSET('SQLNCLI', 'Server=x;Trusted_Connection=yes;', 'SELECT 1') AS r", FindingOpenQuery, RiskCritical},
		{"insert exec", "INSERT INTO #t EXEC dbo.p", FindingInsertExec, RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extract(t, tt.sql, nil)
			require.Len(t, res.Findings, 1)
			f := res.Findings[0]
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.risk, f.Risk)
			assert.Equal(t, 1, f.Line)
			assert.NotEmpty(t, f.Pattern)
			assert.True(t, res.HasDynamicSQL())
			assert.Equal(t, tt.risk, res.HighestRisk())
		})
	}
}

func TestDetect_SpExecuteSQLHasNoEdges(t *testing.T) {
	res := extract(t, "EXEC sp_executesql @sql", nil)

	assert.Empty(t, res.Edges)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, FindingSpExecuteSQL, res.Findings[0].Kind)
	assert.Equal(t, RiskHigh, res.Findings[0].Risk)
}

func TestDetect_NoFindings(t *testing.T) {
	for _, sql := range []string{
		"EXEC dbo.p",
		"EXEC dbo.p @id = @customerId",
		"SELECT a FROM T",
		"DECLARE @sql nvarchar(max) = N'SELECT 1'",
	} {
		t.Run(sql, func(t *testing.T) {
			res := extract(t, sql, nil)
			assert.Empty(t, res.Findings)
			assert.False(t, res.HasDynamicSQL())
			assert.Equal(t, RiskLow, res.HighestRisk())
		})
	}
}

func TestDetect_NestedStatementsOnce(t *testing.T) {
	res := extract(t, `CREATE PROCEDURE dbo.p AS
BEGIN
  IF @x = 1
    EXEC (@sql)
  ELSE
    EXEC sp_execute 1
END`, nil)

	require.Len(t, res.Findings, 2)
	assert.Equal(t, FindingExecString, res.Findings[0].Kind)
	assert.Equal(t, 4, res.Findings[0].Line)
	assert.Equal(t, FindingSpExecute, res.Findings[1].Kind)
	assert.Equal(t, 6, res.Findings[1].Line)
	assert.Equal(t, RiskHigh, res.HighestRisk())
}

func TestDetect_OrderedByPosition(t *testing.T) {
	res := extract(t, `SELECT a FROM OPENQUERY(Srv, 'SELECT a FROM t') q
  JOIN OPENQUERY(Srv, 'SELECT b FROM u') r ON q.a = r.b;
EXEC (@sql)`, nil)

	require.Len(t, res.Findings, 3)
	assert.Equal(t, 1, res.Findings[0].Line)
	assert.Equal(t, 2, res.Findings[1].Line)
	assert.Equal(t, 3, res.Findings[2].Line)
	assert.Equal(t, RiskCritical, res.HighestRisk())
}

func TestDetect_InsertExecDynamic(t *testing.T) {
	res := extract(t, "INSERT INTO T (a) EXEC sp_executesql @sql", nil)

	require.Len(t, res.Findings, 1)
	assert.Equal(t, FindingSpExecuteSQL, res.Findings[0].Kind)
	require.Len(t, res.Edges, 1)
	assert.True(t, res.Edges[0].IsDynamicSource)
	assert.Equal(t, "EXEC sp_executesql", res.Edges[0].Transformation)
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "EXEC (@sql)", pattern("EXEC   (@sql)\n"))

	long := "EXEC ('" + strings.Repeat("x", 200) + "')"
	got := pattern(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, maxPatternLength+3, len([]rune(got)))
}

func TestPatterns_ExamplesAreDetected(t *testing.T) {
	patterns := Patterns()
	require.NotEmpty(t, patterns)

	for i, p := range patterns {
		t.Run(p.Construct, func(t *testing.T) {
			res := extract(t, p.Example, nil)
			require.Len(t, res.Findings, 1)
			assert.Equal(t, p.Kind, res.Findings[0].Kind)
			assert.Equal(t, p.Risk, res.Findings[0].Risk)
			if i > 0 {
				assert.LessOrEqual(t, p.Risk, patterns[i-1].Risk, "ordered by risk")
			}
		})
	}
}
