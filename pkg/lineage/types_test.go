package lineage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceColumnRef_QualifiedName(t *testing.T) {
	tests := []struct {
		name string
		ref  SourceColumnRef
		want string
	}{
		{"bare", SourceColumnRef{ColumnName: "a"}, "a"},
		{"alias only", SourceColumnRef{ColumnName: "a", TableAlias: "x"}, "x.a"},
		{"resolved", SourceColumnRef{ColumnName: "a", TableAlias: "x", ResolvedSchema: "dbo", ResolvedTable: "T", ResolvedKind: TablePlain}, "dbo.T.a"},
		{"database", SourceColumnRef{ColumnName: "a", ResolvedDatabase: "dw", ResolvedSchema: "dbo", ResolvedTable: "T"}, "dw.dbo.T.a"},
		{"derived", SourceColumnRef{ColumnName: "a", TableAlias: "d", ResolvedTable: "(subquery)", ResolvedKind: TableDerived}, "d.a"},
		{"cte", SourceColumnRef{ColumnName: "a", TableAlias: "c2", ResolvedTable: "c", ResolvedKind: TableCTE}, "c.a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.QualifiedName())
		})
	}
}

func TestDistinctColumns(t *testing.T) {
	refs := []SourceColumnRef{
		{ColumnName: "Amount", ResolvedSchema: "dbo", ResolvedTable: "T"},
		{ColumnName: "amount", TableAlias: "t", ResolvedSchema: "DBO", ResolvedTable: "t"},
		{ColumnName: "b", Ambiguous: true},
		{ColumnName: "b"},
	}

	got := DistinctColumns(refs)

	require.Len(t, got, 3)
	assert.Equal(t, "Amount", got[0].ColumnName)
	assert.True(t, got[1].Ambiguous)
	assert.False(t, got[2].Ambiguous)
	assert.Len(t, refs, 4)
}

func TestEdge_Target(t *testing.T) {
	assert.Equal(t, "dbo.T.a", Edge{TargetSchema: "dbo", TargetTable: "T", TargetColumn: "a"}.Target())
	assert.Equal(t, "#t.a", Edge{TargetTable: "#t", TargetColumn: "a"}.Target())
	assert.Equal(t, "a", Edge{TargetColumn: "a"}.Target())
}

func TestResult_Summary(t *testing.T) {
	res := &Result{
		Edges: []Edge{
			{SourceColumns: []SourceColumnRef{{ColumnName: "a"}, {ColumnName: "b"}}},
			{SourceColumns: []SourceColumnRef{{ColumnName: "A"}}},
		},
		Findings: []Finding{{Risk: RiskMedium}, {Risk: RiskCritical}, {Risk: RiskLow}},
	}

	assert.True(t, res.HasDynamicSQL())
	assert.Equal(t, RiskCritical, res.HighestRisk())
	assert.Len(t, res.DistinctSources(), 2)
	assert.False(t, res.Failed())
	assert.Equal(t, RiskLow, (&Result{}).HighestRisk())
}

func TestRiskLevel_Text(t *testing.T) {
	for _, level := range []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical} {
		parsed, err := ParseRiskLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}

	parsed, err := ParseRiskLevel(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, parsed)

	_, err = ParseRiskLevel("severe")
	assert.Error(t, err)

	assert.Equal(t, "RiskLevel(9)", RiskLevel(9).String())
}

func TestFinding_JSON(t *testing.T) {
	data, err := json.Marshal(Finding{Kind: FindingSpExecuteSQL, Pattern: "EXEC sp_executesql @sql", Line: 3, Column: 5, Risk: RiskHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"SpExecuteSql","pattern":"EXEC sp_executesql @sql","line":3,"column":5,"risk":"High","statement_index":0}`, string(data))

	var f Finding
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, RiskHigh, f.Risk)
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}.withDefaults()

	assert.Equal(t, "dbo", opts.DefaultSchema)
	assert.Equal(t, 4, opts.Workers)
	assert.NotNil(t, opts.Logger)

	custom := Options{DefaultSchema: "sales", Workers: 1}.withDefaults()
	assert.Equal(t, "sales", custom.DefaultSchema)
	assert.Equal(t, 1, custom.Workers)
}
