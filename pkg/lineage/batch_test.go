package lineage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/testutil"
)

func TestExtractAll_PreservesOrder(t *testing.T) {
	var defs []Definition
	for i := range 20 {
		defs = append(defs, Definition{
			Name: fmt.Sprintf("dbo.v%d", i),
			SQL:  fmt.Sprintf("SELECT c%d FROM T%d", i, i),
		})
	}

	results, err := ExtractAll(context.Background(), defs, Options{Workers: 3, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	require.Len(t, results, len(defs))

	for i, res := range results {
		assert.Equal(t, defs[i].Name, res.Name)
		require.Len(t, res.Edges, 1)
		assert.Equal(t, fmt.Sprintf("c%d", i), res.Edges[0].TargetColumn)
		assert.Equal(t, fmt.Sprintf("T%d", i), res.Edges[0].SourceColumns[0].ResolvedTable)
	}
}

func TestExtractAll_ParseFailureIsNotAnError(t *testing.T) {
	results, err := ExtractAll(context.Background(), []Definition{
		{Name: "bad", SQL: "SELECT FROM;"},
		{Name: "good", SQL: "SELECT a FROM T"},
	}, Options{})
	require.NoError(t, err)

	assert.True(t, results[0].Failed())
	assert.False(t, results[1].Failed())
}

func TestExtractAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := ExtractAll(ctx, []Definition{{Name: "a", SQL: "SELECT 1"}}, Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestExtractAll_Empty(t *testing.T) {
	results, err := ExtractAll(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExtractAll_DefinitionSchema(t *testing.T) {
	results, err := ExtractAll(context.Background(), []Definition{
		{Name: "a", SQL: "SELECT x FROM T", DefaultSchema: "sales"},
		{Name: "b", SQL: "SELECT x FROM T"},
	}, Options{DefaultSchema: "etl"})
	require.NoError(t, err)

	assert.Equal(t, "sales", results[0].Edges[0].SourceColumns[0].ResolvedSchema)
	assert.Equal(t, "etl", results[1].Edges[0].SourceColumns[0].ResolvedSchema)
}
