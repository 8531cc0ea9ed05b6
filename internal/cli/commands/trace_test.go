package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqllineage/internal/cli/output"
)

func traceProject(t *testing.T) string {
	t.Helper()
	return writeProject(t, map[string]string{
		"procs/usp_stage_orders.sql": `CREATE PROCEDURE dbo.usp_stage_orders AS
BEGIN
    INSERT INTO stg.Orders (id, total)
    SELECT o.id, o.qty * o.price
    FROM sales.Orders o;
END
`,
		"procs/usp_load_facts.sql": `CREATE PROCEDURE dbo.usp_load_facts AS
BEGIN
    INSERT INTO dbo.OrderFacts (order_id, total)
    SELECT s.id, s.total
    FROM stg.Orders s;
END
`,
	})
}

func TestTraceCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		direction string
		want      []string
	}{
		{
			name:      "upstream",
			args:      []string{"dbo.OrderFacts.total"},
			direction: "upstream",
			want:      []string{"sales.Orders.price", "sales.Orders.qty", "stg.Orders.total"},
		},
		{
			name:      "downstream ignores case",
			args:      []string{"SALES.ORDERS.ID", "--downstream"},
			direction: "downstream",
			want:      []string{"dbo.OrderFacts.order_id", "stg.Orders.id"},
		},
		{
			name:      "source column has no upstream",
			args:      []string{"sales.Orders.qty"},
			direction: "upstream",
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := traceProject(t)
			out, err := execute(t, NewTraceCommand(), testConfig(dir), tt.args...)
			require.NoError(t, err)

			var got TraceOutput
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.direction, got.Direction)

			names := []string{}
			for _, c := range got.Columns {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTraceCommand_Writers(t *testing.T) {
	dir := traceProject(t)
	out, err := execute(t, NewTraceCommand(), testConfig(dir), "dbo.OrderFacts.total")
	require.NoError(t, err)

	var got TraceOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dbo.OrderFacts.total", got.Column)
	assert.Equal(t, []string{"usp_load_facts"}, got.Writers)
	require.NotEmpty(t, got.Columns)
	assert.Equal(t, []string{"usp_stage_orders"}, got.Columns[len(got.Columns)-1].Writers)
}

func TestTraceCommand_UnknownColumn(t *testing.T) {
	dir := traceProject(t)
	_, err := execute(t, NewTraceCommand(), testConfig(dir), "dbo.Nope.x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "dbo.Nope.x" not found`)
}

func TestRenderTrace(t *testing.T) {
	out := &TraceOutput{
		Column:    "dbo.OrderFacts.total",
		Direction: "upstream",
		Columns: []TracedColumn{
			{Name: "sales.Orders.qty"},
			{Name: "stg.Orders.total", Writers: []string{"dbo.usp_stage_orders"}},
		},
	}

	t.Run("markdown", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := output.NewRendererWithTTY(buf, &bytes.Buffer{}, false, output.ModeMarkdown)
		renderTraceMarkdown(r, out)

		md := buf.String()
		assert.Contains(t, md, "# dbo.OrderFacts.total")
		assert.Contains(t, md, "2 upstream column(s)")
		assert.Contains(t, md, "- `sales.Orders.qty`\n")
		assert.Contains(t, md, "- `stg.Orders.total` (written by dbo.usp_stage_orders)")
	})

	t.Run("text empty", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := output.NewRendererWithTTY(buf, &bytes.Buffer{}, false, output.ModeText)
		renderTraceText(r, &TraceOutput{Column: "sales.Orders.id", Direction: "downstream"})
		assert.Contains(t, buf.String(), "No downstream columns")
	})
}
