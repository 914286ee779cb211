package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

func sampleRows() []rowset.Row {
	return []rowset.Row{
		{"status": "active", "replicas": int64(2)},
		{"status": "active", "replicas": int64(3)},
		{"status": "degraded", "replicas": int64(1)},
	}
}

func TestAggregateGroupByWithCount(t *testing.T) {
	cols := []statement.Column{
		{Name: "status"},
		{Name: "*", Aggregate: statement.AggCount, Alias: "total"},
	}
	rows, _ := aggregate(sampleRows(), cols, []string{"status"})
	require.Len(t, rows, 2)

	byStatus := map[string]int64{}
	for _, r := range rows {
		byStatus[r["status"].(string)] = r["total"].(int64)
	}
	require.Equal(t, int64(2), byStatus["active"])
	require.Equal(t, int64(1), byStatus["degraded"])
}

func TestAggregateSumUsesDecimalInternally(t *testing.T) {
	cols := []statement.Column{
		{Name: "replicas", Aggregate: statement.AggSum, Alias: "total_replicas"},
	}
	rows, _ := aggregate(sampleRows(), cols, nil)
	require.Len(t, rows, 1)
	require.Equal(t, float64(6), rows[0]["total_replicas"])
}

func TestAggregateAvgOmitsNullValues(t *testing.T) {
	rows := []rowset.Row{{"x": int64(10)}, {"x": nil}, {"x": int64(20)}}
	cols := []statement.Column{{Name: "x", Aggregate: statement.AggAvg, Alias: "avg_x"}}
	out, _ := aggregate(rows, cols, nil)
	require.Equal(t, float64(15), out[0]["avg_x"])
}

func TestAggregateMinMax(t *testing.T) {
	cols := []statement.Column{
		{Name: "replicas", Aggregate: statement.AggMin, Alias: "min_r"},
		{Name: "replicas", Aggregate: statement.AggMax, Alias: "max_r"},
	}
	rows, _ := aggregate(sampleRows(), cols, nil)
	require.Equal(t, int64(1), rows[0]["min_r"])
	require.Equal(t, int64(3), rows[0]["max_r"])
}

func TestAggregateCountStarOverEmptyRowsEmitsOneRow(t *testing.T) {
	cols := []statement.Column{{Name: "*", Aggregate: statement.AggCount, Alias: "total"}}
	rows, _ := aggregate(nil, cols, nil)
	require.Len(t, rows, 1)
	require.Equal(t, int64(0), rows[0]["total"])
}

func TestAggregateNonGroupedColumnUsesFirstRow(t *testing.T) {
	rows := []rowset.Row{
		{"status": "active", "name": "api-gateway", "replicas": int64(2)},
		{"status": "active", "name": "auth-service", "replicas": int64(3)},
	}
	cols := []statement.Column{
		{Name: "status"},
		{Name: "name"},
		{Name: "replicas", Aggregate: statement.AggSum, Alias: "total"},
	}
	out, _ := aggregate(rows, cols, []string{"status"})
	require.Equal(t, "api-gateway", out[0]["name"], "permissive first-row semantics for non-aggregated column")
}
