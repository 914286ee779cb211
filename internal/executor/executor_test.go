package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/cache"
	"github.com/infraql/infraql/internal/config"
	"github.com/infraql/infraql/internal/mock"
	"github.com/infraql/infraql/internal/parserql"
	"github.com/infraql/infraql/internal/registry"
	"github.com/infraql/infraql/internal/rowset"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(context.Background(), mock.New(), nil))
	return New(reg, cache.New(), config.ExecutorConfig{DefaultMaxResults: 10000})
}

func mustSelect(t *testing.T, e *Executor, query string) *rowset.QueryResult {
	t.Helper()
	stmt, err := parserql.Parse(query)
	require.NoError(t, err)
	result, err := e.Execute(context.Background(), stmt)
	require.NoError(t, err)
	qr, ok := result.(*rowset.QueryResult)
	require.True(t, ok)
	return qr
}

func TestSelectStarReturnsAllThreeServices(t *testing.T) {
	e := newTestExecutor(t)
	result := mustSelect(t, e, "SELECT * FROM services")
	require.Equal(t, 3, result.RowCount)

	names := make(map[string]bool)
	for _, c := range result.Columns {
		names[c.Name] = true
	}
	for _, want := range []string{"id", "name", "environment", "version", "status", "cpu_usage", "memory_usage"} {
		require.True(t, names[want], "missing column %q", want)
	}
}

func TestSelectWithFilterAndProjection(t *testing.T) {
	e := newTestExecutor(t)
	result := mustSelect(t, e, "SELECT name, status FROM services WHERE environment = 'production'")
	require.Equal(t, 2, result.RowCount)

	seenNames := map[string]bool{}
	for _, row := range result.Rows {
		require.Len(t, row, 2)
		_, hasStatus := row["status"]
		require.True(t, hasStatus)
		name, _ := row["name"].(string)
		seenNames[name] = true
	}
	require.True(t, seenNames["api-gateway"])
	require.True(t, seenNames["auth-service"])
}

func TestSelectOrderByNameAscending(t *testing.T) {
	e := newTestExecutor(t)
	result := mustSelect(t, e, "SELECT name FROM services ORDER BY name ASC")
	var names []string
	for _, row := range result.Rows {
		names = append(names, row["name"].(string))
	}
	require.Equal(t, []string{"api-gateway", "auth-service", "data-processor"}, names)
}

func TestSelectCountStar(t *testing.T) {
	e := newTestExecutor(t)
	result := mustSelect(t, e, "SELECT COUNT(*) AS total FROM services")
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(3), result.Rows[0]["total"])
}

func TestSelectGroupByStatus(t *testing.T) {
	e := newTestExecutor(t)
	result := mustSelect(t, e, "SELECT status, COUNT(*) AS count FROM services GROUP BY status")
	require.Len(t, result.Rows, 2)

	counts := map[string]int64{}
	for _, row := range result.Rows {
		counts[row["status"].(string)] = row["count"].(int64)
	}
	require.Equal(t, int64(2), counts["active"])
	require.Equal(t, int64(1), counts["degraded"])
}

func TestSelectSumReplicas(t *testing.T) {
	e := newTestExecutor(t)
	result := mustSelect(t, e, "SELECT SUM(replicas) AS s FROM deployments")
	require.Len(t, result.Rows, 1)
	require.Equal(t, float64(6), result.Rows[0]["s"])
}

func TestSelectInnerJoinKeysMatch(t *testing.T) {
	e := newTestExecutor(t)
	result := mustSelect(t, e, "SELECT * FROM services INNER JOIN deployments ON services.id = deployments.service_id")
	require.NotEmpty(t, result.Rows)
	for _, row := range result.Rows {
		require.Equal(t, row["services.id"], row["deployments.service_id"])
	}
}

func TestSelectLeftJoinRowCountAtLeastLeftCount(t *testing.T) {
	e := newTestExecutor(t)
	base := mustSelect(t, e, "SELECT * FROM services")
	joined := mustSelect(t, e, "SELECT * FROM services LEFT JOIN incidents ON services.id = incidents.service_id")
	require.GreaterOrEqual(t, joined.RowCount, base.RowCount)
}

func TestTraceOrdersHopsAscendingAcrossTables(t *testing.T) {
	e := newTestExecutor(t)
	stmt, err := parserql.Parse("TRACE service_id = 'svc-1' THROUGH mock")
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), stmt)
	require.NoError(t, err)
	tr, ok := result.(*rowset.TraceResult)
	require.True(t, ok)

	tables := map[string]bool{}
	for _, hop := range tr.Hops {
		tables[hop.Table] = true
	}
	require.True(t, tables["services"])
	require.True(t, tables["deployments"])

	for i := 1; i < len(tr.Hops); i++ {
		require.LessOrEqual(t, tr.Hops[i-1].Timestamp, tr.Hops[i].Timestamp)
	}
}

func TestDescribeReturnsSchema(t *testing.T) {
	e := newTestExecutor(t)
	stmt, err := parserql.Parse("DESCRIBE services")
	require.NoError(t, err)
	result, err := e.Execute(context.Background(), stmt)
	require.NoError(t, err)
	d, ok := result.(*rowset.DescribeResult)
	require.True(t, ok)
	require.Equal(t, "services", d.Table)
	require.NotEmpty(t, d.Columns)
}

func TestShowTables(t *testing.T) {
	e := newTestExecutor(t)
	stmt, err := parserql.Parse("SHOW TABLES")
	require.NoError(t, err)
	result, err := e.Execute(context.Background(), stmt)
	require.NoError(t, err)
	sh, ok := result.(*rowset.ShowResult)
	require.True(t, ok)
	require.Len(t, sh.Items, 3)
}

func TestCacheShowAfterQueriesReportsHits(t *testing.T) {
	e := newTestExecutor(t)
	mustSelect(t, e, "SELECT * FROM services")
	mustSelect(t, e, "SELECT * FROM services")

	stmt, err := parserql.Parse("CACHE SHOW")
	require.NoError(t, err)
	result, err := e.Execute(context.Background(), stmt)
	require.NoError(t, err)
	cr, ok := result.(*rowset.CacheResult)
	require.True(t, ok)
	require.GreaterOrEqual(t, cr.Stats.Hits, int64(1))
}

func TestUnknownTableReturnsExecutionError(t *testing.T) {
	e := newTestExecutor(t)
	stmt, err := parserql.Parse("SELECT * FROM nonexistent")
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), stmt)
	require.Error(t, err)
}

func TestTruncationCapsResultAtDefaultMaxResults(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(context.Background(), mock.New(), nil))
	e := New(reg, cache.New(), config.ExecutorConfig{DefaultMaxResults: 1})

	result := mustSelect(t, e, "SELECT * FROM services")
	require.Equal(t, 1, result.RowCount)
	require.True(t, result.Truncated)
	require.Equal(t, 3, result.TotalCount)
}

func TestPushdownNeutralityFilterReappliedPostFetch(t *testing.T) {
	e := newTestExecutor(t)
	withFilter := mustSelect(t, e, "SELECT name FROM services WHERE status = 'active'")

	all := mustSelect(t, e, "SELECT name, status FROM services")
	var manual []string
	for _, row := range all.Rows {
		if row["status"] == "active" {
			manual = append(manual, row["name"].(string))
		}
	}
	var got []string
	for _, row := range withFilter.Rows {
		got = append(got, row["name"].(string))
	}
	require.ElementsMatch(t, manual, got)
}
