package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/plugin"
)

func TestTablesListsAllThreeFixtureTables(t *testing.T) {
	s := New()
	tables, err := s.Tables(context.Background())
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tbl := range tables {
		names[tbl.Name] = true
	}
	require.True(t, names["services"])
	require.True(t, names["deployments"])
	require.True(t, names["incidents"])
}

func TestQueryServicesDoesNotLeakInternalTimestampColumn(t *testing.T) {
	s := New()
	result, err := s.Query(context.Background(), "services", nil, plugin.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	for _, row := range result.Rows {
		_, hasTimestamp := row["timestamp"]
		require.False(t, hasTimestamp, "internal timestamp bookkeeping must not leak into query results")
	}
}

func TestQueryUnknownTableErrors(t *testing.T) {
	s := New()
	_, err := s.Query(context.Background(), "does-not-exist", nil, plugin.QueryOptions{})
	require.Error(t, err)
}

func TestTraceFindsHopsAcrossTables(t *testing.T) {
	s := New()
	hops, err := s.Trace(context.Background(), "service_id", "svc-1")
	require.NoError(t, err)

	tables := map[string]bool{}
	for _, hop := range hops {
		tables[hop.Table] = true
	}
	require.True(t, tables["services"], "services matched via the id-fallback for service_id")
	require.True(t, tables["deployments"])
}

func TestHealthCheckAlwaysHealthy(t *testing.T) {
	s := New()
	status, err := s.HealthCheck(context.Background())
	require.NoError(t, err)
	require.True(t, status.Healthy)
}
