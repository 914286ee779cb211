package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/plugin"
	"github.com/infraql/infraql/internal/rowset"
)

func sampleResult() *rowset.QueryResult {
	return &rowset.QueryResult{
		Rows:     []rowset.Row{{"id": "1"}},
		RowCount: 1,
	}
}

func TestFingerprintIsOrderInsensitive(t *testing.T) {
	filtersA := []plugin.Filter{{Field: "status", Op: "="}, {Field: "env", Op: "="}}
	filtersB := []plugin.Filter{{Field: "env", Op: "="}, {Field: "status", Op: "="}}
	require.Equal(t, Fingerprint("services", filtersA, plugin.QueryOptions{}), Fingerprint("services", filtersB, plugin.QueryOptions{}))
}

func TestSetThenGetHits(t *testing.T) {
	c := New()
	opts := plugin.QueryOptions{}
	c.Set("services", nil, opts, sampleResult())

	got, ok := c.Get("services", nil, opts)
	require.True(t, ok)
	require.Equal(t, 1, got.RowCount)

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
}

func TestGetMissIncrementsMisses(t *testing.T) {
	c := New()
	_, ok := c.Get("services", nil, plugin.QueryOptions{})
	require.False(t, ok)
	require.Equal(t, int64(1), c.Stats().Misses)
}

func TestExpiredEntryIsTreatedAsMiss(t *testing.T) {
	c := New()
	c.SetDefaultTTL(time.Millisecond)
	c.Set("services", nil, plugin.QueryOptions{}, sampleResult())
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("services", nil, plugin.QueryOptions{})
	require.False(t, ok)
}

func TestPerTableTTLOverridesDefault(t *testing.T) {
	c := New()
	c.SetDefaultTTL(time.Hour)
	c.SetTableTTL("services", time.Millisecond)
	c.Set("services", nil, plugin.QueryOptions{}, sampleResult())
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("services", nil, plugin.QueryOptions{})
	require.False(t, ok)
}

func TestDisabledCacheNeverStores(t *testing.T) {
	c := New()
	c.SetEnabled(false)
	c.Set("services", nil, plugin.QueryOptions{}, sampleResult())

	_, ok := c.Get("services", nil, plugin.QueryOptions{})
	require.False(t, ok)
}

func TestMaxSizeEvictsOldestInsertion(t *testing.T) {
	c := New()
	c.SetMaxSize(2)

	c.Set("t1", nil, plugin.QueryOptions{}, sampleResult())
	c.Set("t2", nil, plugin.QueryOptions{}, sampleResult())
	c.Set("t3", nil, plugin.QueryOptions{}, sampleResult())

	_, ok := c.Get("t1", nil, plugin.QueryOptions{})
	require.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get("t3", nil, plugin.QueryOptions{})
	require.True(t, ok)
}

func TestClearTableOnlyAffectsNamedTable(t *testing.T) {
	c := New()
	c.Set("t1", nil, plugin.QueryOptions{}, sampleResult())
	c.Set("t2", nil, plugin.QueryOptions{}, sampleResult())

	c.ClearTable("t1")

	_, ok := c.Get("t1", nil, plugin.QueryOptions{})
	require.False(t, ok)
	_, ok = c.Get("t2", nil, plugin.QueryOptions{})
	require.True(t, ok)
}

func TestStatsReportsPerTableHits(t *testing.T) {
	c := New()
	c.Set("services", nil, plugin.QueryOptions{}, sampleResult())
	c.Get("services", nil, plugin.QueryOptions{})
	c.Get("services", nil, plugin.QueryOptions{})

	stats := c.Stats()
	require.Equal(t, int64(2), stats.PerTableHits["services"])
	require.Len(t, stats.Entries, 1)
}
