package infraql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/mock"
	"github.com/infraql/infraql/internal/rowset"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewDefaultEngine()
	require.NoError(t, e.RegisterSource(context.Background(), mock.New(), nil))
	return e
}

func TestQueryDispatchesSelect(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Query(context.Background(), "SELECT * FROM services")
	require.NoError(t, err)
	qr, ok := result.(*rowset.QueryResult)
	require.True(t, ok)
	require.Equal(t, 3, qr.RowCount)
	require.NotEmpty(t, qr.QueryID)
}

func TestQueryPropagatesParseError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Query(context.Background(), "NOT A VALID QUERY")
	require.Error(t, err)
}

func TestQueryPropagatesExecutionError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Query(context.Background(), "SELECT * FROM nonexistent")
	require.Error(t, err)
}

func TestRegisterSourceRejectsDuplicateName(t *testing.T) {
	e := newTestEngine(t)
	err := e.RegisterSource(context.Background(), mock.New(), nil)
	require.Error(t, err)
}

func TestCacheConfigIsAppliedAtConstruction(t *testing.T) {
	e := newTestEngine(t)
	result1, err := e.Query(context.Background(), "SELECT * FROM services")
	require.NoError(t, err)
	result2, err := e.Query(context.Background(), "SELECT * FROM services")
	require.NoError(t, err)

	qr1 := result1.(*rowset.QueryResult)
	qr2 := result2.(*rowset.QueryResult)
	require.Equal(t, qr1.RowCount, qr2.RowCount)
	require.Equal(t, int64(1), e.Cache.Stats().Hits, "default config enables the cache, so the repeat query is a hit")
}
