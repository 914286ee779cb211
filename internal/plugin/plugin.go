// Package plugin defines the narrow capability surface every
// infrastructure data source must implement, and the value types
// (TableInfo, Filter, QueryOptions) that cross that boundary.
package plugin

import (
	"context"
	"time"

	"github.com/infraql/infraql/internal/rowset"
)

// TableInfo describes one table a Source exposes.
type TableInfo struct {
	Name        string
	Description string
	Columns     []rowset.ColumnInfo
	RowCount    *int
}

// Filter is the pushdown subset of a WHERE condition offered to a
// Source's Query call. A Source may honour any subset and must
// re-apply what it honours itself; the executor always re-applies the
// full predicate post-fetch so correctness never depends on pushdown
// compliance.
type Filter struct {
	Field       string
	Op          string
	Value       interface{}
	SecondValue interface{}
}

// QueryOptions carries hints a Source may use to reduce its own work.
type QueryOptions struct {
	Limit      *int
	Offset     *int
	OrderBy    []OrderHint
	Columns    []string
	MaxResults int
}

// OrderHint is one ORDER BY key passed through to a Source.
type OrderHint struct {
	Field     string
	Direction string
}

// HealthStatus is the result of a Source's health check.
type HealthStatus struct {
	Healthy bool
	Message string
	Latency time.Duration
}

// Source is the contract every data source plugin must implement.
// Initialise, Query, Tables, HealthCheck, and Cleanup are all
// suspension points: they may block on network I/O and must respect
// ctx cancellation. Trace, HealthCheck, and Cleanup are
// capability-tested with the optional TraceCapable/HealthCapable/
// CleanupCapable interfaces below rather than forced onto every
// implementer — growing optional capabilities via separate narrow
// interfaces instead of one fat one.
type Source interface {
	// Name is this source's unique registration name (e.g. "aws", "mock").
	Name() string
	// Initialise configures the source with its plugin-specific config
	// (credentials, regions, contexts — opaque to the core).
	Initialise(ctx context.Context, config interface{}) error
	// Tables returns the tables this source currently exposes.
	Tables(ctx context.Context) ([]TableInfo, error)
	// Query fetches rows for one table, honouring as much of filters
	// and options as this source supports; the executor re-applies the
	// full predicate regardless.
	Query(ctx context.Context, table string, filters []Filter, options QueryOptions) (*rowset.QueryResult, error)
}

// TraceCapable is implemented by sources that can follow an
// identifier=value pair across their own data.
type TraceCapable interface {
	Trace(ctx context.Context, identifier string, value interface{}) ([]rowset.Hop, error)
}

// HealthCapable is implemented by sources that can report liveness.
type HealthCapable interface {
	HealthCheck(ctx context.Context) (HealthStatus, error)
}

// CleanupCapable is implemented by sources that hold resources needing
// release at unregister time.
type CleanupCapable interface {
	Cleanup(ctx context.Context) error
}
