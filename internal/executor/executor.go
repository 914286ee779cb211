// Package executor implements the SELECT pipeline and the thin
// catalogue/cache lookups behind TRACE, DESCRIBE, SHOW, and CACHE.
// Statement dispatch happens in Execute; SELECT is the only branch
// with non-trivial logic.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/infraql/infraql/internal/cache"
	"github.com/infraql/infraql/internal/config"
	"github.com/infraql/infraql/internal/plugin"
	"github.com/infraql/infraql/internal/qerrors"
	"github.com/infraql/infraql/internal/registry"
	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
	"github.com/infraql/infraql/internal/telemetry"
)

// Executor resolves tables, pushes filters down to owning plugins, and
// runs the in-memory relational operators over what comes back.
type Executor struct {
	Registry *registry.Registry
	Cache    *cache.Cache
	Config   config.ExecutorConfig
}

// New creates an Executor wired to reg and c with the given config.
func New(reg *registry.Registry, c *cache.Cache, cfg config.ExecutorConfig) *Executor {
	return &Executor{Registry: reg, Cache: c, Config: cfg}
}

// Execute dispatches stmt to the right handler and returns one of
// *rowset.QueryResult, *rowset.TraceResult, *rowset.DescribeResult,
// *rowset.ShowResult, or *rowset.CacheResult.
func (e *Executor) Execute(ctx context.Context, stmt *statement.Statement) (interface{}, error) {
	switch stmt.Kind {
	case statement.KindSelect:
		return e.executeSelect(ctx, stmt.Select)
	case statement.KindTrace:
		return e.executeTrace(ctx, stmt.Trace)
	case statement.KindDescribe:
		return e.executeDescribe(ctx, stmt.Describe)
	case statement.KindShow:
		return e.executeShow(ctx, stmt.Show)
	case statement.KindCache:
		return e.executeCache(ctx, stmt.Cache)
	default:
		return nil, qerrors.Execution("unknown statement kind", nil)
	}
}

// resolveTable looks up table in the aggregated catalogue, returning
// an execution-kind error naming the table if it's missing, or naming
// both owning sources if the table name is ambiguous across plugins.
func (e *Executor) resolveTable(ctx context.Context, table string) (registry.CatalogueEntry, error) {
	entries := e.Registry.TablesAll(ctx)

	var matches []registry.CatalogueEntry
	for _, entry := range entries {
		if entry.Table.Name == table {
			matches = append(matches, entry)
		}
	}

	switch len(matches) {
	case 0:
		return registry.CatalogueEntry{}, qerrors.Execution(fmt.Sprintf("unknown table %q", table), map[string]interface{}{"table": table})
	case 1:
		return matches[0], nil
	default:
		sources := make([]string, 0, len(matches))
		for _, m := range matches {
			sources = append(sources, m.Source)
		}
		return registry.CatalogueEntry{}, qerrors.Execution(
			fmt.Sprintf("table %q is ambiguous across sources %v", table, sources),
			map[string]interface{}{"table": table, "sources": sources},
		)
	}
}

func (e *Executor) executeSelect(ctx context.Context, sel *statement.Select) (*rowset.QueryResult, error) {
	start := time.Now()

	base, err := e.resolveTable(ctx, sel.From)
	if err != nil {
		return nil, err
	}

	filters := lowerFilters(sel.Where)
	options := buildQueryOptions(sel, e.Config.DefaultMaxResults)

	cacheable := isCacheable(sel)
	if cacheable {
		if cached, ok := e.Cache.Get(sel.From, filters, options); ok {
			out := *cached
			out.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
			telemetry.Logger(ctx).WithField("table", sel.From).Debug("cache hit")
			return &out, nil
		}
	}

	baseResult, err := e.Registry.Query(ctx, base.Source, sel.From, filters, options)
	if err != nil {
		return nil, err
	}
	rows := append([]rowset.Row(nil), baseResult.Rows...)
	columns := append([]rowset.ColumnInfo(nil), baseResult.Columns...)

	if sel.Where != nil {
		rows = filterRows(rows, sel.Where)
	}

	for _, join := range sel.Joins {
		rows, columns, err = e.applyJoin(ctx, rows, columns, sel.From, join)
		if err != nil {
			return nil, err
		}
	}

	hasAggregate := false
	for _, c := range sel.Columns {
		if c.Aggregate != "" {
			hasAggregate = true
			break
		}
	}

	totalCount := len(rows)

	if hasAggregate {
		rows, columns = aggregate(rows, sel.Columns, sel.GroupBy)
		if sel.Having != nil {
			rows = filterRows(rows, sel.Having)
		}
		totalCount = len(rows)
	} else if !isStar(sel.Columns) {
		rows, columns = project(rows, columns, sel.Columns)
	}

	if sel.OrderBy != nil {
		rows = orderRows(rows, sel.OrderBy)
	}

	truncated := false
	var warning string
	if sel.Limit == nil && sel.Offset == nil {
		if len(rows) > e.Config.DefaultMaxResults {
			rows = rows[:e.Config.DefaultMaxResults]
			truncated = true
			warning = "result truncated to the default row cap; narrow with WHERE or add LIMIT/OFFSET"
		}
	} else {
		rows = paginate(rows, sel.Offset, sel.Limit)
	}

	result := &rowset.QueryResult{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		TotalCount:      totalCount,
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Source:          base.Source,
		Truncated:       truncated,
		Warning:         warning,
	}

	if cacheable && e.Cache != nil {
		e.Cache.Set(sel.From, filters, options, result)
	}

	return result, nil
}

// isCacheable reports whether sel has no joins, no aggregates, and no
// HAVING — the only plans the cache accepts.
func isCacheable(sel *statement.Select) bool {
	if len(sel.Joins) > 0 || sel.Having != nil {
		return false
	}
	for _, c := range sel.Columns {
		if c.Aggregate != "" {
			return false
		}
	}
	return true
}

func isStar(cols []statement.Column) bool {
	return len(cols) == 1 && cols[0].Name == "*" && cols[0].Alias == ""
}

func buildQueryOptions(sel *statement.Select, defaultMaxResults int) plugin.QueryOptions {
	opts := plugin.QueryOptions{
		Limit:  sel.Limit,
		Offset: sel.Offset,
	}
	if !isStar(sel.Columns) {
		for _, c := range sel.Columns {
			if c.Aggregate == "" {
				opts.Columns = append(opts.Columns, c.Name)
			}
		}
	}
	for _, o := range sel.OrderBy {
		opts.OrderBy = append(opts.OrderBy, plugin.OrderHint{Field: o.Field, Direction: string(o.Direction)})
	}
	if sel.Limit == nil {
		opts.MaxResults = defaultMaxResults
	}
	return opts
}

// lowerFilters builds the pushdown filter list from a WHERE predicate.
// Only conditions reachable through the single top-level combinator
// are pushed; BETWEEN/IN carry their extra value(s) through as-is.
func lowerFilters(where *statement.Predicate) []plugin.Filter {
	if where == nil {
		return nil
	}
	filters := make([]plugin.Filter, 0, len(where.Conditions))
	for _, c := range where.Conditions {
		filters = append(filters, plugin.Filter{
			Field:       c.Field,
			Op:          string(c.Op),
			Value:       c.Value,
			SecondValue: c.SecondValue,
		})
	}
	return filters
}
