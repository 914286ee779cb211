package executor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/infraql/infraql/internal/qerrors"
	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

// executeTrace delegates to the registry's parallel fan-out and
// time-orders the merged hops: each hop's timestamp is parsed to a
// canonical instant before sorting, falling back to string comparison
// when parsing fails.
func (e *Executor) executeTrace(ctx context.Context, tr *statement.Trace) (*rowset.TraceResult, error) {
	hops := e.Registry.Trace(ctx, tr.Identifier, tr.Value, tr.Through)

	sort.SliceStable(hops, func(i, j int) bool {
		ti, oki := parseHopTime(hops[i].Timestamp)
		tj, okj := parseHopTime(hops[j].Timestamp)
		if oki && okj {
			return ti.Before(tj)
		}
		return hops[i].Timestamp < hops[j].Timestamp
	})

	return &rowset.TraceResult{
		Identifier: tr.Identifier,
		Value:      tr.Value,
		Hops:       hops,
		TotalHops:  len(hops),
	}, nil
}

func parseHopTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// executeDescribe is a thin catalogue lookup.
func (e *Executor) executeDescribe(ctx context.Context, d *statement.Describe) (*rowset.DescribeResult, error) {
	entry, err := e.resolveTable(ctx, d.Target)
	if err != nil {
		return nil, err
	}
	return &rowset.DescribeResult{
		Table:   entry.Table.Name,
		Source:  entry.Source,
		Columns: entry.Table.Columns,
	}, nil
}

// executeShow is a thin catalogue/registry lookup.
func (e *Executor) executeShow(ctx context.Context, sh *statement.Show) (*rowset.ShowResult, error) {
	switch sh.What {
	case statement.ShowTables:
		entries := e.Registry.TablesAll(ctx)
		items := make([]interface{}, 0, len(entries))
		for _, entry := range entries {
			items = append(items, map[string]interface{}{
				"source": entry.Source,
				"table":  entry.Table.Name,
			})
		}
		return &rowset.ShowResult{What: string(sh.What), Items: items}, nil

	case statement.ShowPlugins, statement.ShowSources:
		names := e.Registry.Names()
		items := make([]interface{}, 0, len(names))
		for _, n := range names {
			items = append(items, n)
		}
		return &rowset.ShowResult{What: string(sh.What), Items: items}, nil

	default:
		return nil, qerrors.Execution(fmt.Sprintf("unsupported SHOW target %q", sh.What), map[string]interface{}{"target": sh.What})
	}
}

// executeCache dispatches a cache-control command.
func (e *Executor) executeCache(ctx context.Context, c *statement.Cache) (*rowset.CacheResult, error) {
	switch c.Action {
	case statement.CacheShow:
		stats := e.Cache.Stats()
		return &rowset.CacheResult{Action: string(c.Action), Stats: &stats}, nil

	case statement.CacheClear:
		if c.Table != "" {
			e.Cache.ClearTable(c.Table)
			return &rowset.CacheResult{Action: string(c.Action), Message: fmt.Sprintf("cache cleared for table %q", c.Table)}, nil
		}
		e.Cache.Clear()
		return &rowset.CacheResult{Action: string(c.Action), Message: "cache cleared"}, nil

	case statement.CacheSetTTL:
		if c.TTLMillis <= 0 {
			return nil, qerrors.Execution("SET TTL requires a positive millisecond value", map[string]interface{}{"ttlMillis": c.TTLMillis})
		}
		ttl := time.Duration(c.TTLMillis) * time.Millisecond
		if c.Table != "" {
			e.Cache.SetTableTTL(c.Table, ttl)
			return &rowset.CacheResult{Action: string(c.Action), Message: fmt.Sprintf("TTL for table %q set to %dms", c.Table, c.TTLMillis)}, nil
		}
		e.Cache.SetDefaultTTL(ttl)
		return &rowset.CacheResult{Action: string(c.Action), Message: fmt.Sprintf("default TTL set to %dms", c.TTLMillis)}, nil

	default:
		return nil, qerrors.Execution(fmt.Sprintf("unsupported cache command %q", c.Action), map[string]interface{}{"action": c.Action})
	}
}
