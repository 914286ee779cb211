// Package cache implements a TTL-bounded, size-bounded result cache:
// fingerprint to result, per-table TTL overlaid on a default,
// oldest-insertion eviction under size pressure.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/infraql/infraql/internal/plugin"
	"github.com/infraql/infraql/internal/rowset"
)

const defaultMaxSize = 1000

var defaultTTL = 5 * time.Minute

type entry struct {
	id         string
	table      string
	result     *rowset.QueryResult
	insertedAt time.Time
	expiresAt  time.Time
	hits       int64
}

// Cache is a guarded fingerprint-to-result map. All mutation goes
// through mu so concurrent queries' reads stay consistent with
// completing queries' writes.
type Cache struct {
	mu sync.Mutex

	enabled    bool
	maxSize    int
	defaultTTL time.Duration
	perTable   map[string]time.Duration

	entries map[string]*entry
	// order tracks insertion order for oldest-eviction; it may contain
	// stale keys for entries already removed, reconciled lazily.
	order []string

	hits   int64
	misses int64
}

// New creates an empty, enabled Cache with the default TTL and size
// bound.
func New() *Cache {
	return &Cache{
		enabled:    true,
		maxSize:    defaultMaxSize,
		defaultTTL: defaultTTL,
		perTable:   make(map[string]time.Duration),
		entries:    make(map[string]*entry),
	}
}

// Fingerprint builds the canonical, order-insensitive cache key for
// (table, filters, options, projected columns). Filters are sorted by
// field then operator and projected columns by name before
// concatenation; ORDER BY terms keep their query order, since that
// order changes the result.
func Fingerprint(table string, filters []plugin.Filter, options plugin.QueryOptions) string {
	var sb strings.Builder
	sb.WriteString("table=")
	sb.WriteString(table)

	sb.WriteString("|filters=")
	sortedFilters := append([]plugin.Filter(nil), filters...)
	sort.Slice(sortedFilters, func(i, j int) bool {
		if sortedFilters[i].Field != sortedFilters[j].Field {
			return sortedFilters[i].Field < sortedFilters[j].Field
		}
		return sortedFilters[i].Op < sortedFilters[j].Op
	})
	for _, f := range sortedFilters {
		fmt.Fprintf(&sb, "(%s%s%v,%v)", f.Field, f.Op, f.Value, f.SecondValue)
	}

	sb.WriteString("|columns=")
	cols := append([]string(nil), options.Columns...)
	sort.Strings(cols)
	for _, c := range cols {
		sb.WriteString(c)
		sb.WriteByte(',')
	}

	sb.WriteString("|orderBy=")
	for _, o := range options.OrderBy {
		fmt.Fprintf(&sb, "(%s,%s)", o.Field, o.Direction)
	}

	sb.WriteString("|limit=")
	if options.Limit != nil {
		fmt.Fprintf(&sb, "%d", *options.Limit)
	}
	sb.WriteString("|offset=")
	if options.Offset != nil {
		fmt.Fprintf(&sb, "%d", *options.Offset)
	}

	return sb.String()
}

// Get probes the cache. Expiration is lazy: an expired entry is
// deleted and reported as a miss.
func (c *Cache) Get(table string, filters []plugin.Filter, options plugin.QueryOptions) (*rowset.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil, false
	}

	key := Fingerprint(table, filters, options)
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	e.hits++
	c.hits++
	return e.result, true
}

// Set stores result under the fingerprint for (table, filters,
// options). If the cache is at capacity, the oldest-inserted entry is
// evicted first.
func (c *Cache) Set(table string, filters []plugin.Filter, options plugin.QueryOptions, result *rowset.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	key := Fingerprint(table, filters, options)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	ttl := c.defaultTTL
	if perTable, ok := c.perTable[table]; ok {
		ttl = perTable
	}

	now := time.Now()
	c.entries[key] = &entry{
		id:         uuid.New().String(),
		table:      table,
		result:     result,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	c.order = append(c.order, key)
}

func (c *Cache) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order = nil
}

// ClearTable drops every cached entry for the named table.
func (c *Cache) ClearTable(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.table == table {
			delete(c.entries, key)
		}
	}
}

// SetDefaultTTL changes the default TTL applied to tables with no
// per-table override.
func (c *Cache) SetDefaultTTL(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTTL = d
}

// SetMaxSize changes the entry-count bound enforced on the next Set.
// A non-positive value is ignored; the cache never shrinks retroactively.
func (c *Cache) SetMaxSize(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = n
}

// SetTableTTL overrides the TTL for one table.
func (c *Cache) SetTableTTL(table string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perTable[table] = d
}

// SetEnabled toggles the cache. Disabling atomically clears all
// entries so a later re-enable starts cold.
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.entries = make(map[string]*entry)
		c.order = nil
	}
}

// Cleanup drops every expired entry; callers may run this
// periodically, independent of the lazy expiry in Get.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Stats reports aggregate hit/miss figures and per-table hits.
func (c *Cache) Stats() rowset.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	perTableHits := make(map[string]int64)
	entries := make([]rowset.CacheEntryStats, 0, len(c.entries))
	now := time.Now()
	for _, e := range c.entries {
		perTableHits[e.table] += e.hits
		entries = append(entries, rowset.CacheEntryStats{
			ID:       e.id,
			Table:    e.table,
			Hits:     e.hits,
			AgeMs:    float64(now.Sub(e.insertedAt).Milliseconds()),
			SizeHint: len(e.result.Rows),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Table < entries[j].Table })

	return rowset.CacheStats{
		Hits:         c.hits,
		Misses:       c.misses,
		HitRate:      hitRate,
		Size:         len(c.entries),
		PerTableHits: perTableHits,
		Entries:      entries,
	}
}
