// Package registry implements plugin lifecycle (register, initialise,
// health-check, shut down), lookup, and catalogue aggregation across
// data sources.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/infraql/infraql/internal/plugin"
	"github.com/infraql/infraql/internal/qerrors"
	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/telemetry"
)

// CatalogueEntry is one (source, table) pair in the aggregated catalogue.
type CatalogueEntry struct {
	Source string
	Table  plugin.TableInfo
}

// Registry holds plugin lifecycle state. The embedded maps are guarded
// by mu so catalogue aggregation (concurrent reads) never races with
// register/unregister (expected only at startup/shutdown, but still
// serialised).
type Registry struct {
	mu          sync.RWMutex
	plugins     map[string]plugin.Source
	initialised map[string]bool
	retry       RetryConfig
}

// New creates an empty Registry with default retry settings.
func New() *Registry {
	return &Registry{
		plugins:     make(map[string]plugin.Source),
		initialised: make(map[string]bool),
		retry:       DefaultRetryConfig(),
	}
}

// Register adds a plugin under its own Name(), rejecting duplicates,
// and initialises it exactly once. On initialisation failure the entry
// is removed and the error is propagated as a plugin-kind error with
// its cause preserved.
func (r *Registry) Register(ctx context.Context, src plugin.Source, config interface{}) error {
	name := src.Name()

	r.mu.Lock()
	if _, exists := r.plugins[name]; exists {
		r.mu.Unlock()
		return qerrors.Execution(fmt.Sprintf("plugin %q is already registered", name), map[string]interface{}{"source": name})
	}
	r.plugins[name] = src
	r.mu.Unlock()

	if err := src.Initialise(ctx, config); err != nil {
		r.mu.Lock()
		delete(r.plugins, name)
		r.mu.Unlock()
		return qerrors.Plugin(name, "initialise", err)
	}

	r.mu.Lock()
	r.initialised[name] = true
	r.mu.Unlock()
	return nil
}

// Unregister invokes Cleanup (if the plugin supports it) best-effort —
// errors are logged, never re-raised — and removes the plugin.
func (r *Registry) Unregister(ctx context.Context, name string) {
	r.mu.Lock()
	src, ok := r.plugins[name]
	delete(r.plugins, name)
	delete(r.initialised, name)
	r.mu.Unlock()

	if !ok {
		return
	}
	if cleaner, ok := src.(plugin.CleanupCapable); ok {
		if err := cleaner.Cleanup(ctx); err != nil {
			telemetry.Logger(ctx).WithField("source", name).WithError(err).Warn("plugin cleanup failed")
		}
	}
}

// Get returns the named plugin, or false if it is not registered and
// initialised.
func (r *Registry) Get(name string) (plugin.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialised[name] {
		return nil, false
	}
	src, ok := r.plugins[name]
	return src, ok
}

// Names returns the initialised plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.initialised))
	for name := range r.initialised {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) snapshot() map[string]plugin.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]plugin.Source, len(r.initialised))
	for name := range r.initialised {
		out[name] = r.plugins[name]
	}
	return out
}

// TablesAll fans out to every initialised plugin's Tables() in
// parallel; a per-plugin failure is logged and that plugin's
// contribution is omitted. The result is flat, annotated with the
// owning source, and sorted by (source, table) for determinism
// despite concurrent fan-out.
func (r *Registry) TablesAll(ctx context.Context) []CatalogueEntry {
	plugins := r.snapshot()

	var mu sync.Mutex
	var entries []CatalogueEntry

	g, gctx := errgroup.WithContext(ctx)
	for name, src := range plugins {
		name, src := name, src
		g.Go(func() error {
			tables, err := callTables(gctx, name, src)
			if err != nil {
				telemetry.Logger(ctx).WithField("source", name).WithError(err).Warn("tablesAll: source failed, omitting")
				return nil
			}
			mu.Lock()
			for _, t := range tables {
				entries = append(entries, CatalogueEntry{Source: name, Table: t})
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // callTables never returns a non-nil error from g.Go itself

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Source != entries[j].Source {
			return entries[i].Source < entries[j].Source
		}
		return entries[i].Table.Name < entries[j].Table.Name
	})
	return entries
}

// callTables recovers a plugin panic into a plugin-kind error so one
// misbehaving plugin cannot crash the process.
func callTables(ctx context.Context, name string, src plugin.Source) (tables []plugin.TableInfo, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = qerrors.Plugin(name, "tables", fmt.Errorf("panic: %v", rec))
		}
	}()
	tables, err = src.Tables(ctx)
	if err != nil {
		err = qerrors.Plugin(name, "tables", err)
	}
	return tables, err
}

// Query dispatches to the named plugin, wrapping any raised error as a
// plugin-kind error with its cause preserved. Transient failures are
// retried with jittered exponential backoff before giving up.
func (r *Registry) Query(ctx context.Context, source, table string, filters []plugin.Filter, options plugin.QueryOptions) (*rowset.QueryResult, error) {
	src, ok := r.Get(source)
	if !ok {
		return nil, qerrors.Execution(fmt.Sprintf("unknown source %q", source), map[string]interface{}{"source": source})
	}

	var result *rowset.QueryResult
	callErr := WithRetry(ctx, r.retry, source, "query", func(ctx context.Context) error {
		res, err := callQuery(ctx, src, table, filters, options)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if callErr != nil {
		if ctx.Err() != nil {
			return nil, qerrors.Cancelled(source, "query", ctx.Err())
		}
		return nil, qerrors.Plugin(source, "query", callErr)
	}
	return result, nil
}

func callQuery(ctx context.Context, src plugin.Source, table string, filters []plugin.Filter, options plugin.QueryOptions) (result *rowset.QueryResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return src.Query(ctx, table, filters, options)
}

// Trace fans out in parallel to every named source that implements
// TraceCapable (or, if sources is empty, to every initialised source
// that does); per-source failure is logged and that source is
// omitted. Hops are merged and left in per-source arrival order; the
// executor is responsible for the final time-ordered sort.
func (r *Registry) Trace(ctx context.Context, identifier string, value interface{}, sources []string) []rowset.Hop {
	targets := sources
	if len(targets) == 0 {
		targets = r.Names()
	}

	var mu sync.Mutex
	var hops []rowset.Hop

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range targets {
		name := name
		src, ok := r.Get(name)
		if !ok {
			telemetry.Logger(ctx).WithField("source", name).Warn("trace: unknown source, omitting")
			continue
		}
		tracer, ok := src.(plugin.TraceCapable)
		if !ok {
			continue
		}
		g.Go(func() error {
			found, err := callTrace(gctx, name, tracer, identifier, value)
			if err != nil {
				telemetry.Logger(ctx).WithField("source", name).WithError(err).Warn("trace: source failed, omitting")
				return nil
			}
			mu.Lock()
			hops = append(hops, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return hops
}

func callTrace(ctx context.Context, name string, tracer plugin.TraceCapable, identifier string, value interface{}) (hops []rowset.Hop, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = qerrors.Plugin(name, "trace", fmt.Errorf("panic: %v", rec))
		}
	}()
	hops, err = tracer.Trace(ctx, identifier, value)
	if err != nil {
		err = qerrors.Plugin(name, "trace", err)
	}
	return hops, err
}

// HealthReport aggregates one source's health outcome.
type HealthReport struct {
	Source  string
	Healthy bool
	Message string
}

// HealthAll fans out concurrently to every initialised source that
// implements HealthCapable; timeouts and errors surface as
// healthy=false with the error message rather than being dropped.
func (r *Registry) HealthAll(ctx context.Context) []HealthReport {
	plugins := r.snapshot()

	var mu sync.Mutex
	var reports []HealthReport

	g, gctx := errgroup.WithContext(ctx)
	for name, src := range plugins {
		name, src := name, src
		checker, ok := src.(plugin.HealthCapable)
		if !ok {
			mu.Lock()
			reports = append(reports, HealthReport{Source: name, Healthy: true, Message: "no health check implemented"})
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			status, err := callHealth(gctx, name, checker)
			mu.Lock()
			if err != nil {
				reports = append(reports, HealthReport{Source: name, Healthy: false, Message: err.Error()})
			} else {
				reports = append(reports, HealthReport{Source: name, Healthy: status.Healthy, Message: status.Message})
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Source < reports[j].Source })
	return reports
}

func callHealth(ctx context.Context, name string, checker plugin.HealthCapable) (status plugin.HealthStatus, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = qerrors.Plugin(name, "health check", fmt.Errorf("panic: %v", rec))
		}
	}()
	return checker.HealthCheck(ctx)
}
