// Package infraql is the query pipeline's single facade: lex → parse →
// execute, wired to a plugin registry and a result cache. One
// constructor, one entrypoint, statement-kind dispatch hidden behind it.
package infraql

import (
	"context"
	"time"

	"github.com/infraql/infraql/internal/cache"
	"github.com/infraql/infraql/internal/config"
	"github.com/infraql/infraql/internal/executor"
	"github.com/infraql/infraql/internal/parserql"
	"github.com/infraql/infraql/internal/plugin"
	"github.com/infraql/infraql/internal/registry"
	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/telemetry"
)

// Engine is the query pipeline's facade.
type Engine struct {
	Registry *registry.Registry
	Cache    *cache.Cache
	executor *executor.Executor
	config   config.Config
}

// New wires a fresh Engine from an explicit Config, Registry, and
// Cache. The cache is an explicitly passed dependency — not a package
// global — so tests can instantiate an isolated one.
func New(cfg config.Config, reg *registry.Registry, c *cache.Cache) *Engine {
	c.SetEnabled(cfg.Cache.Enabled)
	c.SetDefaultTTL(millis(cfg.Cache.DefaultTTLMillis))
	c.SetMaxSize(cfg.Cache.MaxSize)
	for table, ttl := range cfg.Cache.PerTableTTL {
		c.SetTableTTL(table, millis(ttl))
	}

	return &Engine{
		Registry: reg,
		Cache:    c,
		executor: executor.New(reg, c, cfg.Executor),
		config:   cfg,
	}
}

// NewDefaultEngine is the documented convenience constructor for
// production wiring: default config, empty registry, fresh cache.
// Callers register their own plugins before issuing queries.
func NewDefaultEngine() *Engine {
	return New(config.Default(), registry.New(), cache.New())
}

// RegisterSource registers and initialises a plugin under its own name.
func (e *Engine) RegisterSource(ctx context.Context, src plugin.Source, pluginConfig interface{}) error {
	return e.Registry.Register(ctx, src, pluginConfig)
}

// Query parses and executes text, returning one of
// *rowset.QueryResult, *rowset.TraceResult, *rowset.DescribeResult,
// *rowset.ShowResult, or *rowset.CacheResult depending on statement
// kind.
func (e *Engine) Query(ctx context.Context, text string) (interface{}, error) {
	ctx, queryID := telemetry.WithQueryID(ctx)
	log := telemetry.Logger(ctx)
	log.WithField("query", text).Debug("parsing query")

	stmt, err := parserql.Parse(text)
	if err != nil {
		log.WithError(err).Warn("parse failed")
		return nil, err
	}

	result, err := e.executor.Execute(ctx, stmt)
	if err != nil {
		log.WithError(err).Warn("execution failed")
		return nil, err
	}

	if qr, ok := result.(*rowset.QueryResult); ok {
		qr.QueryID = queryID.String()
	}

	log.WithField("query_id", queryID.String()).Debug("query complete")
	return result, nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
