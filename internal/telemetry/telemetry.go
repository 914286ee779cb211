// Package telemetry threads a structured logger through the query
// pipeline, carried on context.Context rather than hidden behind a
// bespoke logging interface.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey int

const loggerKey contextKey = iota

// Base is the process-wide logger; callers may replace it at startup.
var Base = logrus.New()

// WithQueryID returns a context carrying a logger entry scoped to a
// fresh query ID, and the ID itself for stamping onto results.
func WithQueryID(ctx context.Context) (context.Context, uuid.UUID) {
	id := uuid.New()
	entry := Base.WithField("query_id", id.String())
	return context.WithValue(ctx, loggerKey, entry), id
}

// WithComponent returns a context carrying a logger entry tagged with
// the given component name, inheriting any query ID already attached.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, loggerKey, Logger(ctx).WithField("component", component))
}

// Logger returns the logger entry attached to ctx, or the base logger
// entry if none was attached.
func Logger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(Base)
}
