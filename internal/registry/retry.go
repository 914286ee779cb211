package registry

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/infraql/infraql/internal/telemetry"
)

// RetryConfig parameterises the exponential backoff used when wrapping
// plugin-side I/O. Defaults: 3 attempts, 1s initial delay, 10s cap,
// 2x multiplier, ±25% jitter.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFrac   float64
}

// DefaultRetryConfig returns the package's default backoff settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		JitterFrac:   0.25,
	}
}

// transientSignals is the fixed set of error substrings that make a
// failure eligible for retry. Matching on substring keeps this usable
// against errors returned by arbitrary plugin implementations that
// don't share a common sentinel error type.
var transientSignals = []string{
	"timeout",
	"timed out",
	"connection reset",
	"host unreachable",
	"throttl",
	"rate limit",
	"rate-limit",
	"service unavailable",
	"service-unavailable",
}

// IsTransient reports whether err matches one of the fixed transient
// signals above.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignals {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// WithRetry invokes op, retrying on transient failures per cfg with
// jittered exponential backoff. It respects ctx cancellation between
// attempts and never retries a non-transient error.
func WithRetry(ctx context.Context, cfg RetryConfig, source, operation string, op func(ctx context.Context) error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		wait := jitter(delay, cfg.JitterFrac)
		telemetry.Logger(ctx).WithField("source", source).WithField("operation", operation).
			WithField("attempt", attempt).WithField("wait", wait).Debug("retrying transient plugin failure")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

func jitter(base time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return base
	}
	spread := float64(base) * frac
	offset := (rand.Float64()*2 - 1) * spread
	result := time.Duration(float64(base) + offset)
	if result < 0 {
		return 0
	}
	return result
}
