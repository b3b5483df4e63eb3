// Package ratelimit provides a pluggable rate limiting interface for the
// ingestion endpoints. The default implementation is an in-memory token
// bucket keyed per client; a noop limiter stands in when rate limiting is
// disabled.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should proceed.
// Implementations must be safe for concurrent use. Errors signal a
// limiter malfunction and are treated as fail-open by callers.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines).
	Close() error
}

// NoopLimiter permits every request.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
