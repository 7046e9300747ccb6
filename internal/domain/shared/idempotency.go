package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed ids (webhook deliveries, outbox
// events, checkout keys) so a redelivery is applied at most once.
type IdempotencyStore interface {
	// MarkProcessed marks an id as processed with a TTL.
	// Returns true if the id was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an id has already been processed
	IsProcessed(ctx context.Context, id string) (bool, error)

	// Release forgets an id so a later redelivery is processed again
	Release(ctx context.Context, id string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig controls deduplication of redelivered events
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps marks for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
