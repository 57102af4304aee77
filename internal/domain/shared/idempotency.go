package shared

import (
	"context"
	"time"
)

// IdempotencyStore records keys that have already been claimed.
// The lifecycle engine uses it to let a single instance run each scheduled sweep slot.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl.
	// Returns true if the key was newly claimed, false if someone else holds it.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key is currently claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the key can be claimed again
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}
