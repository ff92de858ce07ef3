package repository

import (
	"context"
	"time"
)

// Key/value storage with per-entry expiry
// Token store keeps session tokens in it, so implementations must be process-wide (root scoped)
type KV interface {
	// Set value under the key for ttl. Existing value has to be overwritten
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Get value by the key
	// If key not set or expired must return apperrors.ErrKeyNotFound
	Get(ctx context.Context, key string) (string, error)

	// Delete the key
	// Must not fail if key does not exist
	Delete(ctx context.Context, key string) error
}
