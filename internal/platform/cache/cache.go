// Package cache provides the caching layer for immutable chain lookups
// (pool addresses, token decimals): an in-memory LRU L1, a Redis L2, and
// a layered combination of the two.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is not present.
	ErrNotFound = errors.New("cache: key not found")
)

// Cache is the interface all cache layers implement.
type Cache interface {
	// Get retrieves a value. Returns ErrNotFound on miss or expiry.
	Get(ctx context.Context, key string) (interface{}, error)

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
