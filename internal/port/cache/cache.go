// Package cache defines the cache port (interface).
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value cache with TTL semantics.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
