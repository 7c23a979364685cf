// Package cache defines the byte-level key/value cache that fronts the
// conversation store.
package cache

import (
	"context"
	"time"
)

// Type represents the type of cache.
type Type string

const (
	// TypeRedis represents a Redis cache.
	TypeRedis Type = "redis"
)

// Cache defines the interface for cache operations.
type Cache interface {
	// Get returns nil, nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A zero ttl selects the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}
