// Package redis backs the conversation cache with Redis. Every key is
// namespaced with a prefix so the service can share a Redis database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix namespaces every key written by the service.
	DefaultKeyPrefix = "chat-service:"

	// DefaultTimeout bounds dialing and each command round trip.
	DefaultTimeout = 3 * time.Second
)

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	// DefaultTTL applies to Set calls with a zero ttl; zero means no expiry.
	DefaultTTL time.Duration
	// KeyPrefix is prepended to every key; empty selects DefaultKeyPrefix.
	KeyPrefix string
	// Timeout bounds dialing and commands; zero selects DefaultTimeout.
	Timeout time.Duration
}

// Cache implements cache.Cache on Redis.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
	prefix     string
}

// NewCache connects to Redis and verifies the connection with a ping.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis host is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", net.JoinHostPort(cfg.Host, cfg.Port), err)
	}

	return &Cache{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		prefix:     prefix,
	}, nil
}

// Get returns nil, nil for a missing key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value; a zero ttl selects the configured default.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete reports whether the key existed.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %s: %w", key, err)
	}
	return n > 0, nil
}

// Ping checks the connection.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
