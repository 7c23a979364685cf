// Package responsecache provides the process-local cache of processed chat
// replies. Entries expire a fixed TTL after they were written and are evicted
// lazily on read; the entry count is bounded with least-recently-used eviction.
package responsecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/steelcopilot/chat-service/internal/domain/models"
)

const (
	// DefaultTTL is how long a cached reply stays valid.
	DefaultTTL = time.Hour

	// DefaultSize is the maximum number of cached replies.
	DefaultSize = 1024

	keyPrefix = "resp:"
)

// Config holds the cache configuration.
type Config struct {
	TTL  time.Duration
	Size int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type entry struct {
	value     models.RawResult
	createdAt time.Time
}

// Cache is a TTL cache of processor results. It is safe for concurrent use.
type Cache struct {
	// mu makes the expiry check and removal in Get atomic with respect to Set.
	mu      sync.Mutex
	entries *lru.Cache[string, entry]
	ttl     time.Duration
	now     func() time.Time
}

// New creates a response cache.
func New(cfg Config) (*Cache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	size := cfg.Size
	if size <= 0 {
		size = DefaultSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	return &Cache{
		entries: entries,
		ttl:     ttl,
		now:     now,
	}, nil
}

// Get returns the value stored under key. An entry whose age has reached the
// TTL is removed and reported as absent.
func (c *Cache) Get(key string) (models.RawResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		c.entries.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, resetting its age.
func (c *Cache) Set(key string, value models.RawResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(key, entry{value: value, createdAt: c.now()})
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Key derives the cache key for a message in a module/agent context.
func Key(message, module string, agentID *int) string {
	agent := ""
	if agentID != nil {
		agent = strconv.Itoa(*agentID)
	}
	sum := sha256.Sum256([]byte(message + "\x00" + module + "\x00" + agent))
	return keyPrefix + hex.EncodeToString(sum[:])
}
