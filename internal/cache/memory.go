package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"friendbot/internal/schedule"
	"friendbot/pkg/friendbot"
)

// MemoryCache is the volatile store: arbitrary values held only in process
// memory, evicted by per-key single-shot timers, lost on restart.
type MemoryCache struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]any
	timers  map[string]*schedule.Timer
}

// MemoryCacheOption mutates memory cache construction.
type MemoryCacheOption func(*MemoryCache)

// WithMemoryCacheLogger injects the cache logger.
func WithMemoryCacheLogger(logger *slog.Logger) MemoryCacheOption {
	return func(cache *MemoryCache) {
		if logger != nil {
			cache.logger = logger
		}
	}
}

// NewMemoryCache creates an empty volatile cache.
func NewMemoryCache(options ...MemoryCacheOption) *MemoryCache {
	cache := &MemoryCache{
		logger:  slog.Default(),
		entries: make(map[string]any),
		timers:  make(map[string]*schedule.Timer),
	}
	for _, option := range options {
		option(cache)
	}

	return cache
}

// Get returns the stored value or fails with ErrKeyNotFound.
func (c *MemoryCache) Get(ctx context.Context, key string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory cache get %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	value, exists := c.entries[key]
	if !exists {
		return nil, fmt.Errorf("memory cache get %s: %w", key, friendbot.ErrKeyNotFound)
	}

	return value, nil
}

// GetOrAdd seeds value with ttl when key is absent and returns whichever
// value ends up stored. An existing entry keeps its value and its TTL.
func (c *MemoryCache) GetOrAdd(
	ctx context.Context,
	key string,
	value any,
	ttl time.Duration,
) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory cache get-or-add %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.entries[key]; exists {
		return existing, nil
	}

	c.storeLocked(key, value, ttl)

	return value, nil
}

// Exists reports key presence; it never fails on absence.
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("memory cache exists %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.entries[key]

	return exists, nil
}

// Set unconditionally overwrites the value, cancelling and replacing any
// pending eviction timer so a stale timer cannot delete the fresh value.
func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory cache set %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.storeLocked(key, value, ttl)

	return nil
}

// storeLocked writes the entry and swaps its eviction timer; c.mu must be held.
func (c *MemoryCache) storeLocked(key string, value any, ttl time.Duration) {
	c.entries[key] = value

	if existing, exists := c.timers[key]; exists {
		existing.Stop()
		delete(c.timers, key)
	}
	if ttl == friendbot.Forever {
		return
	}

	timer := schedule.New(ttl, func() {
		c.evict(key)
	})
	c.timers[key] = timer
	timer.Start()
}

// evict removes an expired entry. The eviction races Set by design: Set stops
// the old timer under the lock first, so a superseded timer never fires.
func (c *MemoryCache) evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	delete(c.timers, key)
	c.mu.Unlock()

	c.logger.Debug("memory cache entry expired", "key", key)
}
