package friendbot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Forever is the TTL sentinel meaning a cache entry never expires.
const Forever time.Duration = 0

// Cache is the volatile store contract. Values live only in process memory
// and may be arbitrary types; they are lost on restart.
//
// Implementations must be concurrency-safe because command candidates run on
// parallel workers.
type Cache interface {
	// Get returns the stored value or fails with ErrKeyNotFound.
	Get(ctx context.Context, key string) (any, error)
	// GetOrAdd atomically seeds value with ttl when the key is absent and
	// returns whichever value ends up stored. An existing entry is returned
	// unchanged and its TTL is not reset.
	GetOrAdd(ctx context.Context, key string, value any, ttl time.Duration) (any, error)
	// Exists reports key presence and never fails on absence.
	Exists(ctx context.Context, key string) (bool, error)
	// Set unconditionally overwrites the value, cancelling and replacing any
	// pending TTL timer for the key.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// DurableCache is the durable store contract. Values are JSON text that
// survives restarts when the backing store is reachable.
type DurableCache interface {
	// Get returns the stored JSON text or fails with ErrKeyNotFound. Stored
	// text that is not valid JSON is surfaced as corruption, never swallowed.
	Get(ctx context.Context, key string) ([]byte, error)
	// GetOrAdd atomically seeds value with ttl when the key is absent and
	// returns whichever JSON text ends up stored. An existing entry is
	// returned unchanged and its TTL is not reset.
	GetOrAdd(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error)
	// Exists reports key presence and never fails on absence.
	Exists(ctx context.Context, key string) (bool, error)
	// Set unconditionally overwrites the value and replaces any pending TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON reads and decodes one typed value from a durable cache.
func GetJSON[T any](ctx context.Context, cache DurableCache, key string) (T, error) {
	var value T
	raw, err := cache.Get(ctx, key)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("decode cached value %s: %w", key, err)
	}

	return value, nil
}

// GetOrAddJSON seeds defaultValue when key is absent and decodes whichever
// value ends up stored.
func GetOrAddJSON[T any](
	ctx context.Context,
	cache DurableCache,
	key string,
	defaultValue T,
	ttl time.Duration,
) (T, error) {
	var value T
	encoded, err := json.Marshal(defaultValue)
	if err != nil {
		return value, fmt.Errorf("encode default value %s: %w", key, err)
	}

	stored, err := cache.GetOrAdd(ctx, key, encoded, ttl)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(stored, &value); err != nil {
		return value, fmt.Errorf("decode cached value %s: %w", key, err)
	}

	return value, nil
}

// SetJSON encodes and overwrites one typed value in a durable cache.
func SetJSON[T any](
	ctx context.Context,
	cache DurableCache,
	key string,
	value T,
	ttl time.Duration,
) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value %s: %w", key, err)
	}

	return cache.Set(ctx, key, encoded, ttl)
}
