package cache

import (
	"context"
	"sync"
	"time"

	"friendbot/pkg/friendbot"
)

// Backend is the key/value store underneath DurableCache. Values are opaque
// strings; TTL handling is the backend's responsibility.
type Backend interface {
	// Get returns the value and whether the key exists. Expired entries read
	// as absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value; friendbot.Forever stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetIfAbsent stores only when the key is absent and reports whether the
	// write happened.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Exists reports key presence.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the key; deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
	// Ping probes backend reachability.
	Ping(ctx context.Context) error
}

type fallbackEntry struct {
	value     string
	expiresAt time.Time
}

// FallbackBackend is the in-memory stand-in used when the durable backend is
// unreachable. Entries expire lazily on read and survive only as long as the
// process does.
type FallbackBackend struct {
	mu      sync.Mutex
	entries map[string]fallbackEntry
}

// NewFallbackBackend creates an empty in-memory backend.
func NewFallbackBackend() *FallbackBackend {
	return &FallbackBackend{
		entries: make(map[string]fallbackEntry),
	}
}

// Get implements Backend.
func (b *FallbackBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.liveLocked(key)
	if !exists {
		return "", false, nil
	}

	return entry.value, true, nil
}

// Set implements Backend.
func (b *FallbackBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = fallbackEntry{value: value, expiresAt: deadline(ttl)}

	return nil
}

// SetIfAbsent implements Backend.
func (b *FallbackBackend) SetIfAbsent(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.liveLocked(key); exists {
		return false, nil
	}
	b.entries[key] = fallbackEntry{value: value, expiresAt: deadline(ttl)}

	return true, nil
}

// Exists implements Backend.
func (b *FallbackBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, exists := b.liveLocked(key)

	return exists, nil
}

// Delete implements Backend.
func (b *FallbackBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)

	return nil
}

// Ping implements Backend; the in-memory backend is always reachable.
func (b *FallbackBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// liveLocked returns the entry unless it is absent or expired, dropping
// expired entries as a side effect; b.mu must be held.
func (b *FallbackBackend) liveLocked(key string) (fallbackEntry, bool) {
	entry, exists := b.entries[key]
	if !exists {
		return fallbackEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(time.Now()) {
		delete(b.entries, key)

		return fallbackEntry{}, false
	}

	return entry, true
}

// deadline converts a TTL into an absolute expiry; Forever maps to zero time.
func deadline(ttl time.Duration) time.Time {
	if ttl == friendbot.Forever {
		return time.Time{}
	}

	return time.Now().Add(ttl)
}
