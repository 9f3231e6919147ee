package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"friendbot/pkg/friendbot"
)

const defaultProbeTimeout = 5 * time.Second

// DurableStore implements the durable JSON cache over a preferred backend.
// The backend is selected lazily on first use: the preferred backend is
// probed with retries, and if it stays unreachable the store degrades to an
// in-memory fallback for the rest of the process lifetime, warning exactly
// once. Later recovery of the preferred backend does not switch back.
type DurableStore struct {
	preferred Backend
	fallback  Backend
	logger    *slog.Logger

	probeTimeout time.Duration

	selectOnce sync.Once
	active     Backend
}

// DurableStoreOption mutates durable store construction.
type DurableStoreOption func(*DurableStore)

// WithDurableStoreLogger injects the store logger.
func WithDurableStoreLogger(logger *slog.Logger) DurableStoreOption {
	return func(store *DurableStore) {
		if logger != nil {
			store.logger = logger
		}
	}
}

// WithProbeTimeout bounds the first-use reachability probe.
func WithProbeTimeout(timeout time.Duration) DurableStoreOption {
	return func(store *DurableStore) {
		if timeout > 0 {
			store.probeTimeout = timeout
		}
	}
}

// NewDurableStore creates a durable store preferring the given backend.
func NewDurableStore(preferred Backend, options ...DurableStoreOption) *DurableStore {
	store := &DurableStore{
		preferred:    preferred,
		fallback:     NewFallbackBackend(),
		logger:       slog.Default(),
		probeTimeout: defaultProbeTimeout,
	}
	for _, option := range options {
		option(store)
	}

	return store
}

// Get returns the stored JSON text or fails with ErrKeyNotFound.
func (s *DurableStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, exists, err := s.backend().Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("durable cache get %s: %w", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("durable cache get %s: %w", key, friendbot.ErrKeyNotFound)
	}
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf(
			"durable cache get %s: stored value is not valid JSON: %w",
			key, friendbot.ErrValidation,
		)
	}

	return []byte(value), nil
}

// GetOrAdd seeds value with ttl when the key is absent and returns whichever
// JSON text ends up stored. An existing entry keeps its value and its TTL.
func (s *DurableStore) GetOrAdd(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) ([]byte, error) {
	if !json.Valid(value) {
		return nil, fmt.Errorf(
			"durable cache get-or-add %s: value is not valid JSON: %w",
			key, friendbot.ErrValidation,
		)
	}

	backend := s.backend()

	// Two attempts cover the rare race where the existing entry expires
	// between the failed insert and the read.
	for attempt := 0; attempt < 2; attempt++ {
		inserted, err := backend.SetIfAbsent(ctx, key, string(value), ttl)
		if err != nil {
			return nil, fmt.Errorf("durable cache get-or-add %s: %w", key, err)
		}
		if inserted {
			return value, nil
		}

		stored, exists, err := backend.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("durable cache get-or-add %s: %w", key, err)
		}
		if !exists {
			continue
		}
		if !json.Valid([]byte(stored)) {
			return nil, fmt.Errorf(
				"durable cache get-or-add %s: stored value is not valid JSON: %w",
				key, friendbot.ErrValidation,
			)
		}

		return []byte(stored), nil
	}

	return nil, fmt.Errorf("durable cache get-or-add %s: %w", key, friendbot.ErrBackendUnavailable)
}

// Exists reports key presence; it never fails on absence.
func (s *DurableStore) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.backend().Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("durable cache exists %s: %w", key, err)
	}

	return exists, nil
}

// Set unconditionally overwrites the value and replaces any pending TTL.
func (s *DurableStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !json.Valid(value) {
		return fmt.Errorf(
			"durable cache set %s: value is not valid JSON: %w",
			key, friendbot.ErrValidation,
		)
	}
	if err := s.backend().Set(ctx, key, string(value), ttl); err != nil {
		return fmt.Errorf("durable cache set %s: %w", key, err)
	}

	return nil
}

// backend resolves the active backend, running the one-time selection probe.
// The probe runs on its own deadline so a cancelled or nearly-expired first
// request cannot condemn a healthy backend to the fallback for the rest of
// the process lifetime.
func (s *DurableStore) backend() Backend {
	s.selectOnce.Do(func() {
		if err := s.probe(); err != nil {
			s.logger.Warn(
				"durable backend unreachable, falling back to in-memory store",
				"error", err,
			)
			s.active = s.fallback

			return
		}
		s.active = s.preferred
	})

	return s.active
}

// probe pings the preferred backend with exponential backoff until it answers
// or the probe window closes.
func (s *DurableStore) probe() error {
	probeCtx, cancel := context.WithTimeout(context.Background(), s.probeTimeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second

	return backoff.Retry(func() error {
		return s.preferred.Ping(probeCtx)
	}, backoff.WithContext(policy, probeCtx))
}
