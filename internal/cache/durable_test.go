package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"friendbot/pkg/friendbot"
)

// deadBackend refuses every operation, standing in for an unreachable store.
type deadBackend struct{}

var errBackendDown = errors.New("backend down")

func (deadBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errBackendDown
}

func (deadBackend) Set(context.Context, string, string, time.Duration) error {
	return errBackendDown
}

func (deadBackend) SetIfAbsent(context.Context, string, string, time.Duration) (bool, error) {
	return false, errBackendDown
}

func (deadBackend) Exists(context.Context, string) (bool, error) {
	return false, errBackendDown
}

func (deadBackend) Delete(context.Context, string) error {
	return errBackendDown
}

func (deadBackend) Ping(context.Context) error {
	return errBackendDown
}

func TestDurableStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewDurableStore(NewFallbackBackend())

	if err := store.Set(ctx, "guild/1/profile", []byte(`{"name":"miku"}`), friendbot.Forever); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, err := store.Get(ctx, "guild/1/profile")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(value) != `{"name":"miku"}` {
		t.Fatalf("Get() = %s", value)
	}
}

func TestDurableStoreGetMissingKey(t *testing.T) {
	t.Parallel()

	store := NewDurableStore(NewFallbackBackend())

	_, err := store.Get(context.Background(), "guild/1/profile")
	if !errors.Is(err, friendbot.ErrKeyNotFound) {
		t.Fatalf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestDurableStoreGetOrAddKeepsFirstValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewDurableStore(NewFallbackBackend())

	first, err := store.GetOrAdd(ctx, "guild/1/profile", []byte(`{"v":1}`), friendbot.Forever)
	if err != nil {
		t.Fatalf("GetOrAdd() error = %v", err)
	}
	if string(first) != `{"v":1}` {
		t.Fatalf("GetOrAdd() = %s", first)
	}

	second, err := store.GetOrAdd(ctx, "guild/1/profile", []byte(`{"v":2}`), friendbot.Forever)
	if err != nil {
		t.Fatalf("GetOrAdd() error = %v", err)
	}
	if string(second) != `{"v":1}` {
		t.Fatalf("GetOrAdd() = %s, want first value to win", second)
	}
}

func TestDurableStoreRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewDurableStore(NewFallbackBackend())

	if err := store.Set(ctx, "guild/1/profile", []byte("not json"), friendbot.Forever); !errors.Is(err, friendbot.ErrValidation) {
		t.Fatalf("Set() error = %v, want ErrValidation", err)
	}
	if _, err := store.GetOrAdd(ctx, "guild/1/profile", []byte("{broken"), friendbot.Forever); !errors.Is(err, friendbot.ErrValidation) {
		t.Fatalf("GetOrAdd() error = %v, want ErrValidation", err)
	}
}

func TestDurableStoreSurfacesStoredCorruption(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewFallbackBackend()
	store := NewDurableStore(backend)

	// Corrupt the row behind the store's back.
	if err := backend.Set(ctx, "guild/1/profile", "}{", friendbot.Forever); err != nil {
		t.Fatalf("backend Set() error = %v", err)
	}

	if _, err := store.Get(ctx, "guild/1/profile"); !errors.Is(err, friendbot.ErrValidation) {
		t.Fatalf("Get() error = %v, want ErrValidation", err)
	}
}

func TestDurableStoreFallsBackWhenBackendUnreachable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var logged bytes.Buffer
	store := NewDurableStore(
		deadBackend{},
		WithDurableStoreLogger(slog.New(slog.NewTextHandler(&logged, nil))),
		WithProbeTimeout(50*time.Millisecond),
	)

	if err := store.Set(ctx, "guild/1/profile", []byte(`{"v":1}`), friendbot.Forever); err != nil {
		t.Fatalf("Set() error = %v after fallback", err)
	}

	value, err := store.Get(ctx, "guild/1/profile")
	if err != nil {
		t.Fatalf("Get() error = %v after fallback", err)
	}
	if string(value) != `{"v":1}` {
		t.Fatalf("Get() = %s", value)
	}

	// Further operations must not repeat the probe or the warning.
	first := logged.String()
	if _, err := store.Exists(ctx, "guild/1/profile"); err != nil {
		t.Fatalf("Exists() error = %v after fallback", err)
	}
	if logged.String() != first {
		t.Fatal("fallback warning logged more than once")
	}
	if first == "" {
		t.Fatal("fallback produced no warning")
	}
}

func TestDurableStoreSelectionOutlivesFirstCaller(t *testing.T) {
	t.Parallel()

	preferred := NewFallbackBackend()
	store := NewDurableStore(preferred)

	// First contact arrives with an already-cancelled context. The request
	// itself fails, but the healthy preferred backend must still be chosen.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Get(cancelled, "guild/1/profile"); err == nil {
		t.Fatal("Get() with cancelled context succeeded")
	}

	ctx := context.Background()
	if err := store.Set(ctx, "guild/1/profile", []byte(`{"v":1}`), friendbot.Forever); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// The write landed on the preferred backend, not the fallback.
	value, exists, err := preferred.Get(ctx, "guild/1/profile")
	if err != nil {
		t.Fatalf("preferred Get() error = %v", err)
	}
	if !exists {
		t.Fatal("cancelled first request demoted the healthy backend")
	}
	if value != `{"v":1}` {
		t.Fatalf("preferred Get() = %s", value)
	}
}

func TestDurableStoreEntryExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewDurableStore(NewFallbackBackend())

	if err := store.Set(ctx, "guild/1/profile", []byte(`{"v":1}`), 20*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := store.Get(ctx, "guild/1/profile"); !errors.Is(err, friendbot.ErrKeyNotFound) {
		t.Fatalf("Get() error = %v, want ErrKeyNotFound after expiry", err)
	}
}
