package friendbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

// mapCache is a minimal in-memory Cache for exercising the stateful helper.
type mapCache struct {
	entries map[string]any
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]any)}
}

func (c *mapCache) Get(_ context.Context, key string) (any, error) {
	value, exists := c.entries[key]
	if !exists {
		return nil, fmt.Errorf("get %s: %w", key, ErrKeyNotFound)
	}

	return value, nil
}

func (c *mapCache) GetOrAdd(_ context.Context, key string, value any, _ time.Duration) (any, error) {
	if existing, exists := c.entries[key]; exists {
		return existing, nil
	}
	c.entries[key] = value

	return value, nil
}

func (c *mapCache) Exists(_ context.Context, key string) (bool, error) {
	_, exists := c.entries[key]

	return exists, nil
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.entries[key] = value

	return nil
}

// mapDurable is a minimal in-memory DurableCache.
type mapDurable struct {
	entries map[string][]byte
}

func newMapDurable() *mapDurable {
	return &mapDurable{entries: make(map[string][]byte)}
}

func (c *mapDurable) Get(_ context.Context, key string) ([]byte, error) {
	value, exists := c.entries[key]
	if !exists {
		return nil, fmt.Errorf("get %s: %w", key, ErrKeyNotFound)
	}

	return value, nil
}

func (c *mapDurable) GetOrAdd(
	_ context.Context,
	key string,
	value []byte,
	_ time.Duration,
) ([]byte, error) {
	if existing, exists := c.entries[key]; exists {
		return existing, nil
	}
	c.entries[key] = value

	return value, nil
}

func (c *mapDurable) Exists(_ context.Context, key string) (bool, error) {
	_, exists := c.entries[key]

	return exists, nil
}

func (c *mapDurable) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.entries[key] = value

	return nil
}

type countState struct {
	Count int
}

type nameState struct {
	Name string `json:"name"`
}

func TestStatefulCommandSeedsDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	helper := NewStatefulCommand(newMapCache(), newMapDurable(),
		countState{Count: 7}, nameState{Name: "unnamed"})

	state, err := helper.State(ctx, NewIndex("guild", "user"))
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.Count != 7 {
		t.Fatalf("State() = %+v, want seeded default", state)
	}

	persistent, err := helper.PersistentState(ctx, NewIndex("guild", "user"))
	if err != nil {
		t.Fatalf("PersistentState() error = %v", err)
	}
	if persistent.Name != "unnamed" {
		t.Fatalf("PersistentState() = %+v, want seeded default", persistent)
	}
}

func TestStatefulCommandPartialUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	helper := NewStatefulCommand(newMapCache(), newMapDurable(), countState{}, nameState{})
	scope := NewIndex("guild", "user")

	for i := 0; i < 3; i++ {
		err := helper.SetState(ctx, scope, func(state *countState) {
			state.Count++
		})
		if err != nil {
			t.Fatalf("SetState() error = %v", err)
		}
	}

	state, err := helper.State(ctx, scope)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.Count != 3 {
		t.Fatalf("Count = %d, want 3", state.Count)
	}
}

func TestStatefulCommandScopesAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	helper := NewStatefulCommand(newMapCache(), newMapDurable(), countState{}, nameState{})

	err := helper.SetState(ctx, NewIndex("guild", "alice"), func(state *countState) {
		state.Count = 10
	})
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	other, err := helper.State(ctx, NewIndex("guild", "bob"))
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if other.Count != 0 {
		t.Fatalf("Count = %d, state leaked across scopes", other.Count)
	}
}

func TestStatefulCommandPersistentRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	durable := newMapDurable()
	helper := NewStatefulCommand(newMapCache(), durable, countState{}, nameState{})
	scope := NewIndex("guild", "user")

	err := helper.SetPersistentState(ctx, scope, func(state *nameState) {
		state.Name = "Miku"
	})
	if err != nil {
		t.Fatalf("SetPersistentState() error = %v", err)
	}

	// The stored form is JSON text under the scope's state key.
	raw, err := durable.Get(ctx, scope.Key("state"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var decoded nameState
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if decoded.Name != "Miku" {
		t.Fatalf("stored = %+v", decoded)
	}

	persistent, err := helper.PersistentState(ctx, scope)
	if err != nil {
		t.Fatalf("PersistentState() error = %v", err)
	}
	if persistent.Name != "Miku" {
		t.Fatalf("PersistentState() = %+v", persistent)
	}
}

func TestGetJSONPropagatesNotFound(t *testing.T) {
	t.Parallel()

	_, err := GetJSON[nameState](context.Background(), newMapDurable(), "guild/user/state")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("GetJSON() error = %v, want ErrKeyNotFound", err)
	}
}
