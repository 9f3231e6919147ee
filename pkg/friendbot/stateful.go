package friendbot

import (
	"context"
	"fmt"
)

// stateKeyName is the entry name appended to a scope index for stored state.
const stateKeyName = "state"

// StatefulCommand keeps typed per-scope state for a multi-turn command:
// transient State in the volatile cache and PersistentState in the durable
// cache. It lets one stateless shared command instance carry progress across
// independent trigger events.
//
// Partial updates are expressed as updater funcs applied to the current (or
// default) value before the result is written back.
type StatefulCommand[State any, PersistentState any] struct {
	cache             Cache
	durable           DurableCache
	defaultState      State
	defaultPersistent PersistentState
}

// NewStatefulCommand creates the stateful helper with per-shape defaults.
func NewStatefulCommand[State any, PersistentState any](
	cache Cache,
	durable DurableCache,
	defaultState State,
	defaultPersistent PersistentState,
) StatefulCommand[State, PersistentState] {
	return StatefulCommand[State, PersistentState]{
		cache:             cache,
		durable:           durable,
		defaultState:      defaultState,
		defaultPersistent: defaultPersistent,
	}
}

// State returns the current transient value for scope, seeding the default
// when unset. It never fails on absence.
func (c *StatefulCommand[State, PersistentState]) State(
	ctx context.Context,
	scope Index,
) (State, error) {
	var zero State
	key := scope.Key(stateKeyName)
	value, err := c.cache.GetOrAdd(ctx, key, c.defaultState, Forever)
	if err != nil {
		return zero, fmt.Errorf("get state %s: %w", key, err)
	}
	state, ok := value.(State)
	if !ok {
		return zero, fmt.Errorf("get state %s: unexpected stored type %T", key, value)
	}

	return state, nil
}

// SetState applies update to the current (or default) transient value and
// writes the result back.
func (c *StatefulCommand[State, PersistentState]) SetState(
	ctx context.Context,
	scope Index,
	update func(*State),
) error {
	state, err := c.State(ctx, scope)
	if err != nil {
		return err
	}
	update(&state)

	key := scope.Key(stateKeyName)
	if err := c.cache.Set(ctx, key, state, Forever); err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}

	return nil
}

// PersistentState returns the current durable value for scope, seeding the
// default when unset.
func (c *StatefulCommand[State, PersistentState]) PersistentState(
	ctx context.Context,
	scope Index,
) (PersistentState, error) {
	var zero PersistentState
	key := scope.Key(stateKeyName)
	state, err := GetOrAddJSON(ctx, c.durable, key, c.defaultPersistent, Forever)
	if err != nil {
		return zero, fmt.Errorf("get persistent state %s: %w", key, err)
	}

	return state, nil
}

// SetPersistentState applies update to the current (or default) durable value
// and writes the result back.
func (c *StatefulCommand[State, PersistentState]) SetPersistentState(
	ctx context.Context,
	scope Index,
	update func(*PersistentState),
) error {
	state, err := c.PersistentState(ctx, scope)
	if err != nil {
		return err
	}
	update(&state)

	key := scope.Key(stateKeyName)
	if err := SetJSON(ctx, c.durable, key, state, Forever); err != nil {
		return fmt.Errorf("set persistent state %s: %w", key, err)
	}

	return nil
}
