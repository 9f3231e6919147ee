// Package schedule provides a cancellable single-shot timer used for cache
// TTL eviction, connection idle watchdogs, and delayed command actions.
package schedule

import (
	"sync"
	"time"
)

// Timer runs one callback once after a fixed delay. Start, Stop, and Reset
// are idempotent and safe to race with natural firing: once Stop returns, the
// callback will not fire, and a callback that already won the race runs at
// most once. Reset is cancel-then-reschedule, never a platform timer refresh.
type Timer struct {
	delay time.Duration
	fn    func()

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// New creates a stopped timer; it does not run until Start or Reset.
func New(delay time.Duration, fn func()) *Timer {
	return &Timer{
		delay: delay,
		fn:    fn,
	}
}

// Start arms the timer from zero, or does nothing when already running.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		return
	}
	t.armLocked()
}

// Stop cancels the pending callback, or does nothing when already stopped.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer == nil {
		return
	}
	t.timer.Stop()
	t.timer = nil
	t.generation++
}

// Reset cancels any pending callback and arms the timer from zero.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
		t.generation++
	}
	t.armLocked()
}

// Running reports whether a callback is currently pending.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.timer != nil
}

// armLocked schedules the callback; t.mu must be held.
func (t *Timer) armLocked() {
	t.generation++
	armed := t.generation
	t.timer = time.AfterFunc(t.delay, func() {
		t.fire(armed)
	})
}

// fire runs the callback unless an intervening Stop or Reset superseded armed.
func (t *Timer) fire(armed uint64) {
	t.mu.Lock()
	if armed != t.generation || t.timer == nil {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	t.fn()
}
