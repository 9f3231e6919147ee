package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestTimerFiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired atomic.Int64
	timer := New(10*time.Millisecond, func() {
		fired.Add(1)
	})
	timer.Start()
	timer.Start()

	time.Sleep(60 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
	if timer.Running() {
		t.Fatal("timer still running after firing")
	}
}

func TestTimerStopPreventsCallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired atomic.Int64
	timer := New(30*time.Millisecond, func() {
		fired.Add(1)
	})
	timer.Start()
	timer.Stop()
	timer.Stop()

	time.Sleep(80 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Fatalf("fired = %d, want 0 after stop", got)
	}
}

func TestTimerResetReschedulesFromZero(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired atomic.Int64
	timer := New(50*time.Millisecond, func() {
		fired.Add(1)
	})
	timer.Start()

	// Keep pushing the deadline out; the callback must not fire in between.
	for i := 0; i < 3; i++ {
		time.Sleep(25 * time.Millisecond)
		timer.Reset()
	}
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired = %d before reset deadline elapsed", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1 after final deadline", got)
	}
}

func TestTimerResetStartsStoppedTimer(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired atomic.Int64
	timer := New(10*time.Millisecond, func() {
		fired.Add(1)
	})
	timer.Reset()

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestTimerStopAfterFireIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired atomic.Int64
	timer := New(5*time.Millisecond, func() {
		fired.Add(1)
	})
	timer.Start()

	time.Sleep(40 * time.Millisecond)
	timer.Stop()

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}
