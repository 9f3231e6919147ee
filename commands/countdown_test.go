package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"friendbot/pkg/friendbot"
)

func TestCountdownFires(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	command := NewCountdownCommand()
	rec := &replyRecorder{}

	if err := command.Execute(ctx, newEvent("$countdown 20ms", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Valid durations below the floor are rejected up front.
	if !strings.Contains(rec.lastReply(), "duration") {
		t.Fatalf("reply = %q, want duration bounds notice", rec.lastReply())
	}
}

func TestCountdownAnnouncesCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	command := NewCountdownCommand()
	rec := &replyRecorder{}

	if err := command.Execute(ctx, newEvent("$countdown 1s", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(rec.lastReply(), "started") {
		t.Fatalf("reply = %q, want start confirmation", rec.lastReply())
	}

	deadline := time.After(3 * time.Second)
	for {
		if strings.Contains(rec.lastReply(), "finished") {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("countdown never announced completion, last reply %q", rec.lastReply())
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestCountdownCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	command := NewCountdownCommand()
	rec := &replyRecorder{}

	if err := command.Execute(ctx, newEvent("$countdown 1s", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := command.Execute(ctx, newEvent("$countdown cancel", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(rec.lastReply(), "cancelled") {
		t.Fatalf("reply = %q, want cancellation", rec.lastReply())
	}

	before := rec.replyCount()
	time.Sleep(1500 * time.Millisecond)
	if rec.replyCount() != before {
		t.Fatalf("cancelled countdown still announced, last reply %q", rec.lastReply())
	}
}

func TestCountdownReplacementSurvivesStaleCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	command := NewCountdownCommand()
	rec := &replyRecorder{}
	event := newEvent("$countdown 1h", rec)

	if err := command.Execute(ctx, event); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	key := friendbot.ChannelScope(event).Key("countdown")
	command.mu.Lock()
	stale := command.timers[key]
	command.mu.Unlock()

	if err := command.Execute(ctx, newEvent("$countdown 2h", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Deliver the completion the replaced timer had already committed to
	// before it was stopped. It must neither announce nor untrack the
	// replacement.
	before := rec.replyCount()
	command.finish(key, stale, rec)
	if rec.replyCount() != before {
		t.Fatalf("stale completion announced, last reply %q", rec.lastReply())
	}

	if err := command.Execute(ctx, newEvent("$countdown cancel", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(rec.lastReply(), "cancelled") {
		t.Fatalf("reply = %q, want cancellation of the replacement", rec.lastReply())
	}
}

func TestCountdownCancelWithoutTimer(t *testing.T) {
	defer goleak.VerifyNone(t)

	command := NewCountdownCommand()
	rec := &replyRecorder{}

	if err := command.Execute(context.Background(), newEvent("$countdown cancel", rec)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(rec.lastReply(), "No countdown") {
		t.Fatalf("reply = %q, want no-countdown notice", rec.lastReply())
	}
}
