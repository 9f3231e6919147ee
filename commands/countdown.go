package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"friendbot/internal/schedule"
	"friendbot/pkg/friendbot"
)

const (
	minCountdown = time.Second
	maxCountdown = 24 * time.Hour
)

// CountdownCommand runs one delayed announcement per channel. Starting a new
// countdown replaces a running one; cancelling stops it before it fires.
type CountdownCommand struct {
	friendbot.BaseCommand

	mu     sync.Mutex
	timers map[string]*schedule.Timer
}

// NewCountdownCommand creates the countdown command.
func NewCountdownCommand() *CountdownCommand {
	return &CountdownCommand{
		timers: make(map[string]*schedule.Timer),
	}
}

// Name implements friendbot.Command.
func (c *CountdownCommand) Name() string {
	return "countdown"
}

// Check implements friendbot.Command.
func (c *CountdownCommand) Check(_ context.Context, event *friendbot.TriggerEvent) (bool, error) {
	fields := strings.Fields(event.Text)

	return len(fields) >= 1 && fields[0] == "$countdown", nil
}

// Execute implements friendbot.Command.
func (c *CountdownCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	fields := strings.Fields(event.Text)
	if len(fields) != 2 {
		return event.Responder.Reply(ctx, "Usage: $countdown <duration>|cancel")
	}
	if fields[1] == "cancel" {
		return c.cancel(ctx, event)
	}

	return c.start(ctx, event, fields[1])
}

func (c *CountdownCommand) start(
	ctx context.Context,
	event *friendbot.TriggerEvent,
	raw string,
) error {
	delay, err := time.ParseDuration(raw)
	if err != nil || delay < minCountdown || delay > maxCountdown {
		return event.Responder.Reply(ctx,
			fmt.Sprintf("Give me a duration between %s and %s, like 10m30s.",
				minCountdown, maxCountdown))
	}

	key := friendbot.ChannelScope(event).Key("countdown")
	responder := event.Responder

	c.mu.Lock()
	if existing, exists := c.timers[key]; exists {
		existing.Stop()
	}
	var timer *schedule.Timer
	timer = schedule.New(delay, func() {
		c.finish(key, timer, responder)
	})
	c.timers[key] = timer
	timer.Start()
	c.mu.Unlock()

	return event.Responder.Reply(ctx, fmt.Sprintf("Countdown started: %s.", delay))
}

func (c *CountdownCommand) cancel(ctx context.Context, event *friendbot.TriggerEvent) error {
	key := friendbot.ChannelScope(event).Key("countdown")

	c.mu.Lock()
	timer, exists := c.timers[key]
	if exists {
		timer.Stop()
		delete(c.timers, key)
	}
	c.mu.Unlock()

	if !exists {
		return event.Responder.Reply(ctx, "No countdown is running here.")
	}

	return event.Responder.Reply(ctx, "Countdown cancelled.")
}

// finish announces an elapsed countdown. A replacement started while this
// callback was in flight owns the map entry now, so only the timer that is
// still tracked may remove it and announce. The triggering request is long
// gone, so the announcement runs on its own deadline.
func (c *CountdownCommand) finish(key string, timer *schedule.Timer, responder friendbot.Responder) {
	c.mu.Lock()
	current := c.timers[key] == timer
	if current {
		delete(c.timers, key)
	}
	c.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = responder.Reply(ctx, "Countdown finished!")
}
