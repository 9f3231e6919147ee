package commands

import (
	"context"
	"fmt"
	"strings"

	"friendbot/pkg/friendbot"
)

// Disconnector tears down a guild's voice connection. Disconnecting a guild
// without one is a no-op, so Connected is the way to tell the member apart
// from a real teardown.
type Disconnector interface {
	Connected(guildID string) bool
	Disconnect(ctx context.Context, guildID string) error
}

// DisconnectCommand leaves the guild's voice channel on demand. It outranks
// every other candidate so a stuck connection can always be torn down.
type DisconnectCommand struct {
	friendbot.BaseCommand

	voice Disconnector
}

// NewDisconnectCommand creates the disconnect command.
func NewDisconnectCommand(voice Disconnector) *DisconnectCommand {
	return &DisconnectCommand{voice: voice}
}

// Name implements friendbot.Command.
func (c *DisconnectCommand) Name() string {
	return "disconnect"
}

// Priority implements friendbot.Command.
func (c *DisconnectCommand) Priority() int {
	return 100
}

// Check implements friendbot.Command.
func (c *DisconnectCommand) Check(_ context.Context, event *friendbot.TriggerEvent) (bool, error) {
	return strings.TrimSpace(event.Text) == "$disconnect", nil
}

// Execute implements friendbot.Command.
func (c *DisconnectCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	if !c.voice.Connected(event.GuildID) {
		return event.Responder.Reply(ctx, "I am not in a voice channel.")
	}
	if err := c.voice.Disconnect(ctx, event.GuildID); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	return event.Responder.Reply(ctx, "Bye!")
}
