package commands

import (
	"context"
	"regexp"

	"friendbot/pkg/friendbot"
)

var goodBotPattern = regexp.MustCompile(`(?i)\bgood bot\b`)

// PraiseReactionCommand reacts to praise without consuming the event, so a
// message that both praises the bot and triggers a command still runs it.
type PraiseReactionCommand struct {
	friendbot.BaseCommand
}

// NewPraiseReactionCommand creates the praise reaction command.
func NewPraiseReactionCommand() *PraiseReactionCommand {
	return &PraiseReactionCommand{}
}

// Name implements friendbot.Command.
func (c *PraiseReactionCommand) Name() string {
	return "praise-reaction"
}

// Priority implements friendbot.Command.
func (c *PraiseReactionCommand) Priority() int {
	return -10
}

// Exclusive implements friendbot.Command.
func (c *PraiseReactionCommand) Exclusive() bool {
	return false
}

// Check implements friendbot.Command.
func (c *PraiseReactionCommand) Check(_ context.Context, event *friendbot.TriggerEvent) (bool, error) {
	return goodBotPattern.MatchString(event.Text), nil
}

// Execute implements friendbot.Command.
func (c *PraiseReactionCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	return event.Responder.React(ctx, "🐾")
}
