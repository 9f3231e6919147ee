package commands

import (
	"context"
	"fmt"
	"strings"

	"friendbot/pkg/friendbot"
)

// profileStage is where one rename conversation currently stands.
type profileStage int

const (
	stageIdle profileStage = iota
	stageAwaitingFirstName
	stageAwaitingLastName
)

// profileFlow is the transient multi-turn progress of one rename conversation,
// scoped per channel so parallel conversations in different channels do not
// collide. The first name lives here until the last name arrives; nothing is
// committed durably before then.
type profileFlow struct {
	Stage     profileStage
	FirstName string
}

// profileRecord is the durable per-member profile.
type profileRecord struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r profileRecord) fullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// ProfileCommand manages a member's stored display name through a small
// multi-turn conversation: "$profile setname" asks for the first name, the
// member's next two messages in the same channel answer first and last name in
// turn, and "$profile name" reads the stored result back.
type ProfileCommand struct {
	friendbot.BaseCommand

	state friendbot.StatefulCommand[profileFlow, profileRecord]
}

// NewProfileCommand creates the profile command over the two cache layers.
func NewProfileCommand(cache friendbot.Cache, durable friendbot.DurableCache) *ProfileCommand {
	return &ProfileCommand{
		state: friendbot.NewStatefulCommand(cache, durable, profileFlow{}, profileRecord{}),
	}
}

// Name implements friendbot.Command.
func (c *ProfileCommand) Name() string {
	return "profile"
}

// RequiredPermissions implements friendbot.Command.
func (c *ProfileCommand) RequiredPermissions() friendbot.PermissionSet {
	return friendbot.NewPermissionSet(
		friendbot.PermissionUseCommands,
		friendbot.PermissionModifySelf,
	)
}

// Check implements friendbot.Command. Besides the explicit triggers, any
// non-command message matches while this channel's conversation is awaiting
// one of the member's answers.
func (c *ProfileCommand) Check(ctx context.Context, event *friendbot.TriggerEvent) (bool, error) {
	trimmed := strings.TrimSpace(event.Text)
	if trimmed == "$profile setname" || trimmed == "$profile name" {
		return true, nil
	}
	if strings.HasPrefix(trimmed, "$") || trimmed == "" {
		return false, nil
	}

	flow, err := c.state.State(ctx, friendbot.ChannelScope(event))
	if err != nil {
		return false, fmt.Errorf("profile check: %w", err)
	}

	return flow.Stage != stageIdle, nil
}

// Execute implements friendbot.Command.
func (c *ProfileCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	switch strings.TrimSpace(event.Text) {
	case "$profile setname":
		return c.beginRename(ctx, event)
	case "$profile name":
		return c.sayName(ctx, event)
	default:
		return c.advanceRename(ctx, event)
	}
}

func (c *ProfileCommand) beginRename(ctx context.Context, event *friendbot.TriggerEvent) error {
	err := c.state.SetState(ctx, friendbot.ChannelScope(event), func(flow *profileFlow) {
		flow.Stage = stageAwaitingFirstName
		flow.FirstName = ""
	})
	if err != nil {
		return fmt.Errorf("profile setname: %w", err)
	}

	return event.Responder.Reply(ctx, "What is your first name?")
}

// advanceRename consumes one answer: the first name is parked in the transient
// flow, and the last name completes it into the durable record.
func (c *ProfileCommand) advanceRename(ctx context.Context, event *friendbot.TriggerEvent) error {
	scope := friendbot.ChannelScope(event)
	answer := strings.TrimSpace(event.Text)

	flow, err := c.state.State(ctx, scope)
	if err != nil {
		return fmt.Errorf("profile rename: %w", err)
	}

	switch flow.Stage {
	case stageAwaitingFirstName:
		err := c.state.SetState(ctx, scope, func(flow *profileFlow) {
			flow.Stage = stageAwaitingLastName
			flow.FirstName = answer
		})
		if err != nil {
			return fmt.Errorf("profile rename: %w", err)
		}

		return event.Responder.Reply(ctx, "And your last name?")
	case stageAwaitingLastName:
		record := profileRecord{FirstName: flow.FirstName, LastName: answer}
		err := c.state.SetPersistentState(ctx, friendbot.MemberScope(event), func(stored *profileRecord) {
			*stored = record
		})
		if err != nil {
			return fmt.Errorf("profile rename: %w", err)
		}
		err = c.state.SetState(ctx, scope, func(flow *profileFlow) {
			*flow = profileFlow{}
		})
		if err != nil {
			return fmt.Errorf("profile rename: %w", err)
		}

		return event.Responder.Reply(ctx, fmt.Sprintf("Nice to meet you, %s!", record.fullName()))
	default:
		return nil
	}
}

func (c *ProfileCommand) sayName(ctx context.Context, event *friendbot.TriggerEvent) error {
	record, err := c.state.PersistentState(ctx, friendbot.MemberScope(event))
	if err != nil {
		return fmt.Errorf("profile name: %w", err)
	}
	if record.fullName() == "" {
		return event.Responder.Reply(ctx, "I do not have a name for you yet. Try $profile setname.")
	}

	return event.Responder.Reply(ctx, fmt.Sprintf("I call you %s.", record.fullName()))
}
