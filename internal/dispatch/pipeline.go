// Package dispatch routes inbound trigger events through the registered
// command candidates in priority order, gating each match on the actor's
// stored permissions.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"friendbot/pkg/friendbot"
)

// PermissionSource resolves an actor's effective permission set.
type PermissionSource interface {
	UserPermissions(ctx context.Context, guildID, userID string) (friendbot.PermissionSet, error)
}

// Pipeline is the command dispatcher. Candidates are kept sorted by
// descending priority; ties keep registration order.
type Pipeline struct {
	permissions PermissionSource
	logger      *slog.Logger

	mu       sync.RWMutex
	commands []friendbot.Command
}

// Option mutates pipeline construction.
type Option func(*Pipeline)

// WithLogger injects the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(pipeline *Pipeline) {
		if logger != nil {
			pipeline.logger = logger
		}
	}
}

// NewPipeline creates an empty dispatch pipeline.
func NewPipeline(permissions PermissionSource, options ...Option) *Pipeline {
	pipeline := &Pipeline{
		permissions: permissions,
		logger:      slog.Default(),
	}
	for _, option := range options {
		option(pipeline)
	}

	return pipeline
}

// Register adds command candidates, keeping the evaluation order stable:
// higher priority first, equal priorities in registration order.
func (p *Pipeline) Register(commands ...friendbot.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, command := range commands {
		index := len(p.commands)
		for index > 0 && p.commands[index-1].Priority() < command.Priority() {
			index--
		}
		p.commands = append(p.commands, nil)
		copy(p.commands[index+1:], p.commands[index:])
		p.commands[index] = command
	}
}

// Dispatch routes one trigger event through the candidate list. Candidate
// failures and panics are contained and logged; they never propagate to the
// driver. A permission denial stops the whole event after notifying the actor.
func (p *Pipeline) Dispatch(ctx context.Context, event *friendbot.TriggerEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("dispatch event: %w", err)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ActorIsBot {
		return nil
	}

	p.mu.RLock()
	candidates := make([]friendbot.Command, len(p.commands))
	copy(candidates, p.commands)
	p.mu.RUnlock()

	var actorPermissions friendbot.PermissionSet

	for _, command := range candidates {
		matched, err := p.check(ctx, command, event)
		if err != nil {
			p.logger.ErrorContext(ctx, "command check failed",
				"command", command.Name(), "event_id", event.ID, "error", err)

			continue
		}
		if !matched {
			continue
		}

		if !event.ActorIsAdmin {
			if actorPermissions == nil {
				actorPermissions, err = p.permissions.UserPermissions(ctx, event.GuildID, event.ActorID)
				if err != nil {
					return fmt.Errorf("dispatch event %s: %w", event.ID, err)
				}
			}
			if !actorPermissions.HasAll(command.RequiredPermissions()) {
				p.deny(ctx, command, event, actorPermissions)

				return nil
			}
		}

		p.logger.InfoContext(ctx, "executing command",
			"command", command.Name(),
			"guild_id", event.GuildID,
			"actor_id", event.ActorID,
			"event_id", event.ID,
			"text", event.Text,
		)
		if err := p.execute(ctx, command, event); err != nil {
			p.logger.ErrorContext(ctx, "command execution failed",
				"command", command.Name(), "event_id", event.ID, "error", err)
		}

		if command.Exclusive() {
			break
		}
	}

	return nil
}

// check runs the candidate predicate, converting a panic into an error.
func (p *Pipeline) check(
	ctx context.Context,
	command friendbot.Command,
	event *friendbot.TriggerEvent,
) (matched bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			matched = false
			err = fmt.Errorf("check panicked: %v", recovered)
		}
	}()

	return command.Check(ctx, event)
}

// execute runs the candidate action, converting a panic into an error.
func (p *Pipeline) execute(
	ctx context.Context,
	command friendbot.Command,
	event *friendbot.TriggerEvent,
) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("execution panicked: %v", recovered)
		}
	}()

	return command.Execute(ctx, event)
}

// deny notifies the actor and logs the missing grants.
func (p *Pipeline) deny(
	ctx context.Context,
	command friendbot.Command,
	event *friendbot.TriggerEvent,
	held friendbot.PermissionSet,
) {
	p.logger.InfoContext(ctx, "command denied",
		"command", command.Name(),
		"guild_id", event.GuildID,
		"actor_id", event.ActorID,
		"event_id", event.ID,
		"missing", held.Missing(command.RequiredPermissions()),
	)
	if err := event.Responder.Reply(ctx, "You do not have permission to do that."); err != nil {
		p.logger.ErrorContext(ctx, "denial reply failed",
			"command", command.Name(), "event_id", event.ID, "error", err)
	}
}
