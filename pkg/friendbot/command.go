package friendbot

import "context"

// Command is one dispatch candidate: a predicate over inbound trigger events
// plus the action to run when it matches.
//
// Implementations must be stateless with respect to individual requests
// because one instance is shared across concurrent dispatches; per-request
// progress belongs in the caches, scoped by Index.
type Command interface {
	// Name returns a stable identifier used in audit log entries.
	Name() string
	// Check reports whether this command should run for the event.
	Check(ctx context.Context, event *TriggerEvent) (bool, error)
	// Execute runs the command action for a matched event.
	Execute(ctx context.Context, event *TriggerEvent) error
	// Priority orders candidates; higher numbers are evaluated first.
	Priority() int
	// Exclusive reports whether a successful match stops evaluation of
	// lower-priority candidates for the same event.
	Exclusive() bool
	// RequiredPermissions returns the grants the actor must hold.
	RequiredPermissions() PermissionSet
}

// BaseCommand supplies candidate defaults: priority 0, exclusive, and the
// minimal UseCommands permission. Embed it and override as needed.
type BaseCommand struct{}

// Priority returns the default candidate priority.
func (BaseCommand) Priority() int {
	return 0
}

// Exclusive reports that the command stops lower-priority evaluation by default.
func (BaseCommand) Exclusive() bool {
	return true
}

// RequiredPermissions returns the minimal default permission set.
func (BaseCommand) RequiredPermissions() PermissionSet {
	return NewPermissionSet(PermissionUseCommands)
}
