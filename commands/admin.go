package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"friendbot/pkg/friendbot"
)

// PermissionManager is the grant store behind the administration commands.
type PermissionManager interface {
	UserPermissions(ctx context.Context, guildID, userID string) (friendbot.PermissionSet, error)
	SetUserPermissions(
		ctx context.Context,
		guildID, userID string,
		permissions friendbot.PermissionSet,
	) error
	AddUserPermissions(
		ctx context.Context,
		guildID, userID string,
		granted ...friendbot.Permission,
	) error
	RemoveUserPermissions(
		ctx context.Context,
		guildID, userID string,
		revoked ...friendbot.Permission,
	) error
}

// PermissionAdminCommand grants and revokes permissions:
//
//	$permissions list [@member]
//	$permissions add @member <Permission>
//	$permissions remove @member <Permission>
//	$op @member
//	$deop @member
//
// $op grants everything; $deop resets the member to the defaults.
type PermissionAdminCommand struct {
	friendbot.BaseCommand

	permissions PermissionManager
}

// NewPermissionAdminCommand creates the permission administration command.
func NewPermissionAdminCommand(permissions PermissionManager) *PermissionAdminCommand {
	return &PermissionAdminCommand{permissions: permissions}
}

// Name implements friendbot.Command.
func (c *PermissionAdminCommand) Name() string {
	return "permission-admin"
}

// Priority implements friendbot.Command.
func (c *PermissionAdminCommand) Priority() int {
	return 50
}

// RequiredPermissions implements friendbot.Command.
func (c *PermissionAdminCommand) RequiredPermissions() friendbot.PermissionSet {
	return friendbot.NewPermissionSet(
		friendbot.PermissionUseCommands,
		friendbot.PermissionModifyPermissions,
	)
}

// Check implements friendbot.Command.
func (c *PermissionAdminCommand) Check(
	_ context.Context,
	event *friendbot.TriggerEvent,
) (bool, error) {
	fields := strings.Fields(event.Text)
	if len(fields) == 0 {
		return false, nil
	}

	return fields[0] == "$permissions" || fields[0] == "$op" || fields[0] == "$deop", nil
}

// Execute implements friendbot.Command.
func (c *PermissionAdminCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	fields := strings.Fields(event.Text)

	switch fields[0] {
	case "$op":
		return c.op(ctx, event)
	case "$deop":
		return c.deop(ctx, event)
	}

	if len(fields) < 2 {
		return c.usage(ctx, event)
	}
	switch fields[1] {
	case "list":
		return c.list(ctx, event)
	case "add", "remove":
		return c.modify(ctx, event, fields)
	default:
		return c.usage(ctx, event)
	}
}

func (c *PermissionAdminCommand) usage(ctx context.Context, event *friendbot.TriggerEvent) error {
	return event.Responder.Reply(ctx,
		"Usage: $permissions list [@member] | $permissions add|remove @member <Permission>")
}

// target picks the mentioned member, falling back to the actor themselves.
func target(event *friendbot.TriggerEvent) string {
	if len(event.Mentions) > 0 {
		return event.Mentions[0]
	}

	return event.ActorID
}

func (c *PermissionAdminCommand) op(ctx context.Context, event *friendbot.TriggerEvent) error {
	if len(event.Mentions) == 0 {
		return event.Responder.Reply(ctx, "Usage: $op @member")
	}

	err := c.permissions.SetUserPermissions(
		ctx, event.GuildID, event.Mentions[0], friendbot.AllPermissions())
	if err != nil {
		return fmt.Errorf("op: %w", err)
	}

	return event.Responder.Reply(ctx, "Granted every permission.")
}

func (c *PermissionAdminCommand) deop(ctx context.Context, event *friendbot.TriggerEvent) error {
	if len(event.Mentions) == 0 {
		return event.Responder.Reply(ctx, "Usage: $deop @member")
	}

	err := c.permissions.SetUserPermissions(
		ctx, event.GuildID, event.Mentions[0], friendbot.DefaultPermissions())
	if err != nil {
		return fmt.Errorf("deop: %w", err)
	}

	return event.Responder.Reply(ctx, "Reset to the default permissions.")
}

func (c *PermissionAdminCommand) list(ctx context.Context, event *friendbot.TriggerEvent) error {
	userID := target(event)

	set, err := c.permissions.UserPermissions(ctx, event.GuildID, userID)
	if err != nil {
		return fmt.Errorf("list permissions: %w", err)
	}
	if len(set) == 0 {
		return event.Responder.Reply(ctx, "No permissions.")
	}

	names := make([]string, 0, len(set))
	for permission := range set {
		names = append(names, string(permission))
	}
	sort.Strings(names)

	return event.Responder.Reply(ctx, strings.Join(names, ", "))
}

func (c *PermissionAdminCommand) modify(
	ctx context.Context,
	event *friendbot.TriggerEvent,
	fields []string,
) error {
	if len(fields) != 4 || len(event.Mentions) == 0 {
		return c.usage(ctx, event)
	}

	permission, err := friendbot.ParsePermission(fields[3])
	if err != nil || permission == friendbot.PermissionNone {
		return event.Responder.Reply(ctx, fmt.Sprintf("%q is not a permission.", fields[3]))
	}
	userID := event.Mentions[0]

	switch fields[1] {
	case "add":
		if err := c.permissions.AddUserPermissions(ctx, event.GuildID, userID, permission); err != nil {
			return fmt.Errorf("add permission: %w", err)
		}

		return event.Responder.Reply(ctx, fmt.Sprintf("Granted %s.", permission))
	default:
		if err := c.permissions.RemoveUserPermissions(ctx, event.GuildID, userID, permission); err != nil {
			return fmt.Errorf("remove permission: %w", err)
		}

		return event.Responder.Reply(ctx, fmt.Sprintf("Revoked %s.", permission))
	}
}
