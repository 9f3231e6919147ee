// Package permissions persists per-guild, per-user permission grants.
//
// A user with no rows at all has never been seen and is seeded with the
// default grant set on first lookup. A user explicitly stripped of every
// permission is kept distinguishable from an unseen user by a single None
// sentinel row, so the default seeding never resurrects revoked access.
package permissions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"friendbot/pkg/friendbot"
)

// Service reads and writes permission grants in the bot database.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option mutates service construction.
type Option func(*Service)

// WithLogger injects the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(service *Service) {
		if logger != nil {
			service.logger = logger
		}
	}
}

// NewService creates a permission service over an open bot database.
func NewService(db *sql.DB, options ...Option) *Service {
	service := &Service{
		db:     db,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(service)
	}

	return service
}

// UserPermissions returns the user's effective permission set. A user with no
// stored rows is seeded with the defaults; a user holding only the None
// sentinel resolves to an empty set.
func (s *Service) UserPermissions(
	ctx context.Context,
	guildID, userID string,
) (friendbot.PermissionSet, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT permission FROM permissions WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("read permissions for %s/%s: %w", guildID, userID, err)
	}
	defer rows.Close()

	set := friendbot.NewPermissionSet()
	seen := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("read permissions for %s/%s: %w", guildID, userID, err)
		}
		seen++

		permission, err := friendbot.ParsePermission(raw)
		if err != nil {
			s.logger.Warn("skipping unknown stored permission",
				"guild_id", guildID, "user_id", userID, "permission", raw)

			continue
		}
		if permission == friendbot.PermissionNone {
			continue
		}
		set[permission] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read permissions for %s/%s: %w", guildID, userID, err)
	}

	if seen == 0 {
		return s.seedDefaults(ctx, guildID, userID)
	}

	return set, nil
}

// SetUserPermissions replaces the user's grants wholesale. An empty set is
// stored as the None sentinel.
func (s *Service) SetUserPermissions(
	ctx context.Context,
	guildID, userID string,
	permissions friendbot.PermissionSet,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set permissions for %s/%s: %w", guildID, userID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM permissions WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	); err != nil {
		return fmt.Errorf("set permissions for %s/%s: %w", guildID, userID, err)
	}

	stored := sortedPermissions(permissions)
	if len(stored) == 0 {
		stored = []friendbot.Permission{friendbot.PermissionNone}
	}
	for _, permission := range stored {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO permissions (guild_id, user_id, permission) VALUES (?, ?, ?)`,
			guildID, userID, string(permission),
		); err != nil {
			return fmt.Errorf("set permissions for %s/%s: %w", guildID, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set permissions for %s/%s: %w", guildID, userID, err)
	}

	return nil
}

// AddUserPermissions grants the given permissions on top of the stored set.
// Granting anything real removes the None sentinel.
func (s *Service) AddUserPermissions(
	ctx context.Context,
	guildID, userID string,
	granted ...friendbot.Permission,
) error {
	if len(granted) == 0 {
		return nil
	}
	for _, permission := range granted {
		if err := permission.Validate(); err != nil {
			return fmt.Errorf("add permissions for %s/%s: %w", guildID, userID, err)
		}
	}

	// Make sure an unseen user starts from the defaults before the grant.
	if _, err := s.UserPermissions(ctx, guildID, userID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add permissions for %s/%s: %w", guildID, userID, err)
	}
	defer tx.Rollback()

	for _, permission := range granted {
		if permission == friendbot.PermissionNone {
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO permissions (guild_id, user_id, permission) VALUES (?, ?, ?)`,
			guildID, userID, string(permission),
		); err != nil {
			return fmt.Errorf("add permissions for %s/%s: %w", guildID, userID, err)
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM permissions WHERE guild_id = ? AND user_id = ? AND permission = ?`,
		guildID, userID, string(friendbot.PermissionNone),
	); err != nil {
		return fmt.Errorf("add permissions for %s/%s: %w", guildID, userID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add permissions for %s/%s: %w", guildID, userID, err)
	}

	return nil
}

// RemoveUserPermissions revokes the given permissions. Revoking the last real
// permission leaves the None sentinel behind.
func (s *Service) RemoveUserPermissions(
	ctx context.Context,
	guildID, userID string,
	revoked ...friendbot.Permission,
) error {
	if len(revoked) == 0 {
		return nil
	}
	for _, permission := range revoked {
		if err := permission.Validate(); err != nil {
			return fmt.Errorf("remove permissions for %s/%s: %w", guildID, userID, err)
		}
	}

	// An unseen user must hold the defaults before anything is revoked from
	// them, otherwise the revocation would be undone by later seeding.
	if _, err := s.UserPermissions(ctx, guildID, userID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove permissions for %s/%s: %w", guildID, userID, err)
	}
	defer tx.Rollback()

	for _, permission := range revoked {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM permissions WHERE guild_id = ? AND user_id = ? AND permission = ?`,
			guildID, userID, string(permission),
		); err != nil {
			return fmt.Errorf("remove permissions for %s/%s: %w", guildID, userID, err)
		}
	}

	var remaining int
	if err := tx.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM permissions WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	).Scan(&remaining); err != nil {
		return fmt.Errorf("remove permissions for %s/%s: %w", guildID, userID, err)
	}
	if remaining == 0 {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO permissions (guild_id, user_id, permission) VALUES (?, ?, ?)`,
			guildID, userID, string(friendbot.PermissionNone),
		); err != nil {
			return fmt.Errorf("remove permissions for %s/%s: %w", guildID, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("remove permissions for %s/%s: %w", guildID, userID, err)
	}

	return nil
}

// seedDefaults stores and returns the default grant set for an unseen user.
func (s *Service) seedDefaults(
	ctx context.Context,
	guildID, userID string,
) (friendbot.PermissionSet, error) {
	defaults := friendbot.DefaultPermissions()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("seed permissions for %s/%s: %w", guildID, userID, err)
	}
	defer tx.Rollback()

	for _, permission := range sortedPermissions(defaults) {
		// OR IGNORE tolerates a concurrent first lookup seeding the same user.
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO permissions (guild_id, user_id, permission) VALUES (?, ?, ?)`,
			guildID, userID, string(permission),
		); err != nil {
			return nil, fmt.Errorf("seed permissions for %s/%s: %w", guildID, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("seed permissions for %s/%s: %w", guildID, userID, err)
	}

	s.logger.Info("seeded default permissions", "guild_id", guildID, "user_id", userID)

	return defaults, nil
}

// sortedPermissions returns the set's members in stable order for storage.
func sortedPermissions(set friendbot.PermissionSet) []friendbot.Permission {
	members := make([]friendbot.Permission, 0, len(set))
	for permission := range set {
		members = append(members, permission)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	return members
}
