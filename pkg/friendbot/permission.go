package friendbot

import "fmt"

// Permission is one capability flag from the closed permission vocabulary.
type Permission string

const (
	// PermissionNone explicitly marks a user as holding no permissions,
	// as opposed to "never initialized" which triggers default seeding.
	PermissionNone Permission = "None"
	// PermissionUseCommands is the minimum permission to use any command.
	PermissionUseCommands Permission = "UseCommands"
	// PermissionModifySelf allows changing one's own bot-tracked attributes.
	PermissionModifySelf Permission = "ModifySelf"
	// PermissionModifyOtherTemporary allows temporary changes to other users.
	PermissionModifyOtherTemporary Permission = "ModifyOtherTemporary"
	// PermissionModifyOther allows persistent changes to other users.
	PermissionModifyOther Permission = "ModifyOther"
	// PermissionPlaySound allows playing sounds through a voice connection.
	PermissionPlaySound Permission = "PlaySound"
	// PermissionBank allows using currency commands.
	PermissionBank Permission = "Bank"
	// PermissionBankAdmin allows administrative currency operations.
	PermissionBankAdmin Permission = "BankAdmin"
	// PermissionModifyBot allows changing bot-wide behavior.
	PermissionModifyBot Permission = "ModifyBot"
	// PermissionModifyPermissions allows granting and revoking permissions.
	PermissionModifyPermissions Permission = "ModifyPermissions"
)

// allPermissions lists every member of the vocabulary including the None sentinel.
var allPermissions = []Permission{
	PermissionNone,
	PermissionUseCommands,
	PermissionModifySelf,
	PermissionModifyOtherTemporary,
	PermissionModifyOther,
	PermissionPlaySound,
	PermissionBank,
	PermissionBankAdmin,
	PermissionModifyBot,
	PermissionModifyPermissions,
}

// Validate checks whether one permission belongs to the vocabulary.
func (p Permission) Validate() error {
	for _, known := range allPermissions {
		if p == known {
			return nil
		}
	}

	return fmt.Errorf("validate permission: unknown permission %q", p)
}

// ParsePermission resolves a vocabulary member from its stored name.
func ParsePermission(name string) (Permission, error) {
	permission := Permission(name)
	if err := permission.Validate(); err != nil {
		return "", err
	}

	return permission, nil
}

// PermissionSet is an unordered collection of permission grants.
type PermissionSet map[Permission]struct{}

// NewPermissionSet creates a set holding the provided permissions.
func NewPermissionSet(permissions ...Permission) PermissionSet {
	set := make(PermissionSet, len(permissions))
	for _, permission := range permissions {
		set[permission] = struct{}{}
	}

	return set
}

// Has reports whether the set contains one permission.
func (s PermissionSet) Has(permission Permission) bool {
	_, exists := s[permission]

	return exists
}

// HasAll reports whether the set contains every permission in required.
func (s PermissionSet) HasAll(required PermissionSet) bool {
	for permission := range required {
		if !s.Has(permission) {
			return false
		}
	}

	return true
}

// Missing returns the members of required absent from the set.
func (s PermissionSet) Missing(required PermissionSet) []Permission {
	missing := make([]Permission, 0, len(required))
	for permission := range required {
		if !s.Has(permission) {
			missing = append(missing, permission)
		}
	}

	return missing
}

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	cloned := make(PermissionSet, len(s))
	for permission := range s {
		cloned[permission] = struct{}{}
	}

	return cloned
}

// DefaultPermissions returns the grants seeded for a never-initialized user.
func DefaultPermissions() PermissionSet {
	return NewPermissionSet(
		PermissionUseCommands,
		PermissionModifySelf,
		PermissionModifyOtherTemporary,
		PermissionPlaySound,
		PermissionBank,
	)
}

// AllPermissions returns every grantable permission, excluding the None sentinel.
func AllPermissions() PermissionSet {
	set := make(PermissionSet, len(allPermissions)-1)
	for _, permission := range allPermissions {
		if permission == PermissionNone {
			continue
		}
		set[permission] = struct{}{}
	}

	return set
}
