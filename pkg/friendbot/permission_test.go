package friendbot

import "testing"

func TestParsePermission(t *testing.T) {
	t.Parallel()

	permission, err := ParsePermission("PlaySound")
	if err != nil {
		t.Fatalf("ParsePermission() error = %v", err)
	}
	if permission != PermissionPlaySound {
		t.Fatalf("ParsePermission() = %v", permission)
	}

	if _, err := ParsePermission("playsound"); err == nil {
		t.Fatal("ParsePermission accepted wrong case")
	}
	if _, err := ParsePermission(""); err == nil {
		t.Fatal("ParsePermission accepted empty name")
	}
}

func TestPermissionSetHasAllAndMissing(t *testing.T) {
	t.Parallel()

	held := NewPermissionSet(PermissionUseCommands, PermissionBank)
	required := NewPermissionSet(PermissionUseCommands, PermissionBankAdmin)

	if held.HasAll(required) {
		t.Fatal("HasAll() = true with BankAdmin missing")
	}
	missing := held.Missing(required)
	if len(missing) != 1 || missing[0] != PermissionBankAdmin {
		t.Fatalf("Missing() = %v, want [BankAdmin]", missing)
	}

	if !held.HasAll(NewPermissionSet(PermissionUseCommands)) {
		t.Fatal("HasAll() = false for a held subset")
	}
	if !held.HasAll(NewPermissionSet()) {
		t.Fatal("HasAll() = false for the empty requirement")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := NewPermissionSet(PermissionUseCommands)
	cloned := original.Clone()
	cloned[PermissionModifyBot] = struct{}{}

	if original.Has(PermissionModifyBot) {
		t.Fatal("mutating the clone changed the original")
	}
}

func TestDefaultAndAllPermissions(t *testing.T) {
	t.Parallel()

	defaults := DefaultPermissions()
	if defaults.Has(PermissionNone) || defaults.Has(PermissionModifyPermissions) {
		t.Fatalf("defaults = %v, contain privileged or sentinel members", defaults)
	}
	if !defaults.Has(PermissionUseCommands) {
		t.Fatal("defaults missing UseCommands")
	}

	all := AllPermissions()
	if all.Has(PermissionNone) {
		t.Fatal("AllPermissions contains the None sentinel")
	}
	if !all.HasAll(defaults) {
		t.Fatal("AllPermissions does not cover the defaults")
	}
}
