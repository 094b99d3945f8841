package stable

import (
	"errors"
	"strings"
	"testing"
)

func TestOperatorIs(t *testing.T) {
	operator := &Operator{Authority: testAddress(1), Roles: RoleVaultManager | RolePegManager, Enabled: true}
	if err := operator.Is(RoleVaultManager); err != nil {
		t.Fatalf("expected vault manager role: %v", err)
	}
	if err := operator.Is(RoleAdmin); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected invalid authority, got %v", err)
	}
	operator.Enabled = false
	if err := operator.Is(RoleVaultManager); !errors.Is(err, ErrOperatorDisabled) {
		t.Fatalf("expected operator disabled, got %v", err)
	}
}

func TestOperatorGrantRevoke(t *testing.T) {
	operator := &Operator{Authority: testAddress(1), Enabled: true}
	operator.Grant(RoleAdmin | RolePeriodManager)
	if err := operator.Is(RolePeriodManager); err != nil {
		t.Fatalf("expected granted role: %v", err)
	}
	operator.Revoke(RolePeriodManager)
	if err := operator.Is(RolePeriodManager); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected revoked role to fail, got %v", err)
	}
	if err := operator.Is(RoleAdmin); err != nil {
		t.Fatalf("unrelated role lost: %v", err)
	}
}

func TestRoleString(t *testing.T) {
	if got := Role(0).String(); got != "none" {
		t.Fatalf("unexpected zero mask rendering: %q", got)
	}
	rendered := (RoleAdmin | RoleVaultDisabler).String()
	if !strings.Contains(rendered, "admin") || !strings.Contains(rendered, "vault-disabler") {
		t.Fatalf("unexpected role rendering: %q", rendered)
	}
	if AllRoles.String() == "none" {
		t.Fatalf("all-roles mask rendered empty")
	}
}
