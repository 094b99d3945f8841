package stable

import "strings"

// Role is a bit position in the operator capability mask.
type Role uint64

const (
	// RoleAdmin manages operators and the pause flag.
	RoleAdmin Role = 1 << iota
	// RolePeriodManager updates and resets rolling rate limits.
	RolePeriodManager
	// RoleGlobalDisabler may set (but not clear) the protocol pause flag.
	RoleGlobalDisabler
	// RoleVaultManager configures vault oracles, bounds and status.
	RoleVaultManager
	// RoleVaultDisabler may disable (but not enable) vaults.
	RoleVaultDisabler
	// RoleBenefactorManager configures benefactor fees and status.
	RoleBenefactorManager
	// RoleBenefactorDisabler may disable (but not activate) benefactors.
	RoleBenefactorDisabler
	// RolePegManager updates the protocol peg price.
	RolePegManager
	// RoleCollateralManager withdraws collateral from vault custody.
	RoleCollateralManager
)

// AllRoles is the mask granted to the bootstrap operator.
const AllRoles Role = RoleAdmin | RolePeriodManager | RoleGlobalDisabler |
	RoleVaultManager | RoleVaultDisabler | RoleBenefactorManager |
	RoleBenefactorDisabler | RolePegManager | RoleCollateralManager

var roleNames = map[Role]string{
	RoleAdmin:              "admin",
	RolePeriodManager:      "period-manager",
	RoleGlobalDisabler:     "global-disabler",
	RoleVaultManager:       "vault-manager",
	RoleVaultDisabler:      "vault-disabler",
	RoleBenefactorManager:  "benefactor-manager",
	RoleBenefactorDisabler: "benefactor-disabler",
	RolePegManager:         "peg-manager",
	RoleCollateralManager:  "collateral-manager",
}

// String renders the role set as a comma-joined list of role names.
func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	parts := make([]string, 0, len(roleNames))
	for bit := Role(1); bit != 0 && bit <= r; bit <<= 1 {
		if r&bit == 0 {
			continue
		}
		if name, ok := roleNames[bit]; ok {
			parts = append(parts, name)
		} else {
			parts = append(parts, "unknown")
		}
	}
	return strings.Join(parts, ",")
}

// Operator is the per-authority capability record. Status and role bits are
// both required for an action to pass.
type Operator struct {
	Authority Address
	Roles     Role
	Enabled   bool
}

// Is verifies the operator is enabled and holds the requested role.
func (o *Operator) Is(role Role) error {
	if o == nil {
		return ErrNotAuthorized
	}
	if !o.Enabled {
		return ErrOperatorDisabled
	}
	if o.Roles&role == 0 {
		return ErrInvalidAuthority
	}
	return nil
}

// Grant adds role bits to the mask.
func (o *Operator) Grant(roles Role) {
	if o == nil {
		return
	}
	o.Roles |= roles
}

// Revoke clears role bits from the mask.
func (o *Operator) Revoke(roles Role) {
	if o == nil {
		return
	}
	o.Roles &^= roles
}
