package stable

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Admin applies role-gated administrative commands against the protocol
// records. Every command names the single role it requires; actions that
// several roles may perform are issued as distinct commands.
type Admin struct {
	state  *Store
	ledger TokenLedger
	clock  func() Clock
	logger *slog.Logger
}

// NewAdmin constructs the admin surface over the provided storage and ledger.
func NewAdmin(store Storage, ledger TokenLedger) *Admin {
	return &Admin{
		state:  NewStore(store),
		ledger: ledger,
		clock: func() Clock {
			return Clock{UnixTime: time.Now().Unix()}
		},
		logger: slog.Default(),
	}
}

// SetClock overrides the time source, enabling deterministic unit tests.
func (a *Admin) SetClock(clock func() Clock) {
	if a == nil || clock == nil {
		return
	}
	a.clock = clock
}

// SetLogger overrides the structured logger.
func (a *Admin) SetLogger(logger *slog.Logger) {
	if a == nil || logger == nil {
		return
	}
	a.logger = logger
}

// Store exposes the record accessor backing the admin surface.
func (a *Admin) Store() *Store {
	if a == nil {
		return nil
	}
	return a.state
}

// Init bootstraps the protocol: it creates the config singleton and the
// first operator, holding every role. Fails if the protocol already exists.
func (a *Admin) Init(authority, lpMint Address, lpDecimals uint8) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if authority.IsZero() || lpMint.IsZero() {
		return ErrBadInput
	}
	_, exists, err := a.state.Config()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("stable: protocol already initialised")
	}
	if err := a.state.PutConfig(NewConfig(lpMint, authority, lpDecimals)); err != nil {
		return err
	}
	bootstrap := &Operator{Authority: authority, Roles: AllRoles, Enabled: true}
	if err := a.state.PutOperator(bootstrap); err != nil {
		return err
	}
	a.logger.Info("stable protocol initialised",
		slog.String("authority", authority.Hex()),
		slog.String("lp_mint", lpMint.Hex()),
	)
	return nil
}

func (a *Admin) requireRole(actor Address, role Role) (*Operator, error) {
	operator, ok, err := a.state.Operator(actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}
	if err := operator.Is(role); err != nil {
		return nil, err
	}
	return operator, nil
}

// ConfigAction is the sealed command set for the protocol singleton.
type ConfigAction interface{ configAction() }

// ConfigPause sets the global pause flag. It cannot clear it.
type ConfigPause struct{}

// ConfigSetPauseFlag sets the pause flag to an explicit value.
type ConfigSetPauseFlag struct{ Paused bool }

// ConfigUpdatePeriodLimit reconfigures one protocol-scope rolling limit.
type ConfigUpdatePeriodLimit struct {
	Index           int
	DurationSeconds int64
	MaxMintAmount   uint64
	MaxRedeemAmount uint64
}

// ConfigResetPeriodLimit zeroes one protocol-scope rolling limit.
type ConfigResetPeriodLimit struct{ Index int }

// ConfigSetPegPrice updates the protocol peg price.
type ConfigSetPegPrice struct{ PegPriceUSD uint64 }

func (ConfigPause) configAction()             {}
func (ConfigSetPauseFlag) configAction()      {}
func (ConfigUpdatePeriodLimit) configAction() {}
func (ConfigResetPeriodLimit) configAction()  {}
func (ConfigSetPegPrice) configAction()       {}

// ApplyConfigAction dispatches a config command under the actor's roles.
func (a *Admin) ApplyConfigAction(actor Address, action ConfigAction) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	cfg, ok, err := a.state.Config()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stable: protocol not initialised")
	}
	switch cmd := action.(type) {
	case ConfigPause:
		if _, err := a.requireRole(actor, RoleGlobalDisabler); err != nil {
			return err
		}
		cfg.Paused = true
	case ConfigSetPauseFlag:
		if _, err := a.requireRole(actor, RoleAdmin); err != nil {
			return err
		}
		cfg.Paused = cmd.Paused
	case ConfigUpdatePeriodLimit:
		if _, err := a.requireRole(actor, RolePeriodManager); err != nil {
			return err
		}
		if cmd.Index < 0 || cmd.Index >= PeriodLimitCount {
			return ErrBadInput
		}
		if err := cfg.Limits[cmd.Index].Update(cmd.DurationSeconds, cmd.MaxMintAmount, cmd.MaxRedeemAmount, a.clock().UnixTime); err != nil {
			return err
		}
	case ConfigResetPeriodLimit:
		if _, err := a.requireRole(actor, RolePeriodManager); err != nil {
			return err
		}
		if cmd.Index < 0 || cmd.Index >= PeriodLimitCount {
			return ErrBadInput
		}
		cfg.Limits[cmd.Index].Reset()
	case ConfigSetPegPrice:
		if _, err := a.requireRole(actor, RolePegManager); err != nil {
			return err
		}
		if err := cfg.SetPegPrice(cmd.PegPriceUSD); err != nil {
			return err
		}
	default:
		return ErrBadInput
	}
	return a.state.PutConfig(cfg)
}

// CreateVault registers a vault for a new collateral mint. The collateral
// mint must differ from the LP mint; the vault starts disabled with default
// bounds.
func (a *Admin) CreateVault(actor, collateralMint Address, collateralDecimals uint8) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if _, err := a.requireRole(actor, RoleVaultManager); err != nil {
		return err
	}
	cfg, ok, err := a.state.Config()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stable: protocol not initialised")
	}
	if collateralMint.IsZero() || collateralMint == cfg.LPMint {
		return ErrBadInput
	}
	_, exists, err := a.state.Vault(collateralMint)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("stable: vault %s already exists", collateralMint.Hex())
	}
	return a.state.PutVault(NewVault(collateralMint, collateralDecimals))
}

// VaultAction is the sealed command set for vault records.
type VaultAction interface{ vaultAction() }

// VaultSetCustodian points the vault at a new custody address.
type VaultSetCustodian struct{ Custodian Address }

// VaultUpdateOracle replaces the oracle slot at Index. Clearing the last slot
// disables the vault.
type VaultUpdateOracle struct {
	Index int
	Slot  OracleSlot
}

// VaultSetPriceBounds updates the sane-price window.
type VaultSetPriceBounds struct{ MinUSD, MaxUSD uint64 }

// VaultSetStaleness updates the oracle staleness threshold.
type VaultSetStaleness struct{ Seconds int64 }

// VaultUpdatePeriodLimit reconfigures one vault-scope rolling limit.
type VaultUpdatePeriodLimit struct {
	Index           int
	DurationSeconds int64
	MaxMintAmount   uint64
	MaxRedeemAmount uint64
}

// VaultResetPeriodLimit zeroes one vault-scope rolling limit.
type VaultResetPeriodLimit struct{ Index int }

// VaultEnable switches the vault on; it requires a custodian and at least
// one configured oracle slot.
type VaultEnable struct{}

// VaultDisable switches the vault off.
type VaultDisable struct{}

func (VaultSetCustodian) vaultAction()      {}
func (VaultUpdateOracle) vaultAction()      {}
func (VaultSetPriceBounds) vaultAction()    {}
func (VaultSetStaleness) vaultAction()      {}
func (VaultUpdatePeriodLimit) vaultAction() {}
func (VaultResetPeriodLimit) vaultAction()  {}
func (VaultEnable) vaultAction()            {}
func (VaultDisable) vaultAction()           {}

// ApplyVaultAction dispatches a vault command under the actor's roles.
func (a *Admin) ApplyVaultAction(actor, collateralMint Address, action VaultAction) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	vault, ok, err := a.state.Vault(collateralMint)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stable: unknown vault %s", collateralMint.Hex())
	}
	switch cmd := action.(type) {
	case VaultSetCustodian:
		if _, err := a.requireRole(actor, RoleVaultManager); err != nil {
			return err
		}
		if cmd.Custodian.IsZero() {
			return ErrBadInput
		}
		vault.Custodian = cmd.Custodian
	case VaultUpdateOracle:
		if _, err := a.requireRole(actor, RoleVaultManager); err != nil {
			return err
		}
		if err := vault.SetOracle(cmd.Index, cmd.Slot); err != nil {
			return err
		}
	case VaultSetPriceBounds:
		if _, err := a.requireRole(actor, RoleVaultManager); err != nil {
			return err
		}
		if err := vault.SetPriceBounds(cmd.MinUSD, cmd.MaxUSD); err != nil {
			return err
		}
	case VaultSetStaleness:
		if _, err := a.requireRole(actor, RoleVaultManager); err != nil {
			return err
		}
		if cmd.Seconds <= 0 {
			return ErrBadInput
		}
		vault.StalenessThresholdSeconds = cmd.Seconds
	case VaultUpdatePeriodLimit:
		if _, err := a.requireRole(actor, RolePeriodManager); err != nil {
			return err
		}
		if cmd.Index < 0 || cmd.Index >= PeriodLimitCount {
			return ErrBadInput
		}
		if err := vault.Limits[cmd.Index].Update(cmd.DurationSeconds, cmd.MaxMintAmount, cmd.MaxRedeemAmount, a.clock().UnixTime); err != nil {
			return err
		}
	case VaultResetPeriodLimit:
		if _, err := a.requireRole(actor, RolePeriodManager); err != nil {
			return err
		}
		if cmd.Index < 0 || cmd.Index >= PeriodLimitCount {
			return ErrBadInput
		}
		vault.Limits[cmd.Index].Reset()
	case VaultEnable:
		if _, err := a.requireRole(actor, RoleVaultManager); err != nil {
			return err
		}
		if err := vault.Enable(); err != nil {
			return err
		}
	case VaultDisable:
		if _, err := a.requireRole(actor, RoleVaultDisabler); err != nil {
			return err
		}
		vault.Disable()
	default:
		return ErrBadInput
	}
	return a.state.PutVault(vault)
}

// WithdrawCollateral moves collateral out of vault custody to the recipient.
func (a *Admin) WithdrawCollateral(ctx context.Context, actor, collateralMint, recipient Address, amount uint64) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if _, err := a.requireRole(actor, RoleCollateralManager); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if recipient.IsZero() {
		return ErrBadInput
	}
	vault, ok, err := a.state.Vault(collateralMint)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stable: unknown vault %s", collateralMint.Hex())
	}
	balance, err := a.ledger.BalanceOf(ctx, collateralMint, vault.Custodian)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrVaultIsDry
	}
	if err := a.ledger.Transfer(ctx, collateralMint, vault.Custodian, recipient, amount); err != nil {
		return err
	}
	a.logger.Info("stable collateral withdrawn",
		slog.String("collateral_mint", collateralMint.Hex()),
		slog.String("recipient", recipient.Hex()),
		slog.Uint64("amount", amount),
	)
	return nil
}

// CreateBenefactor registers an integrator record. It starts disabled and
// must be activated explicitly.
func (a *Admin) CreateBenefactor(actor, authority Address) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if _, err := a.requireRole(actor, RoleBenefactorManager); err != nil {
		return err
	}
	if authority.IsZero() {
		return ErrBadInput
	}
	_, exists, err := a.state.Benefactor(authority)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("stable: benefactor %s already exists", authority.Hex())
	}
	return a.state.PutBenefactor(NewBenefactor(authority))
}

// DeleteBenefactor removes an integrator record.
func (a *Admin) DeleteBenefactor(actor, authority Address) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if _, err := a.requireRole(actor, RoleBenefactorManager); err != nil {
		return err
	}
	_, exists, err := a.state.Benefactor(authority)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("stable: unknown benefactor %s", authority.Hex())
	}
	return a.state.DeleteBenefactor(authority)
}

// BenefactorAction is the sealed command set for integrator records.
type BenefactorAction interface{ benefactorAction() }

// BenefactorSetFeeRates updates mint and redeem fee rates.
type BenefactorSetFeeRates struct{ MintBps, RedeemBps uint16 }

// BenefactorActivate switches the integrator on.
type BenefactorActivate struct{}

// BenefactorDisable switches the integrator off.
type BenefactorDisable struct{}

// BenefactorUpdatePeriodLimit reconfigures one integrator-scope limit.
type BenefactorUpdatePeriodLimit struct {
	Index           int
	DurationSeconds int64
	MaxMintAmount   uint64
	MaxRedeemAmount uint64
}

// BenefactorResetPeriodLimit zeroes one integrator-scope limit.
type BenefactorResetPeriodLimit struct{ Index int }

func (BenefactorSetFeeRates) benefactorAction()       {}
func (BenefactorActivate) benefactorAction()          {}
func (BenefactorDisable) benefactorAction()           {}
func (BenefactorUpdatePeriodLimit) benefactorAction() {}
func (BenefactorResetPeriodLimit) benefactorAction()  {}

// ApplyBenefactorAction dispatches an integrator command under the actor's
// roles.
func (a *Admin) ApplyBenefactorAction(actor, authority Address, action BenefactorAction) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	benefactor, ok, err := a.state.Benefactor(authority)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stable: unknown benefactor %s", authority.Hex())
	}
	switch cmd := action.(type) {
	case BenefactorSetFeeRates:
		if _, err := a.requireRole(actor, RoleBenefactorManager); err != nil {
			return err
		}
		if err := benefactor.SetFeeRates(cmd.MintBps, cmd.RedeemBps); err != nil {
			return err
		}
	case BenefactorActivate:
		if _, err := a.requireRole(actor, RoleBenefactorManager); err != nil {
			return err
		}
		benefactor.Status = BenefactorStatusActive
	case BenefactorDisable:
		if _, err := a.requireRole(actor, RoleBenefactorDisabler); err != nil {
			return err
		}
		benefactor.Status = BenefactorStatusDisabled
	case BenefactorUpdatePeriodLimit:
		if _, err := a.requireRole(actor, RolePeriodManager); err != nil {
			return err
		}
		if cmd.Index < 0 || cmd.Index >= PeriodLimitCount {
			return ErrBadInput
		}
		if err := benefactor.Limits[cmd.Index].Update(cmd.DurationSeconds, cmd.MaxMintAmount, cmd.MaxRedeemAmount, a.clock().UnixTime); err != nil {
			return err
		}
	case BenefactorResetPeriodLimit:
		if _, err := a.requireRole(actor, RolePeriodManager); err != nil {
			return err
		}
		if cmd.Index < 0 || cmd.Index >= PeriodLimitCount {
			return ErrBadInput
		}
		benefactor.Limits[cmd.Index].Reset()
	default:
		return ErrBadInput
	}
	return a.state.PutBenefactor(benefactor)
}

// CreateOperator registers a new capability record, enabled with the
// provided roles.
func (a *Admin) CreateOperator(actor, authority Address, roles Role) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if _, err := a.requireRole(actor, RoleAdmin); err != nil {
		return err
	}
	if authority.IsZero() {
		return ErrBadInput
	}
	_, exists, err := a.state.Operator(authority)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("stable: operator %s already exists", authority.Hex())
	}
	return a.state.PutOperator(&Operator{Authority: authority, Roles: roles, Enabled: true})
}

// DeleteOperator removes a capability record. Operators can never delete
// their own record, whatever roles they hold.
func (a *Admin) DeleteOperator(actor, authority Address) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if actor == authority {
		return ErrOperatorCannotDeleteItself
	}
	if _, err := a.requireRole(actor, RoleAdmin); err != nil {
		return err
	}
	_, exists, err := a.state.Operator(authority)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("stable: unknown operator %s", authority.Hex())
	}
	return a.state.DeleteOperator(authority)
}

// SetOperatorRoles replaces the role mask of an existing operator.
func (a *Admin) SetOperatorRoles(actor, authority Address, roles Role) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if _, err := a.requireRole(actor, RoleAdmin); err != nil {
		return err
	}
	operator, ok, err := a.state.Operator(authority)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stable: unknown operator %s", authority.Hex())
	}
	operator.Roles = roles
	return a.state.PutOperator(operator)
}

// SetOperatorEnabled flips the status of an existing operator.
func (a *Admin) SetOperatorEnabled(actor, authority Address, enabled bool) error {
	if a == nil {
		return fmt.Errorf("stable: admin not initialised")
	}
	if _, err := a.requireRole(actor, RoleAdmin); err != nil {
		return err
	}
	operator, ok, err := a.state.Operator(authority)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("stable: unknown operator %s", authority.Hex())
	}
	operator.Enabled = enabled
	return a.state.PutOperator(operator)
}
