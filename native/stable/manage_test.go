package stable

import (
	"context"
	"errors"
	"testing"
)

func newAdminHarness(t *testing.T) (*Admin, *MemoryLedger) {
	t.Helper()
	ledger := NewMemoryLedger()
	admin := NewAdmin(newMemoryStore(), ledger)
	admin.SetClock(func() Clock { return testClock() })
	if err := admin.Init(testAuthority, testLPMint, 6); err != nil {
		t.Fatalf("init: %v", err)
	}
	return admin, ledger
}

func createOperator(t *testing.T, admin *Admin, authority Address, roles Role) {
	t.Helper()
	if err := admin.CreateOperator(testAuthority, authority, roles); err != nil {
		t.Fatalf("create operator: %v", err)
	}
}

func TestAdminInitBootstraps(t *testing.T) {
	admin, _ := newAdminHarness(t)
	cfg, ok, err := admin.Store().Config()
	if err != nil || !ok {
		t.Fatalf("load config: ok=%v err=%v", ok, err)
	}
	if cfg.PegPriceUSD != DefaultPegPriceUSD || cfg.Paused {
		t.Fatalf("unexpected bootstrap config: %+v", cfg)
	}
	operator, ok, err := admin.Store().Operator(testAuthority)
	if err != nil || !ok {
		t.Fatalf("load operator: ok=%v err=%v", ok, err)
	}
	if operator.Roles != AllRoles || !operator.Enabled {
		t.Fatalf("unexpected bootstrap operator: %+v", operator)
	}
	if err := admin.Init(testAuthority, testLPMint, 6); err == nil {
		t.Fatalf("expected double init to fail")
	}
}

func TestAdminPauseRoleGates(t *testing.T) {
	admin, _ := newAdminHarness(t)
	disabler := testAddress(0x10)
	createOperator(t, admin, disabler, RoleGlobalDisabler)

	if err := admin.ApplyConfigAction(disabler, ConfigPause{}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	cfg, _, err := admin.Store().Config()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Paused {
		t.Fatalf("expected paused flag set")
	}
	// The disabler cannot clear the flag; only Admin can.
	if err := admin.ApplyConfigAction(disabler, ConfigSetPauseFlag{Paused: false}); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected invalid authority, got %v", err)
	}
	if err := admin.ApplyConfigAction(testAuthority, ConfigSetPauseFlag{Paused: false}); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	cfg, _, err = admin.Store().Config()
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if cfg.Paused {
		t.Fatalf("expected paused flag cleared")
	}
}

func TestAdminUnknownActorRejected(t *testing.T) {
	admin, _ := newAdminHarness(t)
	if err := admin.ApplyConfigAction(testAddress(0x7f), ConfigPause{}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
}

func TestAdminDisabledOperatorRejected(t *testing.T) {
	admin, _ := newAdminHarness(t)
	manager := testAddress(0x11)
	createOperator(t, admin, manager, RolePegManager)
	if err := admin.SetOperatorEnabled(testAuthority, manager, false); err != nil {
		t.Fatalf("disable operator: %v", err)
	}
	if err := admin.ApplyConfigAction(manager, ConfigSetPegPrice{PegPriceUSD: 9_900}); !errors.Is(err, ErrOperatorDisabled) {
		t.Fatalf("expected operator disabled, got %v", err)
	}
}

func TestAdminPegPriceBounds(t *testing.T) {
	admin, _ := newAdminHarness(t)
	if err := admin.ApplyConfigAction(testAuthority, ConfigSetPegPrice{PegPriceUSD: 0}); !errors.Is(err, ErrInvalidPegPrice) {
		t.Fatalf("expected invalid peg for zero, got %v", err)
	}
	if err := admin.ApplyConfigAction(testAuthority, ConfigSetPegPrice{PegPriceUSD: MaxPegPriceUSD}); !errors.Is(err, ErrInvalidPegPrice) {
		t.Fatalf("expected invalid peg at upper bound, got %v", err)
	}
	if err := admin.ApplyConfigAction(testAuthority, ConfigSetPegPrice{PegPriceUSD: MaxPegPriceUSD - 1}); err != nil {
		t.Fatalf("set peg: %v", err)
	}
}

func TestAdminPeriodLimitIndexBounds(t *testing.T) {
	admin, _ := newAdminHarness(t)
	err := admin.ApplyConfigAction(testAuthority, ConfigUpdatePeriodLimit{
		Index:           PeriodLimitCount,
		DurationSeconds: 3_600,
		MaxMintAmount:   1,
		MaxRedeemAmount: 1,
	})
	if !errors.Is(err, ErrBadInput) {
		t.Fatalf("expected bad input for out-of-range index, got %v", err)
	}
	err = admin.ApplyConfigAction(testAuthority, ConfigUpdatePeriodLimit{
		Index:           0,
		DurationSeconds: 1,
		MaxMintAmount:   1,
		MaxRedeemAmount: 1,
	})
	if !errors.Is(err, ErrInvalidPeriodLimit) {
		t.Fatalf("expected invalid period limit, got %v", err)
	}
}

func TestAdminCreateVaultRejectsLPMint(t *testing.T) {
	admin, _ := newAdminHarness(t)
	if err := admin.CreateVault(testAuthority, testLPMint, 6); !errors.Is(err, ErrBadInput) {
		t.Fatalf("expected bad input for lp mint collateral, got %v", err)
	}
	if err := admin.CreateVault(testAuthority, testCollateral, 6); err != nil {
		t.Fatalf("create vault: %v", err)
	}
	if err := admin.CreateVault(testAuthority, testCollateral, 6); err == nil {
		t.Fatalf("expected duplicate vault to fail")
	}
}

func TestAdminVaultDisablerCannotEnable(t *testing.T) {
	admin, _ := newAdminHarness(t)
	if err := admin.CreateVault(testAuthority, testCollateral, 6); err != nil {
		t.Fatalf("create vault: %v", err)
	}
	if err := admin.ApplyVaultAction(testAuthority, testCollateral, VaultSetCustodian{Custodian: testCustodian}); err != nil {
		t.Fatalf("set custodian: %v", err)
	}
	if err := admin.ApplyVaultAction(testAuthority, testCollateral, VaultUpdateOracle{Index: 0, Slot: dovesSlot(0x06)}); err != nil {
		t.Fatalf("set oracle: %v", err)
	}

	disabler := testAddress(0x12)
	createOperator(t, admin, disabler, RoleVaultDisabler)
	if err := admin.ApplyVaultAction(disabler, testCollateral, VaultEnable{}); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected disabler to be denied enable, got %v", err)
	}
	if err := admin.ApplyVaultAction(testAuthority, testCollateral, VaultEnable{}); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := admin.ApplyVaultAction(disabler, testCollateral, VaultDisable{}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	vault, _, err := admin.Store().Vault(testCollateral)
	if err != nil {
		t.Fatalf("load vault: %v", err)
	}
	if vault.Status != VaultStatusDisabled {
		t.Fatalf("expected vault disabled, got %v", vault.Status)
	}
}

func TestAdminWithdrawCollateral(t *testing.T) {
	admin, ledger := newAdminHarness(t)
	if err := admin.CreateVault(testAuthority, testCollateral, 6); err != nil {
		t.Fatalf("create vault: %v", err)
	}
	if err := admin.ApplyVaultAction(testAuthority, testCollateral, VaultSetCustodian{Custodian: testCustodian}); err != nil {
		t.Fatalf("set custodian: %v", err)
	}
	ledger.Fund(testCollateral, testCustodian, 1_000)

	recipient := testAddress(0x13)
	if err := admin.WithdrawCollateral(context.Background(), testAuthority, testCollateral, recipient, 2_000); !errors.Is(err, ErrVaultIsDry) {
		t.Fatalf("expected vault is dry, got %v", err)
	}
	if err := admin.WithdrawCollateral(context.Background(), testAuthority, testCollateral, recipient, 600); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	balance, err := ledger.BalanceOf(context.Background(), testCollateral, recipient)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 600 {
		t.Fatalf("unexpected recipient balance: %d", balance)
	}

	stranger := testAddress(0x14)
	createOperator(t, admin, stranger, RoleVaultManager)
	if err := admin.WithdrawCollateral(context.Background(), stranger, testCollateral, recipient, 100); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected invalid authority, got %v", err)
	}
}

func TestAdminBenefactorLifecycle(t *testing.T) {
	admin, _ := newAdminHarness(t)
	if err := admin.CreateBenefactor(testAuthority, testBenefactor); err != nil {
		t.Fatalf("create benefactor: %v", err)
	}
	benefactor, _, err := admin.Store().Benefactor(testBenefactor)
	if err != nil {
		t.Fatalf("load benefactor: %v", err)
	}
	if benefactor.Status != BenefactorStatusDisabled {
		t.Fatalf("expected created benefactor disabled")
	}
	if err := admin.ApplyBenefactorAction(testAuthority, testBenefactor, BenefactorActivate{}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	disabler := testAddress(0x15)
	createOperator(t, admin, disabler, RoleBenefactorDisabler)
	if err := admin.ApplyBenefactorAction(disabler, testBenefactor, BenefactorActivate{}); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected disabler denied activation, got %v", err)
	}
	if err := admin.ApplyBenefactorAction(disabler, testBenefactor, BenefactorDisable{}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := admin.DeleteBenefactor(testAuthority, testBenefactor); err != nil {
		t.Fatalf("delete benefactor: %v", err)
	}
	_, ok, err := admin.Store().Benefactor(testBenefactor)
	if err != nil {
		t.Fatalf("reload benefactor: %v", err)
	}
	if ok {
		t.Fatalf("expected benefactor removed")
	}
}

func TestAdminOperatorSelfDeletionRejected(t *testing.T) {
	admin, _ := newAdminHarness(t)
	if err := admin.DeleteOperator(testAuthority, testAuthority); !errors.Is(err, ErrOperatorCannotDeleteItself) {
		t.Fatalf("expected self-deletion rejection, got %v", err)
	}
	// The rejection precedes the role check: even a role-less record cannot
	// remove itself.
	bystander := testAddress(0x16)
	createOperator(t, admin, bystander, 0)
	if err := admin.DeleteOperator(bystander, bystander); !errors.Is(err, ErrOperatorCannotDeleteItself) {
		t.Fatalf("expected self-deletion rejection for role-less operator, got %v", err)
	}
}

func TestAdminOperatorManagement(t *testing.T) {
	admin, _ := newAdminHarness(t)
	second := testAddress(0x17)
	createOperator(t, admin, second, RolePegManager)
	if err := admin.CreateOperator(testAuthority, second, RolePegManager); err == nil {
		t.Fatalf("expected duplicate operator to fail")
	}
	if err := admin.CreateOperator(second, testAddress(0x18), RolePegManager); !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected non-admin creation rejected, got %v", err)
	}
	if err := admin.SetOperatorRoles(testAuthority, second, RolePegManager|RolePeriodManager); err != nil {
		t.Fatalf("set roles: %v", err)
	}
	operator, _, err := admin.Store().Operator(second)
	if err != nil {
		t.Fatalf("load operator: %v", err)
	}
	if operator.Roles != RolePegManager|RolePeriodManager {
		t.Fatalf("unexpected roles: %v", operator.Roles)
	}
	if err := admin.DeleteOperator(testAuthority, second); err != nil {
		t.Fatalf("delete operator: %v", err)
	}
	if err := admin.DeleteOperator(testAuthority, second); err == nil {
		t.Fatalf("expected deleting unknown operator to fail")
	}
}
