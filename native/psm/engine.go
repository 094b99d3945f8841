package psm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"stablecore/observability"
)

// TokenLedger is the value-transfer collaborator for pool swaps.
type TokenLedger interface {
	Transfer(ctx context.Context, token, from, to Address, amount uint64) error
	BalanceOf(ctx context.Context, token, account Address) (uint64, error)
}

// Engine runs the peg-stability swap pools: fixed-ratio decimal-normalized
// conversion between a settlement asset and a redemption asset through
// admin-supplied liquidity.
type Engine struct {
	state   *Store
	ledger  TokenLedger
	logger  *slog.Logger
	metrics *observability.PSMMetrics
}

// NewEngine constructs an engine over the provided storage and token ledger.
func NewEngine(store Storage, ledger TokenLedger) *Engine {
	return &Engine{
		state:   NewStore(store),
		ledger:  ledger,
		logger:  slog.Default(),
		metrics: observability.PSM(),
	}
}

// SetLogger overrides the structured logger used at commit points.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil || logger == nil {
		return
	}
	e.logger = logger
}

// Store exposes the record accessor backing the engine.
func (e *Engine) Store() *Store {
	if e == nil {
		return nil
	}
	return e.state
}

// Init bootstraps the module with its first admin.
func (e *Engine) Init(initialAdmin Address) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	_, exists, err := e.state.Config()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("psm: module already initialised")
	}
	cfg, err := NewConfig(initialAdmin)
	if err != nil {
		return err
	}
	return e.state.PutConfig(cfg)
}

func (e *Engine) requireAdmin(actor Address) (*Config, error) {
	cfg, ok, err := e.state.Config()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("psm: module not initialised")
	}
	if !cfg.IsAdmin(actor) {
		return nil, ErrNotAuthorized
	}
	return cfg, nil
}

// AddAdmin places a new admin in the fixed array.
func (e *Engine) AddAdmin(actor, admin Address) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	cfg, err := e.requireAdmin(actor)
	if err != nil {
		return err
	}
	if err := cfg.AddAdmin(admin); err != nil {
		return err
	}
	return e.state.PutConfig(cfg)
}

// RemoveAdmin clears an admin slot, always leaving at least one admin.
func (e *Engine) RemoveAdmin(actor, admin Address) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	cfg, err := e.requireAdmin(actor)
	if err != nil {
		return err
	}
	if err := cfg.RemoveAdmin(admin); err != nil {
		return err
	}
	return e.state.PutConfig(cfg)
}

// SetPaused flips the module-wide pause flag.
func (e *Engine) SetPaused(actor Address, paused bool) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	cfg, err := e.requireAdmin(actor)
	if err != nil {
		return err
	}
	cfg.Paused = paused
	return e.state.PutConfig(cfg)
}

// CreatePool registers a new pool. It starts disabled.
func (e *Engine) CreatePool(actor Address, redemptionMint, settlementMint, redemptionCustody, settlementCustody Address, redemptionDecimals, settlementDecimals uint8) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	if _, err := e.requireAdmin(actor); err != nil {
		return err
	}
	_, exists, err := e.state.Pool(redemptionMint)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("psm: pool %s already exists", redemptionMint.Hex())
	}
	pool, err := NewPool(redemptionMint, settlementMint, redemptionCustody, settlementCustody, redemptionDecimals, settlementDecimals)
	if err != nil {
		return err
	}
	return e.state.PutPool(pool)
}

// SetPoolStatus moves a pool between Active, Paused and Disabled.
func (e *Engine) SetPoolStatus(actor, redemptionMint Address, status PoolStatus) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	if _, err := e.requireAdmin(actor); err != nil {
		return err
	}
	switch status {
	case PoolStatusActive, PoolStatusPaused, PoolStatusDisabled:
	default:
		return ErrBadInput
	}
	pool, ok, err := e.state.Pool(redemptionMint)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("psm: unknown pool %s", redemptionMint.Hex())
	}
	pool.Status = status
	return e.state.PutPool(pool)
}

func (e *Engine) loadActivePool(redemptionMint Address) (*Pool, error) {
	cfg, ok, err := e.state.Config()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("psm: module not initialised")
	}
	if cfg.Paused {
		return nil, ErrProtocolPaused
	}
	pool, ok, err := e.state.Pool(redemptionMint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("psm: unknown pool %s", redemptionMint.Hex())
	}
	if pool.Status != PoolStatusActive {
		return nil, ErrPoolNotActive
	}
	return pool.Copy(), nil
}

// Redeem converts amount of the settlement asset into the redemption asset
// at the fixed decimal-rescaled ratio, paid out of pool liquidity.
func (e *Engine) Redeem(ctx context.Context, user, redemptionMint Address, amount uint64) (uint64, error) {
	if e == nil {
		return 0, fmt.Errorf("psm: engine not initialised")
	}
	payout, err := e.redeem(ctx, user, redemptionMint, amount)
	e.metrics.ObserveRedeem(redemptionMint.Hex(), err == nil)
	return payout, err
}

func (e *Engine) redeem(ctx context.Context, user, redemptionMint Address, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	pool, err := e.loadActivePool(redemptionMint)
	if err != nil {
		return 0, err
	}
	payout, err := pool.NormalizeRedemption(amount)
	if err != nil {
		return 0, err
	}
	if payout == 0 {
		return 0, ErrZeroAmount
	}
	available, err := e.ledger.BalanceOf(ctx, pool.RedemptionMint, pool.RedemptionCustody)
	if err != nil {
		return 0, err
	}
	if available < payout {
		return 0, ErrInsufficientPoolBalance
	}

	settledBefore, err := e.ledger.BalanceOf(ctx, pool.SettlementMint, pool.SettlementCustody)
	if err != nil {
		return 0, err
	}
	if err := e.ledger.Transfer(ctx, pool.SettlementMint, user, pool.SettlementCustody, amount); err != nil {
		return 0, err
	}
	settledAfter, err := e.ledger.BalanceOf(ctx, pool.SettlementMint, pool.SettlementCustody)
	if err != nil {
		return 0, err
	}
	if settledAfter != settledBefore+amount {
		return 0, ErrInsufficientAmount
	}
	if err := e.ledger.Transfer(ctx, pool.RedemptionMint, pool.RedemptionCustody, user, payout); err != nil {
		return 0, err
	}

	addTotal(&pool.TotalRedeemed, payout)
	if err := e.state.PutPool(pool); err != nil {
		return 0, err
	}
	e.logger.Info("psm redeem committed",
		slog.String("user", user.Hex()),
		slog.String("pool", redemptionMint.Hex()),
		slog.Uint64("amount_in", amount),
		slog.Uint64("amount_out", payout),
	)
	return payout, nil
}

// Supply moves redemption-asset liquidity from an admin into the pool.
func (e *Engine) Supply(ctx context.Context, actor, redemptionMint Address, amount uint64) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	if _, err := e.requireAdmin(actor); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	pool, err := e.loadActivePool(redemptionMint)
	if err != nil {
		return err
	}
	if err := e.ledger.Transfer(ctx, pool.RedemptionMint, actor, pool.RedemptionCustody, amount); err != nil {
		return err
	}
	addTotal(&pool.TotalSupplied, amount)
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.metrics.ObserveLiquidity(redemptionMint.Hex(), "supply")
	return nil
}

// Withdraw moves redemption-asset liquidity from the pool back to an admin.
func (e *Engine) Withdraw(ctx context.Context, actor, redemptionMint Address, amount uint64) error {
	if e == nil {
		return fmt.Errorf("psm: engine not initialised")
	}
	if _, err := e.requireAdmin(actor); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	pool, err := e.loadActivePool(redemptionMint)
	if err != nil {
		return err
	}
	available, err := e.ledger.BalanceOf(ctx, pool.RedemptionMint, pool.RedemptionCustody)
	if err != nil {
		return err
	}
	if available < amount {
		return ErrInsufficientPoolBalance
	}
	if err := e.ledger.Transfer(ctx, pool.RedemptionMint, pool.RedemptionCustody, actor, amount); err != nil {
		return err
	}
	addTotal(&pool.TotalWithdrawn, amount)
	if err := e.state.PutPool(pool); err != nil {
		return err
	}
	e.metrics.ObserveLiquidity(redemptionMint.Hex(), "withdraw")
	return nil
}

func addTotal(total **big.Int, amount uint64) {
	if *total == nil {
		*total = big.NewInt(0)
	}
	(*total).Add(*total, new(big.Int).SetUint64(amount))
}
