package stable

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"
)

// receiptPriceDecimals is the fixed-point scale used when flattening the
// aggregated oracle price into audit receipts.
const receiptPriceDecimals = 6

// MintReceipt records the full derivation of a mint for audit.
type MintReceipt struct {
	User           Address
	Benefactor     Address
	CollateralMint Address

	Amount         uint64
	FeeAmount      uint64
	NetAmount      uint64
	OraclePriceUSD uint64
	OneToOneAmount uint64
	OracleAmount   uint64
	MintAmount     uint64

	Timestamp int64
}

// RedeemReceipt records the full derivation of a redemption for audit.
type RedeemReceipt struct {
	User           Address
	Benefactor     Address
	CollateralMint Address

	Amount         uint64
	FeeAmount      uint64
	NetAmount      uint64
	OraclePriceUSD uint64
	OneToOneAmount uint64
	OracleAmount   uint64
	RedeemAmount   uint64

	Timestamp int64
}

// Engine orchestrates mint and redeem state transitions: oracle aggregation,
// dual-formula amount computation, the three rate-limit scopes and the
// external value transfer, committed all-or-nothing per request.
type Engine struct {
	state  *Store
	ledger TokenLedger
	clock  func() Clock
	logger *slog.Logger
}

// NewEngine constructs an engine over the provided storage and token ledger.
func NewEngine(store Storage, ledger TokenLedger) *Engine {
	return &Engine{
		state:  NewStore(store),
		ledger: ledger,
		clock: func() Clock {
			return Clock{UnixTime: time.Now().Unix()}
		},
		logger: slog.Default(),
	}
}

// Store exposes the record accessor backing the engine.
func (e *Engine) Store() *Store {
	if e == nil {
		return nil
	}
	return e.state
}

// SetClock overrides the time source, enabling deterministic unit tests.
func (e *Engine) SetClock(clock func() Clock) {
	if e == nil || clock == nil {
		return
	}
	e.clock = clock
}

// SetLogger overrides the structured logger used at commit points.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil || logger == nil {
		return
	}
	e.logger = logger
}

// Mint deposits amount collateral units and issues the conservative LP-token
// amount. minAmountOut is the caller's slippage floor in LP-token units;
// oracles carries the external payloads for the vault's configured slots.
func (e *Engine) Mint(ctx context.Context, user, benefactorAuth, collateralMint Address, amount, minAmountOut uint64, oracles []OracleAccount) (*MintReceipt, error) {
	if e == nil {
		return nil, fmt.Errorf("stable: engine not initialised")
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	cfg, vault, benefactor, err := e.loadParticipants(benefactorAuth, collateralMint)
	if err != nil {
		return nil, err
	}
	clock := e.clock()

	price, err := ParseOracles(vault.Oracles, oracles, clock, vault.StalenessThresholdSeconds)
	if err != nil {
		return nil, err
	}
	if err := vault.ValidateOraclePrice(price.Price, true); err != nil {
		return nil, err
	}

	fee, err := benefactor.MintFee(amount)
	if err != nil {
		return nil, err
	}
	netAmount := amount - fee

	peg := cfg.PegPrice()
	collateralScale := decimalScale(vault.CollateralDecimals)
	lpScale := decimalScale(cfg.LPDecimals)

	// Peg-side candidate works from the fee-reduced deposit; the oracle-side
	// candidate converts the gross deposit through the live price. Taking the
	// minimum keeps issuance conservative for any oracle position relative to
	// the peg.
	oneToOne := new(big.Rat).SetUint64(netAmount)
	oneToOne.Quo(oneToOne, collateralScale)
	oneToOne.Quo(oneToOne, peg)
	oneToOne.Mul(oneToOne, lpScale)

	oracleSide := new(big.Rat).SetUint64(amount)
	oracleSide.Quo(oracleSide, collateralScale)
	oracleSide.Mul(oracleSide, price.Price)
	oracleSide.Quo(oracleSide, peg)
	oracleSide.Mul(oracleSide, lpScale)

	oneToOneAmount, err := ratToUint64Floor(oneToOne)
	if err != nil {
		return nil, err
	}
	oracleAmount, err := ratToUint64Floor(oracleSide)
	if err != nil {
		return nil, err
	}
	mintAmount := oneToOneAmount
	if oracleAmount < mintAmount {
		mintAmount = oracleAmount
	}
	if mintAmount == 0 {
		return nil, ErrZeroAmount
	}
	if mintAmount < minAmountOut {
		return nil, ErrSlippageToleranceExceeded
	}

	cfg.Limits.RollWindows(clock.UnixTime)
	benefactor.Limits.RollWindows(clock.UnixTime)
	vault.Limits.RollWindows(clock.UnixTime)
	if err := cfg.Limits.CheckMint(mintAmount); err != nil {
		return nil, err
	}
	if err := benefactor.Limits.CheckMint(mintAmount); err != nil {
		return nil, err
	}
	if err := vault.Limits.CheckMint(mintAmount); err != nil {
		return nil, err
	}

	cfg.Limits.RecordMint(mintAmount)
	benefactor.Limits.RecordMint(mintAmount)
	vault.Limits.RecordMint(mintAmount)
	addTotal(&cfg.TotalMinted, mintAmount)
	addTotal(&benefactor.TotalMinted, mintAmount)
	addTotal(&vault.TotalMinted, mintAmount)

	commit, err := e.persistParticipants(benefactorAuth, collateralMint, cfg, vault, benefactor)
	if err != nil {
		return nil, err
	}

	custodianBefore, err := e.ledger.BalanceOf(ctx, collateralMint, vault.Custodian)
	if err != nil {
		return nil, commit.revert(err)
	}
	if err := e.ledger.Transfer(ctx, collateralMint, user, vault.Custodian, amount); err != nil {
		return nil, commit.revert(err)
	}
	custodianAfter, err := e.ledger.BalanceOf(ctx, collateralMint, vault.Custodian)
	if err != nil {
		return nil, commit.revert(err)
	}
	if custodianAfter != custodianBefore+amount {
		return nil, commit.revert(ErrInsufficientAmount)
	}
	if err := e.ledger.Mint(ctx, cfg.LPMint, user, mintAmount); err != nil {
		return nil, commit.revert(err)
	}

	priceUSD, err := receiptPrice(price.Price)
	if err != nil {
		return nil, err
	}
	receipt := &MintReceipt{
		User:           user,
		Benefactor:     benefactorAuth,
		CollateralMint: collateralMint,
		Amount:         amount,
		FeeAmount:      fee,
		NetAmount:      netAmount,
		OraclePriceUSD: priceUSD,
		OneToOneAmount: oneToOneAmount,
		OracleAmount:   oracleAmount,
		MintAmount:     mintAmount,
		Timestamp:      clock.UnixTime,
	}
	e.logger.Info("stable mint committed",
		slog.String("user", user.Hex()),
		slog.String("benefactor", benefactorAuth.Hex()),
		slog.String("collateral_mint", collateralMint.Hex()),
		slog.Uint64("amount", amount),
		slog.Uint64("mint_amount", mintAmount),
		slog.Uint64("oracle_price_usd", priceUSD),
	)
	return receipt, nil
}

// Redeem burns amount LP tokens and releases the conservative collateral
// amount from vault custody. minAmountOut is the caller's slippage floor in
// collateral units.
func (e *Engine) Redeem(ctx context.Context, user, benefactorAuth, collateralMint Address, amount, minAmountOut uint64, oracles []OracleAccount) (*RedeemReceipt, error) {
	if e == nil {
		return nil, fmt.Errorf("stable: engine not initialised")
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	cfg, vault, benefactor, err := e.loadParticipants(benefactorAuth, collateralMint)
	if err != nil {
		return nil, err
	}
	clock := e.clock()

	price, err := ParseOracles(vault.Oracles, oracles, clock, vault.StalenessThresholdSeconds)
	if err != nil {
		return nil, err
	}
	if err := vault.ValidateOraclePrice(price.Price, false); err != nil {
		return nil, err
	}

	fee, err := benefactor.RedeemFee(amount)
	if err != nil {
		return nil, err
	}
	netAmount := amount - fee

	peg := cfg.PegPrice()
	collateralScale := decimalScale(vault.CollateralDecimals)
	lpScale := decimalScale(cfg.LPDecimals)

	oneToOne := new(big.Rat).SetUint64(netAmount)
	oneToOne.Quo(oneToOne, lpScale)
	oneToOne.Mul(oneToOne, peg)
	oneToOne.Mul(oneToOne, collateralScale)

	oracleSide := new(big.Rat).SetUint64(amount)
	oracleSide.Quo(oracleSide, lpScale)
	oracleSide.Mul(oracleSide, peg)
	oracleSide.Quo(oracleSide, price.Price)
	oracleSide.Mul(oracleSide, collateralScale)

	oneToOneAmount, err := ratToUint64Floor(oneToOne)
	if err != nil {
		return nil, err
	}
	oracleAmount, err := ratToUint64Floor(oracleSide)
	if err != nil {
		return nil, err
	}
	redeemAmount := oneToOneAmount
	if oracleAmount < redeemAmount {
		redeemAmount = oracleAmount
	}
	if redeemAmount == 0 {
		return nil, ErrZeroAmount
	}
	if redeemAmount < minAmountOut {
		return nil, ErrSlippageToleranceExceeded
	}

	custodianBefore, err := e.ledger.BalanceOf(ctx, collateralMint, vault.Custodian)
	if err != nil {
		return nil, err
	}
	if custodianBefore < redeemAmount {
		return nil, ErrVaultIsDry
	}

	// Redeem gates capacity on the fee-reduced figure, not the final payout:
	// the limit bounds claim pressure against custody rather than LP burn.
	cfg.Limits.RollWindows(clock.UnixTime)
	benefactor.Limits.RollWindows(clock.UnixTime)
	vault.Limits.RollWindows(clock.UnixTime)
	if err := cfg.Limits.CheckRedeem(netAmount); err != nil {
		return nil, err
	}
	if err := benefactor.Limits.CheckRedeem(netAmount); err != nil {
		return nil, err
	}
	if err := vault.Limits.CheckRedeem(netAmount); err != nil {
		return nil, err
	}

	cfg.Limits.RecordRedeem(netAmount)
	benefactor.Limits.RecordRedeem(netAmount)
	vault.Limits.RecordRedeem(netAmount)
	addTotal(&cfg.TotalRedeemed, netAmount)
	addTotal(&benefactor.TotalRedeemed, netAmount)
	addTotal(&vault.TotalRedeemed, netAmount)

	commit, err := e.persistParticipants(benefactorAuth, collateralMint, cfg, vault, benefactor)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.Burn(ctx, cfg.LPMint, user, amount); err != nil {
		return nil, commit.revert(err)
	}
	if err := e.ledger.Transfer(ctx, collateralMint, vault.Custodian, user, redeemAmount); err != nil {
		return nil, commit.revert(err)
	}
	custodianAfter, err := e.ledger.BalanceOf(ctx, collateralMint, vault.Custodian)
	if err != nil {
		return nil, commit.revert(err)
	}
	if custodianAfter != custodianBefore-redeemAmount {
		return nil, commit.revert(ErrInsufficientAmount)
	}

	priceUSD, err := receiptPrice(price.Price)
	if err != nil {
		return nil, err
	}
	receipt := &RedeemReceipt{
		User:           user,
		Benefactor:     benefactorAuth,
		CollateralMint: collateralMint,
		Amount:         amount,
		FeeAmount:      fee,
		NetAmount:      netAmount,
		OraclePriceUSD: priceUSD,
		OneToOneAmount: oneToOneAmount,
		OracleAmount:   oracleAmount,
		RedeemAmount:   redeemAmount,
		Timestamp:      clock.UnixTime,
	}
	e.logger.Info("stable redeem committed",
		slog.String("user", user.Hex()),
		slog.String("benefactor", benefactorAuth.Hex()),
		slog.String("collateral_mint", collateralMint.Hex()),
		slog.Uint64("amount", amount),
		slog.Uint64("redeem_amount", redeemAmount),
		slog.Uint64("oracle_price_usd", priceUSD),
	)
	return receipt, nil
}

func (e *Engine) loadParticipants(benefactorAuth, collateralMint Address) (*Config, *Vault, *Benefactor, error) {
	cfg, ok, err := e.state.Config()
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, fmt.Errorf("stable: protocol not initialised")
	}
	if cfg.Paused {
		return nil, nil, nil, ErrProtocolPaused
	}
	vault, ok, err := e.state.Vault(collateralMint)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, fmt.Errorf("stable: unknown vault %s", collateralMint.Hex())
	}
	if vault.Status != VaultStatusEnabled {
		return nil, nil, nil, ErrVaultDisabled
	}
	benefactor, ok, err := e.state.Benefactor(benefactorAuth)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, fmt.Errorf("stable: unknown benefactor %s", benefactorAuth.Hex())
	}
	if benefactor.Status != BenefactorStatusActive {
		return nil, nil, nil, ErrBenefactorDisabled
	}
	return cfg.Copy(), vault.Copy(), benefactor.Copy(), nil
}

// participantCommit remembers the pre-transition records so a failed ledger
// leg can restore them, keeping the whole request all-or-nothing.
type participantCommit struct {
	state      *Store
	config     *Config
	vault      *Vault
	benefactor *Benefactor
}

func (e *Engine) persistParticipants(benefactorAuth, collateralMint Address, cfg *Config, vault *Vault, benefactor *Benefactor) (*participantCommit, error) {
	prevConfig, _, err := e.state.Config()
	if err != nil {
		return nil, err
	}
	prevVault, _, err := e.state.Vault(collateralMint)
	if err != nil {
		return nil, err
	}
	prevBenefactor, _, err := e.state.Benefactor(benefactorAuth)
	if err != nil {
		return nil, err
	}
	if err := e.state.PutConfig(cfg); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(vault); err != nil {
		return nil, err
	}
	if err := e.state.PutBenefactor(benefactor); err != nil {
		return nil, err
	}
	return &participantCommit{state: e.state, config: prevConfig, vault: prevVault, benefactor: prevBenefactor}, nil
}

func (c *participantCommit) revert(cause error) error {
	if c == nil {
		return cause
	}
	if err := c.state.PutConfig(c.config); err != nil {
		return fmt.Errorf("stable: revert config after %w: %v", cause, err)
	}
	if err := c.state.PutVault(c.vault); err != nil {
		return fmt.Errorf("stable: revert vault after %w: %v", cause, err)
	}
	if err := c.state.PutBenefactor(c.benefactor); err != nil {
		return fmt.Errorf("stable: revert benefactor after %w: %v", cause, err)
	}
	return cause
}

func decimalScale(decimals uint8) *big.Rat {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetInt(scale)
}

func receiptPrice(price *big.Rat) (uint64, error) {
	scaled := new(big.Rat).Mul(price, new(big.Rat).SetUint64(pow10(receiptPriceDecimals)))
	return ratToUint64Floor(scaled)
}

func addTotal(total **big.Int, amount uint64) {
	if *total == nil {
		*total = big.NewInt(0)
	}
	(*total).Add(*total, new(big.Int).SetUint64(amount))
}
