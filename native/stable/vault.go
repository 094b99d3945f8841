package stable

import "math/big"

const (
	// OracleSlotCount is the fixed capacity of the per-vault oracle array.
	OracleSlotCount = 5

	// DefaultMinOraclePriceUSD is 0.5000 USD at the record fixed-point scale.
	DefaultMinOraclePriceUSD uint64 = 5_000
	// DefaultMaxOraclePriceUSD is 1.0000 USD at the record fixed-point scale.
	DefaultMaxOraclePriceUSD uint64 = 10_000
	// DefaultStalenessThresholdSeconds bounds the age of oracle observations.
	DefaultStalenessThresholdSeconds int64 = 300
)

// Vault is the per-collateral risk record: custody pointer, oracle slots,
// sane-price bounds and the vault-scope rolling limits.
type Vault struct {
	CollateralMint     Address
	CollateralDecimals uint8
	Custodian          Address

	Oracles [OracleSlotCount]OracleSlot

	MinOraclePriceUSD         uint64
	MaxOraclePriceUSD         uint64
	StalenessThresholdSeconds int64

	Limits PeriodLimits

	Status VaultStatus

	TotalMinted   *big.Int
	TotalRedeemed *big.Int
}

// NewVault constructs a disabled vault with default bounds and no oracles.
func NewVault(collateralMint Address, collateralDecimals uint8) *Vault {
	return &Vault{
		CollateralMint:            collateralMint,
		CollateralDecimals:        collateralDecimals,
		MinOraclePriceUSD:         DefaultMinOraclePriceUSD,
		MaxOraclePriceUSD:         DefaultMaxOraclePriceUSD,
		StalenessThresholdSeconds: DefaultStalenessThresholdSeconds,
		Status:                    VaultStatusDisabled,
		TotalMinted:               big.NewInt(0),
		TotalRedeemed:             big.NewInt(0),
	}
}

// OracleCount reports how many slots are configured.
func (v *Vault) OracleCount() int {
	if v == nil {
		return 0
	}
	count := 0
	for i := range v.Oracles {
		if v.Oracles[i].Kind != OracleKindEmpty {
			count++
		}
	}
	return count
}

// SetOracle configures the slot at index. Clearing the last configured slot
// of an enabled vault disables the vault so it can never gate on nothing.
func (v *Vault) SetOracle(index int, slot OracleSlot) error {
	if v == nil {
		return ErrBadInput
	}
	if index < 0 || index >= OracleSlotCount {
		return ErrBadInput
	}
	if err := slot.validate(); err != nil {
		return err
	}
	v.Oracles[index] = slot
	if v.OracleCount() == 0 {
		v.Status = VaultStatusDisabled
	}
	return nil
}

// SetPriceBounds validates and applies new sane-price bounds. The minimum
// must stay strictly below the maximum.
func (v *Vault) SetPriceBounds(minUSD, maxUSD uint64) error {
	if v == nil {
		return ErrBadInput
	}
	if minUSD == 0 || minUSD >= maxUSD {
		return ErrBadInput
	}
	v.MinOraclePriceUSD = minUSD
	v.MaxOraclePriceUSD = maxUSD
	return nil
}

// Enable switches the vault on. A vault cannot be enabled without a custodian
// and at least one configured oracle slot.
func (v *Vault) Enable() error {
	if v == nil {
		return ErrBadInput
	}
	if v.Custodian.IsZero() {
		return ErrVaultDisabled
	}
	if v.OracleCount() == 0 {
		return ErrNoOraclesFound
	}
	v.Status = VaultStatusEnabled
	return nil
}

// Disable switches the vault off.
func (v *Vault) Disable() {
	if v == nil {
		return
	}
	v.Status = VaultStatusDisabled
}

// ValidateOraclePrice gates the aggregated price against the vault bounds.
// The price is truncated to peg precision before the compare. Minting
// requires the price at or above the minimum so undervalued collateral
// cannot over-mint; redeeming requires it at or below the maximum so
// overvalued collateral cannot be drained.
func (v *Vault) ValidateOraclePrice(price *big.Rat, isMint bool) error {
	if v == nil || price == nil || price.Sign() <= 0 {
		return ErrBadOracle
	}
	fixed := new(big.Int).Mul(price.Num(), new(big.Int).SetUint64(pow10(pegDecimals)))
	fixed.Quo(fixed, price.Denom())
	if isMint {
		if fixed.Cmp(new(big.Int).SetUint64(v.MinOraclePriceUSD)) < 0 {
			return ErrBadOracle
		}
		return nil
	}
	if fixed.Cmp(new(big.Int).SetUint64(v.MaxOraclePriceUSD)) > 0 {
		return ErrBadOracle
	}
	return nil
}

// Copy returns a deep copy so engines can stage mutations before committing.
func (v *Vault) Copy() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	if v.TotalMinted != nil {
		clone.TotalMinted = new(big.Int).Set(v.TotalMinted)
	}
	if v.TotalRedeemed != nil {
		clone.TotalRedeemed = new(big.Int).Set(v.TotalRedeemed)
	}
	return &clone
}
