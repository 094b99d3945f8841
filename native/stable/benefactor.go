package stable

import "math/big"

// MaxFeeRateBps caps fee rates at 100%.
const MaxFeeRateBps uint16 = 10_000

// Benefactor is the per-integrator record: status, fee rates and the
// integrator-scope rolling limits. New benefactors start disabled and must be
// activated explicitly.
type Benefactor struct {
	Authority Address
	Status    BenefactorStatus

	MintFeeRateBps   uint16
	RedeemFeeRateBps uint16

	Limits PeriodLimits

	TotalMinted   *big.Int
	TotalRedeemed *big.Int
}

// NewBenefactor constructs a disabled benefactor with zero fees.
func NewBenefactor(authority Address) *Benefactor {
	return &Benefactor{
		Authority:     authority,
		Status:        BenefactorStatusDisabled,
		TotalMinted:   big.NewInt(0),
		TotalRedeemed: big.NewInt(0),
	}
}

// SetFeeRates validates and applies new mint and redeem fee rates.
func (b *Benefactor) SetFeeRates(mintBps, redeemBps uint16) error {
	if b == nil {
		return ErrBadInput
	}
	if mintBps > MaxFeeRateBps || redeemBps > MaxFeeRateBps {
		return ErrInvalidFeeRate
	}
	b.MintFeeRateBps = mintBps
	b.RedeemFeeRateBps = redeemBps
	return nil
}

// MintFee computes ceil(amount * rate / 10000) for the mint side.
func (b *Benefactor) MintFee(amount uint64) (uint64, error) {
	if b == nil {
		return 0, ErrBadInput
	}
	return feeCeil(amount, b.MintFeeRateBps)
}

// RedeemFee computes ceil(amount * rate / 10000) for the redeem side.
func (b *Benefactor) RedeemFee(amount uint64) (uint64, error) {
	if b == nil {
		return 0, ErrBadInput
	}
	return feeCeil(amount, b.RedeemFeeRateBps)
}

// Copy returns a deep copy so engines can stage mutations before committing.
func (b *Benefactor) Copy() *Benefactor {
	if b == nil {
		return nil
	}
	clone := *b
	if b.TotalMinted != nil {
		clone.TotalMinted = new(big.Int).Set(b.TotalMinted)
	}
	if b.TotalRedeemed != nil {
		clone.TotalRedeemed = new(big.Int).Set(b.TotalRedeemed)
	}
	return &clone
}

func feeCeil(amount uint64, rateBps uint16) (uint64, error) {
	if rateBps == 0 || amount == 0 {
		return 0, nil
	}
	product := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(int64(rateBps)))
	divisor := big.NewInt(int64(MaxFeeRateBps))
	quo, rem := new(big.Int).QuoRem(product, divisor, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if !quo.IsUint64() {
		return 0, ErrMathOverflow
	}
	return quo.Uint64(), nil
}
