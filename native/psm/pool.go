package psm

import "math/big"

// maxDecimalDiff bounds the rescale factor so 10^diff stays within uint64.
const maxDecimalDiff = 19

// PoolStatus tracks whether a pool accepts operations.
type PoolStatus uint8

const (
	PoolStatusDisabled PoolStatus = iota
	PoolStatusActive
	PoolStatusPaused
)

func (s PoolStatus) String() string {
	switch s {
	case PoolStatusActive:
		return "active"
	case PoolStatusPaused:
		return "paused"
	case PoolStatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Pool pairs a redemption asset with a settlement asset for fixed-ratio
// swaps. Users deposit the settlement asset and receive the redemption asset
// rescaled across the decimal difference.
type Pool struct {
	RedemptionMint    Address
	SettlementMint    Address
	RedemptionCustody Address
	SettlementCustody Address

	RedemptionDecimals uint8
	SettlementDecimals uint8

	Status PoolStatus

	TotalSupplied  *big.Int
	TotalRedeemed  *big.Int
	TotalWithdrawn *big.Int
}

// NewPool constructs a disabled pool. The decimal difference between the two
// assets must stay within the representable rescale range.
func NewPool(redemptionMint, settlementMint, redemptionCustody, settlementCustody Address, redemptionDecimals, settlementDecimals uint8) (*Pool, error) {
	if redemptionMint.IsZero() || settlementMint.IsZero() || redemptionCustody.IsZero() || settlementCustody.IsZero() {
		return nil, ErrBadInput
	}
	if redemptionMint == settlementMint {
		return nil, ErrBadInput
	}
	diff := int(redemptionDecimals) - int(settlementDecimals)
	if diff < -maxDecimalDiff || diff > maxDecimalDiff {
		return nil, ErrBadInput
	}
	return &Pool{
		RedemptionMint:     redemptionMint,
		SettlementMint:     settlementMint,
		RedemptionCustody:  redemptionCustody,
		SettlementCustody:  settlementCustody,
		RedemptionDecimals: redemptionDecimals,
		SettlementDecimals: settlementDecimals,
		Status:             PoolStatusDisabled,
		TotalSupplied:      big.NewInt(0),
		TotalRedeemed:      big.NewInt(0),
		TotalWithdrawn:     big.NewInt(0),
	}, nil
}

// NormalizeRedemption converts a settlement-asset amount into redemption
// units. Scaling down truncates the remainder; scaling up fails on overflow.
func (p *Pool) NormalizeRedemption(amount uint64) (uint64, error) {
	if p == nil {
		return 0, ErrBadInput
	}
	diff := int(p.RedemptionDecimals) - int(p.SettlementDecimals)
	switch {
	case diff == 0:
		return amount, nil
	case diff > 0:
		factor := pow10(diff)
		scaled := amount * factor
		if amount != 0 && scaled/factor != amount {
			return 0, ErrMathOverflow
		}
		return scaled, nil
	default:
		return amount / pow10(-diff), nil
	}
}

// Copy returns a deep copy for staged mutation.
func (p *Pool) Copy() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TotalSupplied != nil {
		clone.TotalSupplied = new(big.Int).Set(p.TotalSupplied)
	}
	if p.TotalRedeemed != nil {
		clone.TotalRedeemed = new(big.Int).Set(p.TotalRedeemed)
	}
	if p.TotalWithdrawn != nil {
		clone.TotalWithdrawn = new(big.Int).Set(p.TotalWithdrawn)
	}
	return &clone
}

func pow10(exp int) uint64 {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		result *= 10
	}
	return result
}
