package stable

import "math/big"

// Config is the protocol singleton: global pause flag, peg price and the
// protocol-scope rolling limits. One instance exists, created at
// initialization and threaded explicitly through every mint and redeem.
type Config struct {
	LPMint     Address
	LPDecimals uint8
	Authority  Address

	PegPriceUSD uint64
	Paused      bool

	Limits PeriodLimits

	TotalMinted   *big.Int
	TotalRedeemed *big.Int
}

// NewConfig constructs the singleton with the default 1.0000 USD peg and all
// limits disabled.
func NewConfig(lpMint, authority Address, lpDecimals uint8) *Config {
	return &Config{
		LPMint:        lpMint,
		LPDecimals:    lpDecimals,
		Authority:     authority,
		PegPriceUSD:   DefaultPegPriceUSD,
		TotalMinted:   big.NewInt(0),
		TotalRedeemed: big.NewInt(0),
	}
}

// SetPegPrice validates and applies a new peg price. The peg is a 4-decimal
// fixed-point USD value constrained to the open interval (0, 2.0000).
func (c *Config) SetPegPrice(pegPriceUSD uint64) error {
	if c == nil {
		return ErrBadInput
	}
	if pegPriceUSD == 0 || pegPriceUSD >= MaxPegPriceUSD {
		return ErrInvalidPegPrice
	}
	c.PegPriceUSD = pegPriceUSD
	return nil
}

// PegPrice returns the peg as an exact rational USD value.
func (c *Config) PegPrice() *big.Rat {
	if c == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac64(int64(c.PegPriceUSD), int64(pow10(pegDecimals)))
}

// Copy returns a deep copy so engines can stage mutations before committing.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.TotalMinted != nil {
		clone.TotalMinted = new(big.Int).Set(c.TotalMinted)
	}
	if c.TotalRedeemed != nil {
		clone.TotalRedeemed = new(big.Int).Set(c.TotalRedeemed)
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
