package stable

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// OracleKind tags an oracle slot variant. Empty is a first-class variant: a
// slot holding it is always valid and simply excluded from aggregation.
type OracleKind uint8

const (
	OracleKindEmpty OracleKind = iota
	OracleKindPyth
	OracleKindSwitchboard
	OracleKindDoves
)

func (k OracleKind) String() string {
	switch k {
	case OracleKindEmpty:
		return "empty"
	case OracleKindPyth:
		return "pyth"
	case OracleKindSwitchboard:
		return "switchboard"
	case OracleKindDoves:
		return "doves"
	default:
		return "unknown"
	}
}

// Program identities the aggregator expects each payload kind to be owned by.
var (
	PythReceiverProgram = programAddress("pyth-receiver")
	SwitchboardProgram  = programAddress("switchboard-on-demand")
	DovesProgram        = programAddress("doves-aggregator")
)

func programAddress(label string) Address {
	var addr Address
	digest := ethcrypto.Keccak256([]byte("stable/program/" + label))
	copy(addr[:], digest[12:])
	return addr
}

const (
	// MaxConfidenceBps is the ceiling for per-source confidence and for the
	// cross-source spread.
	MaxConfidenceBps int64 = 200
	// bpsScale converts ratios to basis points.
	bpsScale int64 = 10_000
	// millisPerSlot scales the staleness threshold into slots for
	// slot-indexed feeds.
	millisPerSlot int64 = 400
)

// OracleSlot is one entry of a vault's fixed oracle array.
type OracleSlot struct {
	Kind    OracleKind
	Address Address
	FeedID  [32]byte
}

func (s OracleSlot) validate() error {
	switch s.Kind {
	case OracleKindEmpty:
		return nil
	case OracleKindPyth:
		if s.Address.IsZero() || s.FeedID == [32]byte{} {
			return ErrBadInput
		}
		return nil
	case OracleKindSwitchboard, OracleKindDoves:
		if s.Address.IsZero() {
			return ErrBadInput
		}
		return nil
	default:
		return ErrBadInput
	}
}

// PythPriceUpdate is a decoded Pyth-style price update payload.
type PythPriceUpdate struct {
	FeedID      [32]byte
	Price       int64
	Conf        uint64
	Exponent    int32
	PublishTime int64
}

// SwitchboardFeed is a decoded Switchboard-style pull feed payload.
type SwitchboardFeed struct {
	Value               *big.Rat
	StdDev              *big.Rat
	LastUpdateSlot      uint64
	LastUpdateTimestamp int64
}

// DovesFeed is a decoded Doves-style aggregator payload.
type DovesFeed struct {
	Price     int64
	Exponent  int32
	Timestamp int64
}

// OracleAccount is a caller-supplied external payload, order-correlated to
// the vault's non-empty slots. Exactly one decoded body matching the slot
// kind must be present.
type OracleAccount struct {
	Address Address
	Owner   Address

	Pyth        *PythPriceUpdate
	Switchboard *SwitchboardFeed
	Doves       *DovesFeed
}

// OracleSample records one source's contribution to an aggregated price.
type OracleSample struct {
	Kind    OracleKind
	Address Address
	Price   *big.Rat
}

// OraclePrice is the ephemeral aggregation result: the single most
// conservative price plus its derivation trail. Never persisted.
type OraclePrice struct {
	Price   *big.Rat
	Sources []OracleSample
}

// FixedUSD renders the price at the 4-decimal record scale, truncating.
func (p OraclePrice) FixedUSD() (uint64, error) {
	return ratToUint64Floor(new(big.Rat).Mul(p.Price, new(big.Rat).SetUint64(pow10(pegDecimals))))
}

// ParseOracles aggregates the vault's configured sources into a single price.
// Every source must individually pass identity, staleness and confidence
// checks, the set must agree within the spread ceiling, and the minimum of
// all valid prices is returned so collateral is never valued optimistically.
func ParseOracles(slots [OracleSlotCount]OracleSlot, accounts []OracleAccount, clock Clock, stalenessSeconds int64) (OraclePrice, error) {
	configured := make([]OracleSlot, 0, OracleSlotCount)
	for i := range slots {
		if slots[i].Kind != OracleKindEmpty {
			configured = append(configured, slots[i])
		}
	}
	if len(configured) == 0 {
		return OraclePrice{}, ErrNoOraclesFound
	}
	if len(accounts) < len(configured) {
		return OraclePrice{}, ErrMissingOracleAccounts
	}
	if stalenessSeconds <= 0 {
		stalenessSeconds = DefaultStalenessThresholdSeconds
	}

	samples := make([]OracleSample, 0, len(configured))
	for i, slot := range configured {
		account := accounts[i]
		if account.Address != slot.Address {
			return OraclePrice{}, ErrBadOracle
		}
		price, err := parseOracleAccount(slot, account, clock, stalenessSeconds)
		if err != nil {
			return OraclePrice{}, err
		}
		samples = append(samples, OracleSample{Kind: slot.Kind, Address: slot.Address, Price: price})
	}
	if len(samples) == 0 {
		return OraclePrice{}, ErrNoValidPrice
	}

	minPrice := samples[0].Price
	maxPrice := samples[0].Price
	for _, sample := range samples[1:] {
		if sample.Price.Cmp(minPrice) < 0 {
			minPrice = sample.Price
		}
		if sample.Price.Cmp(maxPrice) > 0 {
			maxPrice = sample.Price
		}
	}
	if len(samples) > 1 {
		spread := new(big.Rat).Sub(maxPrice, minPrice)
		spread.Quo(spread, minPrice)
		spread.Mul(spread, big.NewRat(bpsScale, 1))
		if spread.Cmp(big.NewRat(MaxConfidenceBps, 1)) > 0 {
			return OraclePrice{}, ErrPriceConfidenceTooWide
		}
	}
	return OraclePrice{Price: new(big.Rat).Set(minPrice), Sources: samples}, nil
}

func parseOracleAccount(slot OracleSlot, account OracleAccount, clock Clock, staleness int64) (*big.Rat, error) {
	switch slot.Kind {
	case OracleKindPyth:
		if account.Owner != PythReceiverProgram || account.Pyth == nil {
			return nil, ErrBadOracle
		}
		return parsePythUpdate(slot, account.Pyth, clock, staleness)
	case OracleKindSwitchboard:
		if account.Owner != SwitchboardProgram || account.Switchboard == nil {
			return nil, ErrBadOracle
		}
		return parseSwitchboardFeed(account.Switchboard, clock, staleness)
	case OracleKindDoves:
		if account.Owner != DovesProgram || account.Doves == nil {
			return nil, ErrBadOracle
		}
		return parseDovesFeed(account.Doves, clock, staleness)
	default:
		return nil, ErrBadOracle
	}
}

func parsePythUpdate(slot OracleSlot, update *PythPriceUpdate, clock Clock, staleness int64) (*big.Rat, error) {
	if update.FeedID != slot.FeedID {
		return nil, ErrBadOracle
	}
	if clock.UnixTime-update.PublishTime > staleness {
		return nil, ErrBadOracle
	}
	if update.Price <= 0 {
		return nil, ErrBadOracle
	}
	// Confidence interval relative to the raw price; exponents cancel.
	confBps := new(big.Int).SetUint64(update.Conf)
	confBps.Mul(confBps, big.NewInt(bpsScale))
	confBps.Quo(confBps, big.NewInt(update.Price))
	if confBps.Cmp(big.NewInt(MaxConfidenceBps)) >= 0 {
		return nil, ErrPriceConfidenceTooWide
	}
	return scalePrice(update.Price, update.Exponent), nil
}

func parseSwitchboardFeed(feed *SwitchboardFeed, clock Clock, staleness int64) (*big.Rat, error) {
	if feed.Value == nil || feed.Value.Sign() <= 0 {
		return nil, ErrBadOracle
	}
	if feed.LastUpdateSlot <= clock.LastRestartSlot {
		return nil, ErrBadOracle
	}
	maxSlotAge := uint64(staleness * 1000 / millisPerSlot)
	if clock.Slot > feed.LastUpdateSlot && clock.Slot-feed.LastUpdateSlot > maxSlotAge {
		return nil, ErrBadOracle
	}
	if feed.LastUpdateTimestamp+staleness < clock.UnixTime {
		return nil, ErrBadOracle
	}
	// A pull feed without a deviation measurement is not trustworthy.
	if feed.StdDev == nil || feed.StdDev.Sign() < 0 {
		return nil, ErrBadOracle
	}
	stdevBps := new(big.Rat).Quo(feed.StdDev, feed.Value)
	stdevBps.Mul(stdevBps, big.NewRat(bpsScale, 1))
	if stdevBps.Cmp(big.NewRat(MaxConfidenceBps, 1)) >= 0 {
		return nil, ErrPriceConfidenceTooWide
	}
	return new(big.Rat).Set(feed.Value), nil
}

func parseDovesFeed(feed *DovesFeed, clock Clock, staleness int64) (*big.Rat, error) {
	if feed.Timestamp+staleness <= clock.UnixTime {
		return nil, ErrBadOracle
	}
	if feed.Price <= 0 {
		return nil, ErrBadOracle
	}
	return scalePrice(feed.Price, feed.Exponent), nil
}

func scalePrice(raw int64, exponent int32) *big.Rat {
	price := new(big.Rat).SetInt64(raw)
	if exponent == 0 {
		return price
	}
	magnitude := exponent
	if magnitude < 0 {
		magnitude = -magnitude
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(magnitude)), nil)
	if exponent < 0 {
		return price.Quo(price, new(big.Rat).SetInt(scale))
	}
	return price.Mul(price, new(big.Rat).SetInt(scale))
}

func ratToUint64Floor(value *big.Rat) (uint64, error) {
	if value == nil || value.Sign() < 0 {
		return 0, ErrMathOverflow
	}
	floored := new(big.Int).Quo(value.Num(), value.Denom())
	if !floored.IsUint64() {
		return 0, ErrMathOverflow
	}
	return floored.Uint64(), nil
}
