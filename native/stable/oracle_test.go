package stable

import (
	"errors"
	"math/big"
	"testing"
)

func testClock() Clock {
	return Clock{UnixTime: 1_000_000, Slot: 10_000, LastRestartSlot: 500}
}

func dovesSlot(seed byte) OracleSlot {
	return OracleSlot{Kind: OracleKindDoves, Address: testAddress(seed)}
}

func dovesAccount(seed byte, price int64, exponent int32, timestamp int64) OracleAccount {
	return OracleAccount{
		Address: testAddress(seed),
		Owner:   DovesProgram,
		Doves:   &DovesFeed{Price: price, Exponent: exponent, Timestamp: timestamp},
	}
}

func pythSlot(seed byte, feed [32]byte) OracleSlot {
	return OracleSlot{Kind: OracleKindPyth, Address: testAddress(seed), FeedID: feed}
}

func singleSlotArray(slot OracleSlot) [OracleSlotCount]OracleSlot {
	var slots [OracleSlotCount]OracleSlot
	slots[0] = slot
	return slots
}

func TestParseOraclesNoSlots(t *testing.T) {
	var slots [OracleSlotCount]OracleSlot
	_, err := ParseOracles(slots, nil, testClock(), 300)
	if !errors.Is(err, ErrNoOraclesFound) {
		t.Fatalf("expected no oracles found, got %v", err)
	}
}

func TestParseOraclesMissingAccounts(t *testing.T) {
	slots := singleSlotArray(dovesSlot(1))
	slots[1] = dovesSlot(2)
	accounts := []OracleAccount{dovesAccount(1, 1_000_000, -6, 1_000_000)}
	_, err := ParseOracles(slots, accounts, testClock(), 300)
	if !errors.Is(err, ErrMissingOracleAccounts) {
		t.Fatalf("expected missing oracle accounts, got %v", err)
	}
}

func TestParseOraclesIdentityMismatch(t *testing.T) {
	slots := singleSlotArray(dovesSlot(1))
	account := dovesAccount(2, 1_000_000, -6, 1_000_000)
	_, err := ParseOracles(slots, []OracleAccount{account}, testClock(), 300)
	if !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for address mismatch, got %v", err)
	}
	account = dovesAccount(1, 1_000_000, -6, 1_000_000)
	account.Owner = PythReceiverProgram
	_, err = ParseOracles(slots, []OracleAccount{account}, testClock(), 300)
	if !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for owner mismatch, got %v", err)
	}
}

func TestParseOraclesDovesStaleness(t *testing.T) {
	slots := singleSlotArray(dovesSlot(1))
	clock := testClock()
	stale := dovesAccount(1, 1_000_000, -6, clock.UnixTime-300)
	_, err := ParseOracles(slots, []OracleAccount{stale}, clock, 300)
	if !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for stale feed, got %v", err)
	}
	fresh := dovesAccount(1, 1_000_000, -6, clock.UnixTime-299)
	price, err := ParseOracles(slots, []OracleAccount{fresh}, clock, 300)
	if err != nil {
		t.Fatalf("parse oracles: %v", err)
	}
	if price.Price.Cmp(big.NewRat(1, 1)) != 0 {
		t.Fatalf("unexpected price: %s", price.Price.RatString())
	}
}

func TestParseOraclesZeroPrice(t *testing.T) {
	slots := singleSlotArray(dovesSlot(1))
	account := dovesAccount(1, 0, -6, 1_000_000)
	_, err := ParseOracles(slots, []OracleAccount{account}, testClock(), 300)
	if !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for zero price, got %v", err)
	}
}

func TestParseOraclesPythConfidence(t *testing.T) {
	feed := [32]byte{0x01}
	slots := singleSlotArray(pythSlot(1, feed))
	clock := testClock()
	wide := OracleAccount{
		Address: testAddress(1),
		Owner:   PythReceiverProgram,
		Pyth: &PythPriceUpdate{
			FeedID:      feed,
			Price:       1_000_000,
			Conf:        20_000,
			Exponent:    -6,
			PublishTime: clock.UnixTime,
		},
	}
	_, err := ParseOracles(slots, []OracleAccount{wide}, clock, 300)
	if !errors.Is(err, ErrPriceConfidenceTooWide) {
		t.Fatalf("expected confidence too wide, got %v", err)
	}
	tight := wide
	tight.Pyth = &PythPriceUpdate{FeedID: feed, Price: 1_000_000, Conf: 100, Exponent: -6, PublishTime: clock.UnixTime}
	price, err := ParseOracles(slots, []OracleAccount{tight}, clock, 300)
	if err != nil {
		t.Fatalf("parse oracles: %v", err)
	}
	if price.Price.Cmp(big.NewRat(1, 1)) != 0 {
		t.Fatalf("unexpected price: %s", price.Price.RatString())
	}
}

func TestParseOraclesPythFeedMismatch(t *testing.T) {
	feed := [32]byte{0x01}
	slots := singleSlotArray(pythSlot(1, feed))
	clock := testClock()
	account := OracleAccount{
		Address: testAddress(1),
		Owner:   PythReceiverProgram,
		Pyth: &PythPriceUpdate{
			FeedID:      [32]byte{0x02},
			Price:       1_000_000,
			Conf:        100,
			Exponent:    -6,
			PublishTime: clock.UnixTime,
		},
	}
	_, err := ParseOracles(slots, []OracleAccount{account}, clock, 300)
	if !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for feed id mismatch, got %v", err)
	}
}

func TestParseOraclesSwitchboard(t *testing.T) {
	slots := singleSlotArray(OracleSlot{Kind: OracleKindSwitchboard, Address: testAddress(1)})
	clock := testClock()
	base := func() *SwitchboardFeed {
		return &SwitchboardFeed{
			Value:               big.NewRat(99, 100),
			StdDev:              big.NewRat(1, 10_000),
			LastUpdateSlot:      9_800,
			LastUpdateTimestamp: clock.UnixTime - 10,
		}
	}
	account := OracleAccount{Address: testAddress(1), Owner: SwitchboardProgram, Switchboard: base()}
	price, err := ParseOracles(slots, []OracleAccount{account}, clock, 300)
	if err != nil {
		t.Fatalf("parse oracles: %v", err)
	}
	if price.Price.Cmp(big.NewRat(99, 100)) != 0 {
		t.Fatalf("unexpected price: %s", price.Price.RatString())
	}

	restarted := base()
	restarted.LastUpdateSlot = 400
	account.Switchboard = restarted
	if _, err := ParseOracles(slots, []OracleAccount{account}, clock, 300); !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for pre-restart update, got %v", err)
	}

	// 300s at 400ms per slot allows 750 slots of lag.
	lagged := base()
	lagged.LastUpdateSlot = clock.Slot - 751
	account.Switchboard = lagged
	if _, err := ParseOracles(slots, []OracleAccount{account}, clock, 300); !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for slot lag, got %v", err)
	}

	noisy := base()
	noisy.StdDev = big.NewRat(2, 100)
	account.Switchboard = noisy
	if _, err := ParseOracles(slots, []OracleAccount{account}, clock, 300); !errors.Is(err, ErrPriceConfidenceTooWide) {
		t.Fatalf("expected confidence too wide for stdev, got %v", err)
	}

	boundary := base()
	boundary.LastUpdateTimestamp = clock.UnixTime - 300
	account.Switchboard = boundary
	if _, err := ParseOracles(slots, []OracleAccount{account}, clock, 300); err != nil {
		t.Fatalf("expected feed at the staleness boundary to pass, got %v", err)
	}
	stale := base()
	stale.LastUpdateTimestamp = clock.UnixTime - 301
	account.Switchboard = stale
	if _, err := ParseOracles(slots, []OracleAccount{account}, clock, 300); !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle past the staleness boundary, got %v", err)
	}

	blind := base()
	blind.StdDev = nil
	account.Switchboard = blind
	if _, err := ParseOracles(slots, []OracleAccount{account}, clock, 300); !errors.Is(err, ErrBadOracle) {
		t.Fatalf("expected bad oracle for missing stdev, got %v", err)
	}
}

func TestParseOraclesSpread(t *testing.T) {
	slots := singleSlotArray(dovesSlot(1))
	slots[1] = dovesSlot(2)
	clock := testClock()
	wide := []OracleAccount{
		dovesAccount(1, 1_000_000, -6, clock.UnixTime),
		dovesAccount(2, 1_030_000, -6, clock.UnixTime),
	}
	_, err := ParseOracles(slots, wide, clock, 300)
	if !errors.Is(err, ErrPriceConfidenceTooWide) {
		t.Fatalf("expected spread rejection at 300bps, got %v", err)
	}
	narrow := []OracleAccount{
		dovesAccount(1, 1_000_000, -6, clock.UnixTime),
		dovesAccount(2, 1_010_000, -6, clock.UnixTime),
	}
	price, err := ParseOracles(slots, narrow, clock, 300)
	if err != nil {
		t.Fatalf("parse oracles at 100bps: %v", err)
	}
	if price.Price.Cmp(big.NewRat(1, 1)) != 0 {
		t.Fatalf("expected minimum price, got %s", price.Price.RatString())
	}
	if len(price.Sources) != 2 {
		t.Fatalf("expected two samples in derivation trail, got %d", len(price.Sources))
	}
}

func TestParseOraclesReturnsMinimum(t *testing.T) {
	slots := singleSlotArray(dovesSlot(1))
	slots[1] = dovesSlot(2)
	slots[2] = dovesSlot(3)
	clock := testClock()
	accounts := []OracleAccount{
		dovesAccount(1, 1_000_000, -6, clock.UnixTime),
		dovesAccount(2, 990_000, -6, clock.UnixTime),
		dovesAccount(3, 1_005_000, -6, clock.UnixTime),
	}
	price, err := ParseOracles(slots, accounts, clock, 300)
	if err != nil {
		t.Fatalf("parse oracles: %v", err)
	}
	if price.Price.Cmp(big.NewRat(99, 100)) != 0 {
		t.Fatalf("expected minimum 0.99, got %s", price.Price.RatString())
	}
}

func TestOraclePriceFixedUSD(t *testing.T) {
	price := OraclePrice{Price: big.NewRat(99, 100)}
	fixed, err := price.FixedUSD()
	if err != nil {
		t.Fatalf("fixed usd: %v", err)
	}
	if fixed != 9_900 {
		t.Fatalf("unexpected fixed price: %d", fixed)
	}
}
