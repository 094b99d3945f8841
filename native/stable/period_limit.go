package stable

const (
	// MinPeriodDuration is the shortest configurable rolling window.
	MinPeriodDuration int64 = 30
	// MaxPeriodDuration is the longest configurable rolling window, thirty days.
	MaxPeriodDuration int64 = 30 * 24 * 60 * 60

	// PeriodLimitCount is the fixed capacity of the per-record limit array.
	PeriodLimitCount = 4
)

// PeriodLimit is a rolling-window counter with independent mint and redeem
// caps. A zero duration means the limit is disabled: checks always pass and
// counters never move.
type PeriodLimit struct {
	DurationSeconds int64
	MaxMintAmount   uint64
	MaxRedeemAmount uint64
	MintedAmount    uint64
	RedeemedAmount  uint64
	WindowStartUnix int64
}

// Enabled reports whether the limit participates in checks at all.
func (pl *PeriodLimit) Enabled() bool {
	return pl != nil && pl.DurationSeconds != 0
}

// Update reconfigures the window and caps, resets the counters and restarts
// the window at now. The resulting configuration must be well formed; a
// disabled limit is reached through Reset, not Update.
func (pl *PeriodLimit) Update(duration int64, maxMint, maxRedeem uint64, now int64) error {
	if pl == nil {
		return ErrBadInput
	}
	if duration < MinPeriodDuration || duration > MaxPeriodDuration {
		return ErrInvalidPeriodLimit
	}
	if maxMint == 0 || maxRedeem == 0 {
		return ErrInvalidPeriodLimit
	}
	pl.DurationSeconds = duration
	pl.MaxMintAmount = maxMint
	pl.MaxRedeemAmount = maxRedeem
	pl.MintedAmount = 0
	pl.RedeemedAmount = 0
	pl.WindowStartUnix = now
	return nil
}

// Reset zeroes the limit back to its disabled state.
func (pl *PeriodLimit) Reset() {
	if pl == nil {
		return
	}
	*pl = PeriodLimit{}
}

// RollWindow advances the window when it has elapsed, zeroing both counters.
// Idempotent within a window: rolling twice at the same now is a no-op the
// second time.
func (pl *PeriodLimit) RollWindow(now int64) {
	if !pl.Enabled() {
		return
	}
	if now-pl.WindowStartUnix >= pl.DurationSeconds {
		pl.MintedAmount = 0
		pl.RedeemedAmount = 0
		pl.WindowStartUnix = now
	}
}

// CheckMintLimit fails when the pending amount would push the window counter
// past the mint cap. Callers must roll the window first.
func (pl *PeriodLimit) CheckMintLimit(amount uint64) error {
	if !pl.Enabled() {
		return nil
	}
	if pl.MintedAmount+amount < pl.MintedAmount {
		return ErrMintLimitExceeded
	}
	if pl.MintedAmount+amount > pl.MaxMintAmount {
		return ErrMintLimitExceeded
	}
	return nil
}

// CheckRedeemLimit mirrors CheckMintLimit for the redeem cap.
func (pl *PeriodLimit) CheckRedeemLimit(amount uint64) error {
	if !pl.Enabled() {
		return nil
	}
	if pl.RedeemedAmount+amount < pl.RedeemedAmount {
		return ErrRedeemLimitExceeded
	}
	if pl.RedeemedAmount+amount > pl.MaxRedeemAmount {
		return ErrRedeemLimitExceeded
	}
	return nil
}

// RecordMint adds to the mint counter. No-op when disabled.
func (pl *PeriodLimit) RecordMint(amount uint64) {
	if !pl.Enabled() {
		return
	}
	pl.MintedAmount += amount
}

// RecordRedeem adds to the redeem counter. No-op when disabled.
func (pl *PeriodLimit) RecordRedeem(amount uint64) {
	if !pl.Enabled() {
		return
	}
	pl.RedeemedAmount += amount
}

// PeriodLimits is the fixed-capacity limit array shared by Config, Vault and
// Benefactor records.
type PeriodLimits [PeriodLimitCount]PeriodLimit

// RollWindows rolls every enabled window forward to now.
func (pls *PeriodLimits) RollWindows(now int64) {
	if pls == nil {
		return
	}
	for i := range pls {
		pls[i].RollWindow(now)
	}
}

// CheckMint verifies every enabled window can absorb the amount.
func (pls *PeriodLimits) CheckMint(amount uint64) error {
	if pls == nil {
		return nil
	}
	for i := range pls {
		if err := pls[i].CheckMintLimit(amount); err != nil {
			return err
		}
	}
	return nil
}

// CheckRedeem verifies every enabled window can absorb the amount.
func (pls *PeriodLimits) CheckRedeem(amount uint64) error {
	if pls == nil {
		return nil
	}
	for i := range pls {
		if err := pls[i].CheckRedeemLimit(amount); err != nil {
			return err
		}
	}
	return nil
}

// RecordMint adds the amount to every enabled window counter.
func (pls *PeriodLimits) RecordMint(amount uint64) {
	if pls == nil {
		return
	}
	for i := range pls {
		pls[i].RecordMint(amount)
	}
}

// RecordRedeem adds the amount to every enabled window counter.
func (pls *PeriodLimits) RecordRedeem(amount uint64) {
	if pls == nil {
		return
	}
	for i := range pls {
		pls[i].RecordRedeem(amount)
	}
}
