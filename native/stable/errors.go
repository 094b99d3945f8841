package stable

import "errors"

var (
	// ErrNotAuthorized indicates the caller does not control the record it attempted to act on.
	ErrNotAuthorized = errors.New("stable: not authorized")
	// ErrInvalidAuthority indicates the operator lacks the role required for the action.
	ErrInvalidAuthority = errors.New("stable: invalid authority")
	// ErrOperatorDisabled indicates the operator record exists but has been switched off.
	ErrOperatorDisabled = errors.New("stable: operator disabled")
	// ErrOperatorCannotDeleteItself rejects an operator removing its own record.
	ErrOperatorCannotDeleteItself = errors.New("stable: operator cannot delete itself")

	// ErrProtocolPaused indicates the global pause flag is set.
	ErrProtocolPaused = errors.New("stable: protocol paused")
	// ErrVaultDisabled indicates the vault is not accepting mints or redeems.
	ErrVaultDisabled = errors.New("stable: vault disabled")
	// ErrVaultEnabled indicates an action that requires a disabled vault.
	ErrVaultEnabled = errors.New("stable: vault enabled")
	// ErrBenefactorDisabled indicates the benefactor record is not active.
	ErrBenefactorDisabled = errors.New("stable: benefactor disabled")

	// ErrBadOracle indicates a price source failed identity, staleness or sanity checks.
	ErrBadOracle = errors.New("stable: bad oracle")
	// ErrNoValidPrice indicates no usable price survived aggregation.
	ErrNoValidPrice = errors.New("stable: no valid price")
	// ErrPriceConfidenceTooWide indicates per-source confidence or cross-source spread exceeded the ceiling.
	ErrPriceConfidenceTooWide = errors.New("stable: price confidence too wide")
	// ErrMissingOracleAccounts indicates fewer payloads were supplied than non-empty oracle slots.
	ErrMissingOracleAccounts = errors.New("stable: missing oracle accounts")
	// ErrNoOraclesFound indicates the vault has no configured oracle slots.
	ErrNoOraclesFound = errors.New("stable: no oracles found")

	// ErrMintLimitExceeded indicates a rolling mint cap was exhausted.
	ErrMintLimitExceeded = errors.New("stable: mint limit exceeded")
	// ErrRedeemLimitExceeded indicates a rolling redeem cap was exhausted.
	ErrRedeemLimitExceeded = errors.New("stable: redeem limit exceeded")

	// ErrZeroAmount indicates the computed or supplied amount collapsed to zero.
	ErrZeroAmount = errors.New("stable: zero amount")
	// ErrSlippageToleranceExceeded indicates the computed amount fell below the caller's floor.
	ErrSlippageToleranceExceeded = errors.New("stable: slippage tolerance exceeded")
	// ErrInsufficientAmount indicates the custodian balance delta did not match the transfer.
	ErrInsufficientAmount = errors.New("stable: insufficient amount")
	// ErrVaultIsDry indicates the vault custody balance cannot cover the redemption.
	ErrVaultIsDry = errors.New("stable: vault is dry")

	// ErrMathOverflow indicates an unrepresentable fixed-point or integer conversion.
	ErrMathOverflow = errors.New("stable: math overflow")
	// ErrInvalidPeriodLimit indicates a period limit update with an out-of-range duration or zero cap.
	ErrInvalidPeriodLimit = errors.New("stable: invalid period limit")
	// ErrInvalidFeeRate indicates a fee rate above 10000 basis points.
	ErrInvalidFeeRate = errors.New("stable: invalid fee rate")
	// ErrInvalidPegPrice indicates a peg price outside the accepted fixed-point range.
	ErrInvalidPegPrice = errors.New("stable: invalid peg price")
	// ErrBadInput indicates an out-of-range index or otherwise malformed argument.
	ErrBadInput = errors.New("stable: bad input")
)
