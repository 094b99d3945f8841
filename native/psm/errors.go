package psm

import "errors"

var (
	// ErrNotAuthorized indicates the caller is not a pool admin.
	ErrNotAuthorized = errors.New("psm: not authorized")
	// ErrProtocolPaused indicates the module-wide pause flag is set.
	ErrProtocolPaused = errors.New("psm: protocol paused")
	// ErrPoolNotActive indicates the pool is paused or disabled.
	ErrPoolNotActive = errors.New("psm: pool not active")
	// ErrInsufficientPoolBalance indicates the pool cannot cover the payout.
	ErrInsufficientPoolBalance = errors.New("psm: insufficient pool balance")
	// ErrZeroAmount indicates the supplied or converted amount is zero.
	ErrZeroAmount = errors.New("psm: zero amount")
	// ErrInsufficientAmount indicates a custody balance delta mismatch.
	ErrInsufficientAmount = errors.New("psm: insufficient amount")
	// ErrMathOverflow indicates an unrepresentable decimal rescale.
	ErrMathOverflow = errors.New("psm: math overflow")
	// ErrAdminArrayFull indicates every admin slot is occupied.
	ErrAdminArrayFull = errors.New("psm: admin array full")
	// ErrNoAdminLeft rejects removing the last remaining admin.
	ErrNoAdminLeft = errors.New("psm: no admin left")
	// ErrBadInput indicates a malformed argument.
	ErrBadInput = errors.New("psm: bad input")
)
