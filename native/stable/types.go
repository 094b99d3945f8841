package stable

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies an account, mint or program within the protocol namespace.
type Address [20]byte

var zeroAddress Address

// IsZero reports whether the address is the all-zero sentinel.
func (a Address) IsZero() bool {
	return a == zeroAddress
}

// Hex renders the address as a lowercase hex string without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// ParseAddress decodes a 40-character hex string into an Address.
func ParseAddress(value string) (Address, error) {
	var addr Address
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("stable: invalid address %q: %w", value, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("stable: invalid address length %d", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// pegDecimals is the fixed-point scale for USD prices carried in records.
const pegDecimals = 4

// DefaultPegPriceUSD is 1.0000 USD at the record fixed-point scale.
const DefaultPegPriceUSD uint64 = 10_000

// MaxPegPriceUSD bounds admin peg updates to (0, 2.0000) USD exclusive.
const MaxPegPriceUSD uint64 = 2 * DefaultPegPriceUSD

// VaultStatus tracks whether a vault accepts mints and redeems.
type VaultStatus uint8

const (
	VaultStatusDisabled VaultStatus = iota
	VaultStatusEnabled
)

// String renders the status for logs and audit rows.
func (s VaultStatus) String() string {
	switch s {
	case VaultStatusEnabled:
		return "enabled"
	case VaultStatusDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("vaultstatus(%d)", uint8(s))
	}
}

// BenefactorStatus tracks whether an integrator may route mints and redeems.
type BenefactorStatus uint8

const (
	BenefactorStatusDisabled BenefactorStatus = iota
	BenefactorStatusActive
)

func (s BenefactorStatus) String() string {
	switch s {
	case BenefactorStatusActive:
		return "active"
	case BenefactorStatusDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("benefactorstatus(%d)", uint8(s))
	}
}

// Clock carries the request-scoped time snapshot. It is read once per request
// and treated as authoritative for every window roll and staleness check the
// request performs.
type Clock struct {
	UnixTime        int64
	Slot            uint64
	LastRestartSlot uint64
}
