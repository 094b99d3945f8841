package psm

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies an account, mint or custody slot within the module.
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
		return addr, fmt.Errorf("psm: invalid address %q: %w", value, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("psm: invalid address length %d", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// AdminCount is the fixed capacity of the admin array.
const AdminCount = 10

// Config is the module singleton: the fixed admin array and the pause flag.
// Empty admin slots hold the zero address.
type Config struct {
	Admins [AdminCount]Address
	Paused bool
}

// NewConfig constructs the singleton with a single initial admin.
func NewConfig(initialAdmin Address) (*Config, error) {
	if initialAdmin.IsZero() {
		return nil, ErrBadInput
	}
	cfg := &Config{}
	cfg.Admins[0] = initialAdmin
	return cfg, nil
}

// IsAdmin reports whether the address occupies an admin slot.
func (c *Config) IsAdmin(addr Address) bool {
	if c == nil || addr.IsZero() {
		return false
	}
	for i := range c.Admins {
		if c.Admins[i] == addr {
			return true
		}
	}
	return false
}

// AdminLen counts the occupied admin slots.
func (c *Config) AdminLen() int {
	if c == nil {
		return 0
	}
	count := 0
	for i := range c.Admins {
		if !c.Admins[i].IsZero() {
			count++
		}
	}
	return count
}

// AddAdmin places the address in the first empty slot. Duplicates are
// rejected; a full array fails with ErrAdminArrayFull.
func (c *Config) AddAdmin(addr Address) error {
	if c == nil {
		return ErrBadInput
	}
	if addr.IsZero() {
		return ErrBadInput
	}
	if c.IsAdmin(addr) {
		return ErrBadInput
	}
	for i := range c.Admins {
		if c.Admins[i].IsZero() {
			c.Admins[i] = addr
			return nil
		}
	}
	return ErrAdminArrayFull
}

// RemoveAdmin clears the address's slot. The last remaining admin can never
// be removed.
func (c *Config) RemoveAdmin(addr Address) error {
	if c == nil {
		return ErrBadInput
	}
	for i := range c.Admins {
		if c.Admins[i] == addr && !addr.IsZero() {
			if c.AdminLen() == 1 {
				return ErrNoAdminLeft
			}
			c.Admins[i] = Address{}
			return nil
		}
	}
	return ErrBadInput
}

// Copy returns a copy for staged mutation.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
