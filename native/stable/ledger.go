package stable

import (
	"context"
	"fmt"
	"sync"
)

// TokenLedger is the value-transfer collaborator. Implementations move
// balances between custody accounts and mint or burn supply; callers verify
// the resulting balances themselves.
type TokenLedger interface {
	Transfer(ctx context.Context, token, from, to Address, amount uint64) error
	Mint(ctx context.Context, token, to Address, amount uint64) error
	Burn(ctx context.Context, token, from Address, amount uint64) error
	BalanceOf(ctx context.Context, token, account Address) (uint64, error)
}

// MemoryLedger is an in-memory TokenLedger used for tests and local
// deployments.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[Address]map[Address]uint64
}

// NewMemoryLedger constructs an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[Address]map[Address]uint64)}
}

// Fund credits an account directly, bypassing transfer checks.
func (l *MemoryLedger) Fund(token, account Address, amount uint64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, account, amount)
}

// Transfer moves amount between accounts, failing when the source balance is
// insufficient.
func (l *MemoryLedger) Transfer(_ context.Context, token, from, to Address, amount uint64) error {
	if l == nil {
		return fmt.Errorf("stable: ledger not initialised")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(token, from, amount); err != nil {
		return err
	}
	l.credit(token, to, amount)
	return nil
}

// Mint credits freshly issued supply to the account.
func (l *MemoryLedger) Mint(_ context.Context, token, to Address, amount uint64) error {
	if l == nil {
		return fmt.Errorf("stable: ledger not initialised")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, to, amount)
	return nil
}

// Burn removes supply from the account, failing when the balance is
// insufficient.
func (l *MemoryLedger) Burn(_ context.Context, token, from Address, amount uint64) error {
	if l == nil {
		return fmt.Errorf("stable: ledger not initialised")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debit(token, from, amount)
}

// BalanceOf reports the current balance for the account.
func (l *MemoryLedger) BalanceOf(_ context.Context, token, account Address) (uint64, error) {
	if l == nil {
		return 0, fmt.Errorf("stable: ledger not initialised")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[token][account], nil
}

func (l *MemoryLedger) credit(token, account Address, amount uint64) {
	bucket, ok := l.balances[token]
	if !ok {
		bucket = make(map[Address]uint64)
		l.balances[token] = bucket
	}
	bucket[account] += amount
}

func (l *MemoryLedger) debit(token, account Address, amount uint64) error {
	bucket := l.balances[token]
	if bucket[account] < amount {
		return fmt.Errorf("stable: insufficient balance for %s", account.Hex())
	}
	bucket[account] -= amount
	return nil
}
