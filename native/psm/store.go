package psm

import (
	"fmt"
	"math/big"
	"strings"
)

// Storage is the record persistence collaborator.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	configKey  = []byte("psm/config")
	poolPrefix = []byte("psm/pool/")
)

func poolKey(redemptionMint Address) []byte {
	suffix := redemptionMint.Hex()
	key := make([]byte, len(poolPrefix)+len(suffix))
	copy(key, poolPrefix)
	copy(key[len(poolPrefix):], suffix)
	return key
}

type storedConfig struct {
	Admins [AdminCount]string
	Paused bool
}

type storedPool struct {
	RedemptionMint     string
	SettlementMint     string
	RedemptionCustody  string
	SettlementCustody  string
	RedemptionDecimals uint8
	SettlementDecimals uint8
	Status             uint8
	TotalSupplied      string
	TotalRedeemed      string
	TotalWithdrawn     string
}

// Store persists the module records behind deterministic namespace keys.
type Store struct {
	store Storage
}

// NewStore constructs a Store backed by the provided storage adapter.
func NewStore(store Storage) *Store {
	return &Store{store: store}
}

// Config loads the module singleton.
func (s *Store) Config() (*Config, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("psm: store not initialised")
	}
	var stored storedConfig
	ok, err := s.store.KVGet(configKey, &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	cfg := &Config{Paused: stored.Paused}
	for i := range stored.Admins {
		if strings.TrimSpace(stored.Admins[i]) == "" {
			continue
		}
		addr, err := ParseAddress(stored.Admins[i])
		if err != nil {
			return nil, false, err
		}
		cfg.Admins[i] = addr
	}
	return cfg, true, nil
}

// PutConfig writes the module singleton.
func (s *Store) PutConfig(cfg *Config) error {
	if s == nil {
		return fmt.Errorf("psm: store not initialised")
	}
	if cfg == nil {
		return ErrBadInput
	}
	stored := storedConfig{Paused: cfg.Paused}
	for i := range cfg.Admins {
		stored.Admins[i] = cfg.Admins[i].Hex()
	}
	return s.store.KVPut(configKey, stored)
}

// Pool loads the pool keyed by its redemption mint.
func (s *Store) Pool(redemptionMint Address) (*Pool, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("psm: store not initialised")
	}
	var stored storedPool
	ok, err := s.store.KVGet(poolKey(redemptionMint), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	pool, err := poolFromStored(stored)
	if err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

// PutPool writes the pool record.
func (s *Store) PutPool(pool *Pool) error {
	if s == nil {
		return fmt.Errorf("psm: store not initialised")
	}
	if pool == nil {
		return ErrBadInput
	}
	return s.store.KVPut(poolKey(pool.RedemptionMint), poolToStored(pool))
}

func poolToStored(pool *Pool) storedPool {
	return storedPool{
		RedemptionMint:     pool.RedemptionMint.Hex(),
		SettlementMint:     pool.SettlementMint.Hex(),
		RedemptionCustody:  pool.RedemptionCustody.Hex(),
		SettlementCustody:  pool.SettlementCustody.Hex(),
		RedemptionDecimals: pool.RedemptionDecimals,
		SettlementDecimals: pool.SettlementDecimals,
		Status:             uint8(pool.Status),
		TotalSupplied:      amountString(pool.TotalSupplied),
		TotalRedeemed:      amountString(pool.TotalRedeemed),
		TotalWithdrawn:     amountString(pool.TotalWithdrawn),
	}
}

func poolFromStored(stored storedPool) (*Pool, error) {
	redemptionMint, err := ParseAddress(stored.RedemptionMint)
	if err != nil {
		return nil, err
	}
	settlementMint, err := ParseAddress(stored.SettlementMint)
	if err != nil {
		return nil, err
	}
	redemptionCustody, err := ParseAddress(stored.RedemptionCustody)
	if err != nil {
		return nil, err
	}
	settlementCustody, err := ParseAddress(stored.SettlementCustody)
	if err != nil {
		return nil, err
	}
	totalSupplied, err := parseAmount(stored.TotalSupplied)
	if err != nil {
		return nil, err
	}
	totalRedeemed, err := parseAmount(stored.TotalRedeemed)
	if err != nil {
		return nil, err
	}
	totalWithdrawn, err := parseAmount(stored.TotalWithdrawn)
	if err != nil {
		return nil, err
	}
	return &Pool{
		RedemptionMint:     redemptionMint,
		SettlementMint:     settlementMint,
		RedemptionCustody:  redemptionCustody,
		SettlementCustody:  settlementCustody,
		RedemptionDecimals: stored.RedemptionDecimals,
		SettlementDecimals: stored.SettlementDecimals,
		Status:             PoolStatus(stored.Status),
		TotalSupplied:      totalSupplied,
		TotalRedeemed:      totalRedeemed,
		TotalWithdrawn:     totalWithdrawn,
	}, nil
}

func amountString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("psm: invalid amount %q", value)
	}
	return amount, nil
}
