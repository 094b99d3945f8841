package stable

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
)

// Storage is the record persistence collaborator. Records are loaded, mutated
// in place for the duration of one request, and written back on commit.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

type storedPeriodLimit struct {
	DurationSeconds uint64
	MaxMintAmount   uint64
	MaxRedeemAmount uint64
	MintedAmount    uint64
	RedeemedAmount  uint64
	WindowStartUnix uint64
}

type storedConfig struct {
	LPMint        string
	LPDecimals    uint8
	Authority     string
	PegPriceUSD   uint64
	Paused        bool
	Limits        [PeriodLimitCount]storedPeriodLimit
	TotalMinted   string
	TotalRedeemed string
}

type storedOracleSlot struct {
	Kind    uint8
	Address string
	FeedID  []byte
}

type storedVault struct {
	CollateralMint            string
	CollateralDecimals        uint8
	Custodian                 string
	Oracles                   [OracleSlotCount]storedOracleSlot
	MinOraclePriceUSD         uint64
	MaxOraclePriceUSD         uint64
	StalenessThresholdSeconds uint64
	Limits                    [PeriodLimitCount]storedPeriodLimit
	Status                    uint8
	TotalMinted               string
	TotalRedeemed             string
}

type storedBenefactor struct {
	Authority        string
	Status           uint8
	MintFeeRateBps   uint16
	RedeemFeeRateBps uint16
	Limits           [PeriodLimitCount]storedPeriodLimit
	TotalMinted      string
	TotalRedeemed    string
}

type storedOperator struct {
	Authority string
	Roles     uint64
	Enabled   bool
}

type recordIndexEntry struct {
	Address   string
	CreatedAt uint64
}

// Store persists the protocol records behind deterministic namespace keys.
type Store struct {
	store Storage
}

// NewStore constructs a Store backed by the provided storage adapter.
func NewStore(store Storage) *Store {
	return &Store{store: store}
}

// Config loads the protocol singleton.
func (s *Store) Config() (*Config, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("stable: store not initialised")
	}
	var stored storedConfig
	ok, err := s.store.KVGet(configKey, &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	cfg, err := configFromStored(stored)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// PutConfig writes the protocol singleton.
func (s *Store) PutConfig(cfg *Config) error {
	if s == nil {
		return fmt.Errorf("stable: store not initialised")
	}
	if cfg == nil {
		return ErrBadInput
	}
	return s.store.KVPut(configKey, configToStored(cfg))
}

// Vault loads the vault record for the collateral mint.
func (s *Store) Vault(collateralMint Address) (*Vault, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("stable: store not initialised")
	}
	var stored storedVault
	ok, err := s.store.KVGet(vaultKey(collateralMint), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	vault, err := vaultFromStored(stored)
	if err != nil {
		return nil, false, err
	}
	return vault, true, nil
}

// PutVault writes the vault record and appends it to the vault index on first
// creation.
func (s *Store) PutVault(vault *Vault) error {
	if s == nil {
		return fmt.Errorf("stable: store not initialised")
	}
	if vault == nil {
		return ErrBadInput
	}
	key := vaultKey(vault.CollateralMint)
	var existing storedVault
	ok, err := s.store.KVGet(key, &existing)
	if err != nil {
		return err
	}
	if err := s.store.KVPut(key, vaultToStored(vault)); err != nil {
		return err
	}
	if !ok {
		return s.appendIndex(vaultIndexKey, vault.CollateralMint)
	}
	return nil
}

// VaultAddresses lists every collateral mint with a vault record.
func (s *Store) VaultAddresses() ([]Address, error) {
	return s.indexAddresses(vaultIndexKey)
}

// Benefactor loads the integrator record for the authority.
func (s *Store) Benefactor(authority Address) (*Benefactor, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("stable: store not initialised")
	}
	var stored storedBenefactor
	ok, err := s.store.KVGet(benefactorKey(authority), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	benefactor, err := benefactorFromStored(stored)
	if err != nil {
		return nil, false, err
	}
	return benefactor, true, nil
}

// PutBenefactor writes the integrator record, indexing it on first creation.
func (s *Store) PutBenefactor(benefactor *Benefactor) error {
	if s == nil {
		return fmt.Errorf("stable: store not initialised")
	}
	if benefactor == nil {
		return ErrBadInput
	}
	key := benefactorKey(benefactor.Authority)
	var existing storedBenefactor
	ok, err := s.store.KVGet(key, &existing)
	if err != nil {
		return err
	}
	if err := s.store.KVPut(key, benefactorToStored(benefactor)); err != nil {
		return err
	}
	if !ok {
		return s.appendIndex(benefactorIndexKey, benefactor.Authority)
	}
	return nil
}

// DeleteBenefactor removes the integrator record.
func (s *Store) DeleteBenefactor(authority Address) error {
	if s == nil {
		return fmt.Errorf("stable: store not initialised")
	}
	return s.store.KVDelete(benefactorKey(authority))
}

// BenefactorAddresses lists every authority with a benefactor record.
func (s *Store) BenefactorAddresses() ([]Address, error) {
	return s.indexAddresses(benefactorIndexKey)
}

// Operator loads the capability record for the authority.
func (s *Store) Operator(authority Address) (*Operator, bool, error) {
	if s == nil {
		return nil, false, fmt.Errorf("stable: store not initialised")
	}
	var stored storedOperator
	ok, err := s.store.KVGet(operatorKey(authority), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	operator, err := operatorFromStored(stored)
	if err != nil {
		return nil, false, err
	}
	return operator, true, nil
}

// PutOperator writes the capability record, indexing it on first creation.
func (s *Store) PutOperator(operator *Operator) error {
	if s == nil {
		return fmt.Errorf("stable: store not initialised")
	}
	if operator == nil {
		return ErrBadInput
	}
	key := operatorKey(operator.Authority)
	var existing storedOperator
	ok, err := s.store.KVGet(key, &existing)
	if err != nil {
		return err
	}
	if err := s.store.KVPut(key, operatorToStored(operator)); err != nil {
		return err
	}
	if !ok {
		return s.appendIndex(operatorIndexKey, operator.Authority)
	}
	return nil
}

// DeleteOperator removes the capability record.
func (s *Store) DeleteOperator(authority Address) error {
	if s == nil {
		return fmt.Errorf("stable: store not initialised")
	}
	return s.store.KVDelete(operatorKey(authority))
}

func (s *Store) appendIndex(indexKey []byte, addr Address) error {
	entry := recordIndexEntry{Address: addr.Hex()}
	encoded, err := rlp.EncodeToBytes(entry)
	if err != nil {
		return err
	}
	return s.store.KVAppend(indexKey, encoded)
}

func (s *Store) indexAddresses(indexKey []byte) ([]Address, error) {
	if s == nil {
		return nil, fmt.Errorf("stable: store not initialised")
	}
	var raw [][]byte
	if err := s.store.KVGetList(indexKey, &raw); err != nil {
		return nil, err
	}
	addresses := make([]Address, 0, len(raw))
	seen := make(map[Address]struct{}, len(raw))
	for _, blob := range raw {
		var entry recordIndexEntry
		if err := rlp.DecodeBytes(blob, &entry); err != nil {
			return nil, err
		}
		addr, err := ParseAddress(entry.Address)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

func limitsToStored(limits PeriodLimits) [PeriodLimitCount]storedPeriodLimit {
	var out [PeriodLimitCount]storedPeriodLimit
	for i := range limits {
		out[i] = storedPeriodLimit{
			DurationSeconds: uint64(limits[i].DurationSeconds),
			MaxMintAmount:   limits[i].MaxMintAmount,
			MaxRedeemAmount: limits[i].MaxRedeemAmount,
			MintedAmount:    limits[i].MintedAmount,
			RedeemedAmount:  limits[i].RedeemedAmount,
			WindowStartUnix: uint64(limits[i].WindowStartUnix),
		}
	}
	return out
}

func limitsFromStored(stored [PeriodLimitCount]storedPeriodLimit) PeriodLimits {
	var out PeriodLimits
	for i := range stored {
		out[i] = PeriodLimit{
			DurationSeconds: int64(stored[i].DurationSeconds),
			MaxMintAmount:   stored[i].MaxMintAmount,
			MaxRedeemAmount: stored[i].MaxRedeemAmount,
			MintedAmount:    stored[i].MintedAmount,
			RedeemedAmount:  stored[i].RedeemedAmount,
			WindowStartUnix: int64(stored[i].WindowStartUnix),
		}
	}
	return out
}

func configToStored(cfg *Config) storedConfig {
	return storedConfig{
		LPMint:        cfg.LPMint.Hex(),
		LPDecimals:    cfg.LPDecimals,
		Authority:     cfg.Authority.Hex(),
		PegPriceUSD:   cfg.PegPriceUSD,
		Paused:        cfg.Paused,
		Limits:        limitsToStored(cfg.Limits),
		TotalMinted:   amountString(cfg.TotalMinted),
		TotalRedeemed: amountString(cfg.TotalRedeemed),
	}
}

func configFromStored(stored storedConfig) (*Config, error) {
	lpMint, err := ParseAddress(stored.LPMint)
	if err != nil {
		return nil, err
	}
	authority, err := ParseAddress(stored.Authority)
	if err != nil {
		return nil, err
	}
	totalMinted, err := parseAmount(stored.TotalMinted)
	if err != nil {
		return nil, err
	}
	totalRedeemed, err := parseAmount(stored.TotalRedeemed)
	if err != nil {
		return nil, err
	}
	return &Config{
		LPMint:        lpMint,
		LPDecimals:    stored.LPDecimals,
		Authority:     authority,
		PegPriceUSD:   stored.PegPriceUSD,
		Paused:        stored.Paused,
		Limits:        limitsFromStored(stored.Limits),
		TotalMinted:   totalMinted,
		TotalRedeemed: totalRedeemed,
	}, nil
}

func vaultToStored(vault *Vault) storedVault {
	stored := storedVault{
		CollateralMint:            vault.CollateralMint.Hex(),
		CollateralDecimals:        vault.CollateralDecimals,
		Custodian:                 vault.Custodian.Hex(),
		MinOraclePriceUSD:         vault.MinOraclePriceUSD,
		MaxOraclePriceUSD:         vault.MaxOraclePriceUSD,
		StalenessThresholdSeconds: uint64(vault.StalenessThresholdSeconds),
		Limits:                    limitsToStored(vault.Limits),
		Status:                    uint8(vault.Status),
		TotalMinted:               amountString(vault.TotalMinted),
		TotalRedeemed:             amountString(vault.TotalRedeemed),
	}
	for i := range vault.Oracles {
		stored.Oracles[i] = storedOracleSlot{
			Kind:    uint8(vault.Oracles[i].Kind),
			Address: vault.Oracles[i].Address.Hex(),
			FeedID:  append([]byte{}, vault.Oracles[i].FeedID[:]...),
		}
	}
	return stored
}

func vaultFromStored(stored storedVault) (*Vault, error) {
	collateralMint, err := ParseAddress(stored.CollateralMint)
	if err != nil {
		return nil, err
	}
	custodian, err := ParseAddress(stored.Custodian)
	if err != nil {
		return nil, err
	}
	totalMinted, err := parseAmount(stored.TotalMinted)
	if err != nil {
		return nil, err
	}
	totalRedeemed, err := parseAmount(stored.TotalRedeemed)
	if err != nil {
		return nil, err
	}
	vault := &Vault{
		CollateralMint:            collateralMint,
		CollateralDecimals:        stored.CollateralDecimals,
		Custodian:                 custodian,
		MinOraclePriceUSD:         stored.MinOraclePriceUSD,
		MaxOraclePriceUSD:         stored.MaxOraclePriceUSD,
		StalenessThresholdSeconds: int64(stored.StalenessThresholdSeconds),
		Limits:                    limitsFromStored(stored.Limits),
		Status:                    VaultStatus(stored.Status),
		TotalMinted:               totalMinted,
		TotalRedeemed:             totalRedeemed,
	}
	for i := range stored.Oracles {
		addr, err := ParseAddress(stored.Oracles[i].Address)
		if err != nil {
			return nil, err
		}
		slot := OracleSlot{Kind: OracleKind(stored.Oracles[i].Kind), Address: addr}
		if len(stored.Oracles[i].FeedID) == len(slot.FeedID) {
			copy(slot.FeedID[:], stored.Oracles[i].FeedID)
		}
		vault.Oracles[i] = slot
	}
	return vault, nil
}

func benefactorToStored(benefactor *Benefactor) storedBenefactor {
	return storedBenefactor{
		Authority:        benefactor.Authority.Hex(),
		Status:           uint8(benefactor.Status),
		MintFeeRateBps:   benefactor.MintFeeRateBps,
		RedeemFeeRateBps: benefactor.RedeemFeeRateBps,
		Limits:           limitsToStored(benefactor.Limits),
		TotalMinted:      amountString(benefactor.TotalMinted),
		TotalRedeemed:    amountString(benefactor.TotalRedeemed),
	}
}

func benefactorFromStored(stored storedBenefactor) (*Benefactor, error) {
	authority, err := ParseAddress(stored.Authority)
	if err != nil {
		return nil, err
	}
	totalMinted, err := parseAmount(stored.TotalMinted)
	if err != nil {
		return nil, err
	}
	totalRedeemed, err := parseAmount(stored.TotalRedeemed)
	if err != nil {
		return nil, err
	}
	return &Benefactor{
		Authority:        authority,
		Status:           BenefactorStatus(stored.Status),
		MintFeeRateBps:   stored.MintFeeRateBps,
		RedeemFeeRateBps: stored.RedeemFeeRateBps,
		Limits:           limitsFromStored(stored.Limits),
		TotalMinted:      totalMinted,
		TotalRedeemed:    totalRedeemed,
	}, nil
}

func operatorToStored(operator *Operator) storedOperator {
	return storedOperator{
		Authority: operator.Authority.Hex(),
		Roles:     uint64(operator.Roles),
		Enabled:   operator.Enabled,
	}
}

func operatorFromStored(stored storedOperator) (*Operator, error) {
	authority, err := ParseAddress(stored.Authority)
	if err != nil {
		return nil, err
	}
	return &Operator{
		Authority: authority,
		Roles:     Role(stored.Roles),
		Enabled:   stored.Enabled,
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
		return nil, fmt.Errorf("stable: invalid amount %q", value)
	}
	return amount, nil
}
