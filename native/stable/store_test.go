package stable

import (
	"math/big"
	"testing"
)

type memoryStore struct {
	data  map[string]interface{}
	lists map[string][][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		data:  make(map[string]interface{}),
		lists: make(map[string][][]byte),
	}
}

func (m *memoryStore) KVGet(key []byte, out interface{}) (bool, error) {
	value, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	switch dst := out.(type) {
	case *storedConfig:
		if src, ok := value.(storedConfig); ok {
			*dst = src
			return true, nil
		}
	case *storedVault:
		if src, ok := value.(storedVault); ok {
			*dst = src
			return true, nil
		}
	case *storedBenefactor:
		if src, ok := value.(storedBenefactor); ok {
			*dst = src
			return true, nil
		}
	case *storedOperator:
		if src, ok := value.(storedOperator); ok {
			*dst = src
			return true, nil
		}
	default:
		return false, nil
	}
	return false, nil
}

func (m *memoryStore) KVPut(key []byte, value interface{}) error {
	m.data[string(key)] = value
	return nil
}

func (m *memoryStore) KVDelete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *memoryStore) KVAppend(key []byte, value []byte) error {
	m.lists[string(key)] = append(m.lists[string(key)], append([]byte{}, value...))
	return nil
}

func (m *memoryStore) KVGetList(key []byte, out interface{}) error {
	dst, ok := out.(*[][]byte)
	if !ok {
		return nil
	}
	*dst = append([][]byte{}, m.lists[string(key)]...)
	return nil
}

func testAddress(seed byte) Address {
	var addr Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

func TestStoreConfigRoundTrip(t *testing.T) {
	store := NewStore(newMemoryStore())
	cfg := NewConfig(testAddress(1), testAddress(2), 6)
	cfg.Paused = true
	cfg.PegPriceUSD = 9_900
	cfg.TotalMinted = big.NewInt(123456)
	if err := cfg.Limits[1].Update(3600, 500, 600, 1_000); err != nil {
		t.Fatalf("update limit: %v", err)
	}
	if err := store.PutConfig(cfg); err != nil {
		t.Fatalf("put config: %v", err)
	}
	loaded, ok, err := store.Config()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !ok {
		t.Fatalf("expected config record")
	}
	if loaded.LPMint != cfg.LPMint || loaded.Authority != cfg.Authority {
		t.Fatalf("unexpected identities: %+v", loaded)
	}
	if !loaded.Paused || loaded.PegPriceUSD != 9_900 {
		t.Fatalf("unexpected config fields: %+v", loaded)
	}
	if loaded.Limits[1].DurationSeconds != 3600 || loaded.Limits[1].MaxRedeemAmount != 600 {
		t.Fatalf("unexpected limits: %+v", loaded.Limits[1])
	}
	if loaded.TotalMinted.Cmp(big.NewInt(123456)) != 0 {
		t.Fatalf("unexpected total minted: %s", loaded.TotalMinted)
	}
}

func TestStoreVaultRoundTripAndIndex(t *testing.T) {
	store := NewStore(newMemoryStore())
	vault := NewVault(testAddress(3), 9)
	vault.Custodian = testAddress(4)
	feed := [32]byte{0xaa}
	if err := vault.SetOracle(0, OracleSlot{Kind: OracleKindPyth, Address: testAddress(5), FeedID: feed}); err != nil {
		t.Fatalf("set oracle: %v", err)
	}
	if err := store.PutVault(vault); err != nil {
		t.Fatalf("put vault: %v", err)
	}
	loaded, ok, err := store.Vault(testAddress(3))
	if err != nil {
		t.Fatalf("load vault: %v", err)
	}
	if !ok {
		t.Fatalf("expected vault record")
	}
	if loaded.Custodian != testAddress(4) || loaded.CollateralDecimals != 9 {
		t.Fatalf("unexpected vault fields: %+v", loaded)
	}
	if loaded.Oracles[0].Kind != OracleKindPyth || loaded.Oracles[0].FeedID != feed {
		t.Fatalf("unexpected oracle slot: %+v", loaded.Oracles[0])
	}
	// Rewriting must not duplicate the index entry.
	if err := store.PutVault(loaded); err != nil {
		t.Fatalf("rewrite vault: %v", err)
	}
	addresses, err := store.VaultAddresses()
	if err != nil {
		t.Fatalf("vault addresses: %v", err)
	}
	if len(addresses) != 1 || addresses[0] != testAddress(3) {
		t.Fatalf("unexpected vault index: %v", addresses)
	}
}

func TestStoreOperatorDelete(t *testing.T) {
	store := NewStore(newMemoryStore())
	operator := &Operator{Authority: testAddress(6), Roles: RoleAdmin, Enabled: true}
	if err := store.PutOperator(operator); err != nil {
		t.Fatalf("put operator: %v", err)
	}
	if err := store.DeleteOperator(testAddress(6)); err != nil {
		t.Fatalf("delete operator: %v", err)
	}
	_, ok, err := store.Operator(testAddress(6))
	if err != nil {
		t.Fatalf("load operator: %v", err)
	}
	if ok {
		t.Fatalf("expected operator record removed")
	}
}
