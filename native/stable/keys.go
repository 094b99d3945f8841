package stable

var (
	configKey          = []byte("stable/config")
	vaultPrefix        = []byte("stable/vault/")
	vaultIndexKey      = []byte("stable/vault/index")
	benefactorPrefix   = []byte("stable/benefactor/")
	benefactorIndexKey = []byte("stable/benefactor/index")
	operatorPrefix     = []byte("stable/operator/")
	operatorIndexKey   = []byte("stable/operator/index")
)

func vaultKey(collateralMint Address) []byte {
	return recordKey(vaultPrefix, collateralMint)
}

func benefactorKey(authority Address) []byte {
	return recordKey(benefactorPrefix, authority)
}

func operatorKey(authority Address) []byte {
	return recordKey(operatorPrefix, authority)
}

func recordKey(prefix []byte, owner Address) []byte {
	suffix := owner.Hex()
	key := make([]byte, len(prefix)+len(suffix))
	copy(key, prefix)
	copy(key[len(prefix):], suffix)
	return key
}
