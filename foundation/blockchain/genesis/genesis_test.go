package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/genesis"
)

func Test_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(`{"target_bits": 12}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %v", err)
	}

	g, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %v", err)
	}

	if g.TargetBits != 12 {
		t.Fatalf("Should use the target bits from the file, got %d", g.TargetBits)
	}

	if g.Subsidy != genesis.DefaultSubsidy || g.Memo != database.GenesisMemo {
		t.Fatalf("Should default the fields left out of the file.")
	}

	if err := os.WriteFile(path, []byte(`{"subsidy": -1}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %v", err)
	}

	if _, err := genesis.Load(path); err == nil {
		t.Fatalf("Should reject a negative subsidy.")
	}
}
