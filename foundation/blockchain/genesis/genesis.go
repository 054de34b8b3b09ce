// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/pow"
)

// DefaultSubsidy is the value minted by each coinbase when the genesis file
// doesn't set one.
const DefaultSubsidy = 10

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time `json:"date"`
	Subsidy    int64     `json:"subsidy"`     // Value minted by each coinbase transaction.
	TargetBits uint64    `json:"target_bits"` // How difficult it needs to be to solve the work problem.
	Memo       string    `json:"memo"`        // Memo carried by the genesis coinbase.
}

// Default returns the genesis used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:       time.Date(2009, time.January, 3, 0, 0, 0, 0, time.UTC),
		Subsidy:    DefaultSubsidy,
		TargetBits: pow.DefaultTargetBits,
		Memo:       database.GenesisMemo,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields left out of the file take
// their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the values can be used to run a chain.
func (g Genesis) Validate() error {
	if g.Subsidy <= 0 {
		return fmt.Errorf("genesis subsidy must be positive, got %d", g.Subsidy)
	}

	if !pow.ValidTargetBits(g.TargetBits) {
		return fmt.Errorf("genesis target bits must be between 1 and %d, got %d", pow.MaxTargetBits, g.TargetBits)
	}

	return nil
}
