// Package storage defines the persistence contract for the ledger: blocks
// by hash, the tip of the chain, and the unspent output index. Writes happen
// inside an atomic update so a block and the index changes it causes land
// together or not at all.
package storage

import (
	"errors"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
)

// Set of error variables for storage.
var (
	ErrNotFound   = errors.New("not found")
	ErrEndOfChain = errors.New("end of chain")
	ErrStop       = errors.New("stop iteration")
)

// Reader provides read access to the stored chain and index.
type Reader interface {
	Tip() (database.Hash, error)
	Block(hash database.Hash) (database.Block, error)
	UTXOs(txID database.Hash) ([]database.UTXO, error)

	// ForEachUTXO visits every index entry in ascending transaction id
	// order. Returning ErrStop from fn ends the walk without an error.
	ForEachUTXO(fn func(txID database.Hash, utxos []database.UTXO) error) error
}

// Writer provides write access inside an update. Reads made through a
// Writer observe the writes already made in the same update.
type Writer interface {
	Reader
	SetTip(hash database.Hash) error
	PutBlock(block database.Block) error
	PutUTXOs(txID database.Hash, utxos []database.UTXO) error
	DeleteUTXOs(txID database.Hash) error
	ClearUTXOs() error
}

// Storage represents the behavior required to persist the ledger.
type Storage interface {
	Reader

	// Update runs fn inside an atomic write. When fn returns an error
	// nothing it wrote is kept.
	Update(fn func(w Writer) error) error
	Close() error
}
