package storage

import (
	"errors"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
)

// Iterator walks the chain from a block back to genesis by following the
// previous block hash of each block.
type Iterator struct {
	reader  Reader        // Access to the stored blocks.
	current database.Hash // Hash of the next block to return.
	eoc     bool          // Represents the iterator is at the end of the chain.
}

// NewIterator constructs an iterator starting at the specified block.
func NewIterator(reader Reader, from database.Hash) *Iterator {
	return &Iterator{
		reader:  reader,
		current: from,
		eoc:     from.IsZero(),
	}
}

// Next returns the current block and moves to its parent. A block that is
// not stored ends the walk with ErrEndOfChain.
func (it *Iterator) Next() (database.Block, error) {
	if it.eoc {
		return database.Block{}, ErrEndOfChain
	}

	block, err := it.reader.Block(it.current)
	if err != nil {
		it.eoc = true
		if errors.Is(err, ErrNotFound) {
			return database.Block{}, ErrEndOfChain
		}
		return database.Block{}, err
	}

	it.current = block.Header.PrevBlockHash
	if it.current.IsZero() {
		it.eoc = true
	}

	return block, nil
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.eoc
}
