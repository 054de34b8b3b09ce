package chain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/storage"
	"github.com/utxoledger/ledger/foundation/blockchain/utxo"
)

// BlockReport represents a block along with the result of checking it.
type BlockReport struct {
	Block       database.Block `json:"block"`
	ValidPOW    bool           `json:"valid_pow"`
	ValidHash   bool           `json:"valid_hash"`
	ValidMerkle bool           `json:"valid_merkle"`
}

// Iterator returns a new cursor walking the chain from the tip to genesis.
func (c *Chain) Iterator() *storage.Iterator {
	tip, err := c.storage.Tip()
	if err != nil {
		tip = database.ZeroHash
	}

	return storage.NewIterator(c.storage, tip)
}

// ForEachBlock visits every block from the tip to genesis. Returning
// storage.ErrStop from fn ends the walk without an error.
func (c *Chain) ForEachBlock(fn func(block database.Block) error) error {
	iter := c.Iterator()
	for !iter.Done() {
		block, err := iter.Next()
		if err != nil {
			if errors.Is(err, storage.ErrEndOfChain) {
				return nil
			}
			return err
		}

		if err := fn(block); err != nil {
			if errors.Is(err, storage.ErrStop) {
				return nil
			}
			return err
		}
	}

	return nil
}

// FindTransaction scans the chain for the transaction with the id.
func (c *Chain) FindTransaction(txID database.Hash) (database.Tx, error) {
	var found database.Tx
	var exists bool

	err := c.ForEachBlock(func(block database.Block) error {
		if found, exists = block.Tx(txID); exists {
			return storage.ErrStop
		}
		return nil
	})
	if err != nil {
		return database.Tx{}, err
	}

	if !exists {
		return database.Tx{}, fmt.Errorf("%w: %s", ErrTxNotFound, txID)
	}

	return found, nil
}

// FindPriorTransactions returns every transaction the inputs of tx refer
// to, keyed by id, found with a single walk of the chain.
func (c *Chain) FindPriorTransactions(tx database.Tx) (map[database.Hash]database.Tx, error) {
	priors := make(map[database.Hash]database.Tx)
	if tx.IsCoinbase() {
		return priors, nil
	}

	needed := make(map[database.Hash]bool)
	for _, in := range tx.Inputs {
		needed[in.TxID] = true
	}

	err := c.ForEachBlock(func(block database.Block) error {
		for _, btx := range block.Trans {
			if needed[btx.ID] {
				priors[btx.ID] = btx
				delete(needed, btx.ID)
			}
		}

		if len(needed) == 0 {
			return storage.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(needed) > 0 {
		missing := make([]string, 0, len(needed))
		for txID := range needed {
			missing = append(missing, txID.String())
		}
		slices.Sort(missing)

		return nil, fmt.Errorf("%w: %w: %s", database.ErrMissingPriorTx, ErrTxNotFound, strings.Join(missing, ", "))
	}

	return priors, nil
}

// Balance returns the sum of the unspent outputs locked to the public key
// hash.
func (c *Chain) Balance(pubKeyHash []byte) (int64, error) {
	return c.index.Balance(pubKeyHash)
}

// UTXOs returns the unspent outputs locked to the public key hash.
func (c *Chain) UTXOs(pubKeyHash []byte) ([]utxo.Spendable, error) {
	return c.index.FindUTXOs(pubKeyHash)
}

// Stats returns the number of index entries and the value they hold.
func (c *Chain) Stats() (int, int64, error) {
	count, err := c.index.CountTransactions()
	if err != nil {
		return 0, 0, err
	}

	total, err := c.index.TotalValue()
	if err != nil {
		return 0, 0, err
	}

	return count, total, nil
}

// Reindex rebuilds the unspent output index from the chain and returns the
// number of entries written.
func (c *Chain) Reindex(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tip, err := c.Tip()
	if err != nil {
		return 0, err
	}

	c.evHandler("chain: Reindex: started: tip[%s]", tip)

	var count int
	err = c.storage.Update(func(w storage.Writer) error {
		var err error
		count, err = utxo.Reindex(w, tip)
		return err
	})
	if err != nil {
		return 0, err
	}

	c.evHandler("chain: Reindex: completed: entries[%d]", count)

	return count, nil
}

// NewBlockReport checks the proof of work, stored hash, and merkle root of
// the block. The proof of work only counts when the block was mined at the
// chain's target bits.
func NewBlockReport(block database.Block, targetBits uint64) BlockReport {
	return BlockReport{
		Block:       block,
		ValidPOW:    block.Header.TargetBits == targetBits && block.ValidatePOW(),
		ValidHash:   block.ValidateHash(),
		ValidMerkle: block.ValidateMerkle() == nil,
	}
}

// Blocks returns every block from the tip to genesis with the result of
// checking its proof of work, stored hash, and merkle root.
func (c *Chain) Blocks() ([]BlockReport, error) {
	var reports []BlockReport

	err := c.ForEachBlock(func(block database.Block) error {
		reports = append(reports, NewBlockReport(block, c.genesis.TargetBits))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reports, nil
}

// ValidateChain audits the chain from the tip to genesis. Every block must
// be mined at the chain's target bits, be internally valid, link to a stored
// parent, and the walk must end at a genesis block.
func (c *Chain) ValidateChain() error {
	tip, err := c.Tip()
	if err != nil {
		return err
	}

	expected := tip
	var last database.Block

	err = c.ForEachBlock(func(block database.Block) error {
		if block.Hash != expected {
			return fmt.Errorf("%w: block %s stored under %s", database.ErrInvalidBlock, block.Hash, expected)
		}

		if block.Header.TargetBits != c.genesis.TargetBits {
			return fmt.Errorf("%w: block %s mined at target bits %d, chain requires %d", database.ErrInvalidBlock, block.Hash, block.Header.TargetBits, c.genesis.TargetBits)
		}

		if err := block.Validate(); err != nil {
			return err
		}

		expected = block.Header.PrevBlockHash
		last = block
		return nil
	})
	if err != nil {
		return err
	}

	if !last.IsGenesis() || last.Hash.IsZero() {
		return fmt.Errorf("%w: chain does not reach genesis, missing block %s", database.ErrInvalidBlock, expected)
	}

	return nil
}
