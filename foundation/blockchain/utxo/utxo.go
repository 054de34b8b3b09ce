// Package utxo maintains the index of unspent transaction outputs. The index
// maps a transaction id to the outputs of that transaction no later
// transaction in the chain has spent. It can be rebuilt from the chain and
// is updated incrementally as blocks are appended.
package utxo

import (
	"errors"
	"fmt"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/storage"
)

// ErrUTXONotFound is returned when a block spends an output the index does
// not hold.
var ErrUTXONotFound = errors.New("utxo not found")

// Spendable represents an unspent output and where to find it.
type Spendable struct {
	OutPoint database.OutPoint `json:"outpoint"`
	Output   database.TxOutput `json:"output"`
}

// Set is a list of unspent outputs fetched from a node, kept in the order
// the node returned them. It lets a client build a spend without access to
// the index.
type Set []Spendable

// FindSpendableOutputs selects outputs from the set locked to the public key
// hash, in order, stopping as soon as the accumulated value reaches the
// amount.
func (s Set) FindSpendableOutputs(pubKeyHash []byte, amount int64) (int64, []database.OutPoint, error) {
	var accumulated int64
	var ops []database.OutPoint

	for _, sp := range s {
		if !sp.Output.IsLockedWithKey(pubKeyHash) {
			continue
		}

		var err error
		if accumulated, err = database.AddValue(accumulated, sp.Output.Value); err != nil {
			return 0, nil, err
		}
		ops = append(ops, sp.OutPoint)

		if accumulated >= amount {
			break
		}
	}

	return accumulated, ops, nil
}

// =============================================================================

// Index provides queries over the unspent output index.
type Index struct {
	reader storage.Reader
}

// New constructs an index reading from the specified store.
func New(reader storage.Reader) *Index {
	return &Index{reader: reader}
}

// FindSpendableOutputs selects outputs locked to the public key hash in
// ascending transaction id order, stopping as soon as the accumulated value
// reaches the amount. The accumulated value can be below the amount when the
// owner can't cover it.
func (idx *Index) FindSpendableOutputs(pubKeyHash []byte, amount int64) (int64, []database.OutPoint, error) {
	var accumulated int64
	var ops []database.OutPoint

	err := idx.reader.ForEachUTXO(func(txID database.Hash, utxos []database.UTXO) error {
		for _, u := range utxos {
			if !u.Output.IsLockedWithKey(pubKeyHash) {
				continue
			}

			var err error
			if accumulated, err = database.AddValue(accumulated, u.Output.Value); err != nil {
				return err
			}
			ops = append(ops, database.OutPoint{TxID: txID, Index: u.Index})

			if accumulated >= amount {
				return storage.ErrStop
			}
		}

		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return accumulated, ops, nil
}

// FindUTXOs returns every unspent output locked to the public key hash.
func (idx *Index) FindUTXOs(pubKeyHash []byte) ([]Spendable, error) {
	var spendable []Spendable

	err := idx.reader.ForEachUTXO(func(txID database.Hash, utxos []database.UTXO) error {
		for _, u := range utxos {
			if u.Output.IsLockedWithKey(pubKeyHash) {
				spendable = append(spendable, Spendable{
					OutPoint: database.OutPoint{TxID: txID, Index: u.Index},
					Output:   u.Output,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return spendable, nil
}

// Balance returns the sum of the unspent outputs locked to the public key
// hash.
func (idx *Index) Balance(pubKeyHash []byte) (int64, error) {
	spendable, err := idx.FindUTXOs(pubKeyHash)
	if err != nil {
		return 0, err
	}

	var balance int64
	for _, s := range spendable {
		if balance, err = database.AddValue(balance, s.Output.Value); err != nil {
			return 0, err
		}
	}

	return balance, nil
}

// CountTransactions returns the number of transactions with at least one
// unspent output.
func (idx *Index) CountTransactions() (int, error) {
	var count int

	err := idx.reader.ForEachUTXO(func(database.Hash, []database.UTXO) error {
		count++
		return nil
	})

	return count, err
}

// TotalValue returns the sum of every unspent output in the index.
func (idx *Index) TotalValue() (int64, error) {
	var total int64

	err := idx.reader.ForEachUTXO(func(_ database.Hash, utxos []database.UTXO) error {
		for _, u := range utxos {
			var err error
			if total, err = database.AddValue(total, u.Output.Value); err != nil {
				return err
			}
		}
		return nil
	})

	return total, err
}

// =============================================================================

// Reindex clears the index and rebuilds it by walking the chain from the
// tip. The first walk collects every spent output, the second writes the
// outputs nothing spent. It returns the number of index entries written.
func Reindex(w storage.Writer, tip database.Hash) (int, error) {
	spent := make(map[database.OutPoint]bool)

	err := walk(w, tip, func(tx database.Tx) error {
		for _, op := range tx.OutPoints() {
			spent[op] = true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := w.ClearUTXOs(); err != nil {
		return 0, fmt.Errorf("clearing index: %w", err)
	}

	var count int
	err = walk(w, tip, func(tx database.Tx) error {
		var utxos []database.UTXO
		for i, out := range tx.Outputs {
			if spent[database.OutPoint{TxID: tx.ID, Index: int32(i)}] {
				continue
			}
			utxos = append(utxos, database.UTXO{Index: int32(i), Output: out})
		}

		if len(utxos) == 0 {
			return nil
		}

		count++
		return w.PutUTXOs(tx.ID, utxos)
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Update applies a newly appended block to the index. Every output a
// transaction spends is removed from its entry, dropping the entry when it
// empties, and the transaction's own outputs are added. Transactions are
// applied in block order. Every spent output must already be in the index,
// the chain only accepts spends of outputs from committed blocks.
func Update(w storage.Writer, block database.Block) error {
	for _, tx := range block.Trans {
		for _, op := range tx.OutPoints() {
			if err := spend(w, op); err != nil {
				return fmt.Errorf("tx %s: %w", tx.ID, err)
			}
		}

		utxos := make([]database.UTXO, len(tx.Outputs))
		for i, out := range tx.Outputs {
			utxos[i] = database.UTXO{Index: int32(i), Output: out}
		}

		if len(utxos) > 0 {
			if err := w.PutUTXOs(tx.ID, utxos); err != nil {
				return err
			}
		}
	}

	return nil
}

// =============================================================================

// spend removes the output from its index entry.
func spend(w storage.Writer, op database.OutPoint) error {
	utxos, err := w.UTXOs(op.TxID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUTXONotFound, op)
		}
		return err
	}

	remaining := make([]database.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Index != op.Index {
			remaining = append(remaining, u)
		}
	}

	if len(remaining) == len(utxos) {
		return fmt.Errorf("%w: %s", ErrUTXONotFound, op)
	}

	if len(remaining) == 0 {
		return w.DeleteUTXOs(op.TxID)
	}

	return w.PutUTXOs(op.TxID, remaining)
}

// walk visits every transaction in the chain from the tip back to genesis.
func walk(r storage.Reader, tip database.Hash, fn func(tx database.Tx) error) error {
	iter := storage.NewIterator(r, tip)
	for !iter.Done() {
		block, err := iter.Next()
		if err != nil {
			if errors.Is(err, storage.ErrEndOfChain) {
				break
			}
			return err
		}

		for _, tx := range block.Trans {
			if err := fn(tx); err != nil {
				return err
			}
		}
	}

	return nil
}
