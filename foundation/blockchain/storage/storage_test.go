package storage_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/storage"
	"github.com/utxoledger/ledger/foundation/blockchain/storage/leveldb"
	"github.com/utxoledger/ledger/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Storage(t *testing.T) {
	type table struct {
		name string
		open func(t *testing.T) storage.Storage
	}

	tt := []table{
		{
			name: "memory",
			open: func(t *testing.T) storage.Storage {
				return memory.New()
			},
		},
		{
			name: "leveldb",
			open: func(t *testing.T) storage.Storage {
				db, err := leveldb.New(filepath.Join(t.TempDir(), "ledger"), t.Logf)
				if err != nil {
					t.Fatalf("Should be able to open leveldb: %v", err)
				}
				return db
			},
		},
	}

	t.Log("Given the need to persist blocks and the unspent index.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				strg := tst.open(t)
				defer strg.Close()

				t.Logf("\tTest %d:\tWhen using the %s store.", testID, tst.name)
				{
					if _, err := strg.Tip(); !errors.Is(err, storage.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould not have a tip in a new store, got %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould not have a tip in a new store.", success, testID)

					genesis := block(database.ZeroHash, 1)
					next := block(genesis.Hash, 2)

					err := strg.Update(func(w storage.Writer) error {
						if err := w.PutBlock(genesis); err != nil {
							return err
						}
						if err := w.PutBlock(next); err != nil {
							return err
						}
						if err := w.PutUTXOs(hash(9), []database.UTXO{{Index: 1, Output: database.TxOutput{Value: 3}}}); err != nil {
							return err
						}
						if err := w.PutUTXOs(hash(4), []database.UTXO{{Index: 0, Output: database.TxOutput{Value: 7}}}); err != nil {
							return err
						}

						if _, err := w.Block(next.Hash); err != nil {
							return err
						}

						return w.SetTip(next.Hash)
					})
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to write and read back in the same update.", success, testID)

					tip, err := strg.Tip()
					if err != nil || tip != next.Hash {
						t.Fatalf("\t%s\tTest %d:\tShould get the tip back, got %s: %v", failed, testID, tip, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get the tip back.", success, testID)

					got, err := strg.Block(next.Hash)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to read the block: %v", failed, testID, err)
					}
					if got.Header.PrevBlockHash != genesis.Hash || got.Header.Nonce != 2 {
						t.Fatalf("\t%s\tTest %d:\tShould get the same block back.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the same block back.", success, testID)

					var order []database.Hash
					err = strg.ForEachUTXO(func(txID database.Hash, utxos []database.UTXO) error {
						order = append(order, txID)
						return nil
					})
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to walk the index: %v", failed, testID, err)
					}
					if len(order) != 2 || order[0] != hash(4) || order[1] != hash(9) {
						t.Fatalf("\t%s\tTest %d:\tShould walk the index in ascending id order, got %v", failed, testID, order)
					}
					t.Logf("\t%s\tTest %d:\tShould walk the index in ascending id order.", success, testID)

					var visited int
					err = strg.ForEachUTXO(func(txID database.Hash, utxos []database.UTXO) error {
						visited++
						return storage.ErrStop
					})
					if err != nil || visited != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould stop the walk early, visited %d: %v", failed, testID, visited, err)
					}
					t.Logf("\t%s\tTest %d:\tShould stop the walk early.", success, testID)

					fail := errors.New("fail")
					err = strg.Update(func(w storage.Writer) error {
						if err := w.ClearUTXOs(); err != nil {
							return err
						}
						if err := w.SetTip(genesis.Hash); err != nil {
							return err
						}
						return fail
					})
					if !errors.Is(err, fail) {
						t.Fatalf("\t%s\tTest %d:\tShould get the update error back, got %v", failed, testID, err)
					}

					if tip, _ := strg.Tip(); tip != next.Hash {
						t.Fatalf("\t%s\tTest %d:\tShould keep the tip after a failed update.", failed, testID)
					}
					if _, err := strg.UTXOs(hash(4)); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould keep the index after a failed update: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould discard a failed update.", success, testID)

					err = strg.Update(func(w storage.Writer) error {
						if err := w.DeleteUTXOs(hash(9)); err != nil {
							return err
						}
						if _, err := w.UTXOs(hash(9)); !errors.Is(err, storage.ErrNotFound) {
							return errors.New("deleted entry still visible")
						}
						return w.ClearUTXOs()
					})
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to delete and clear: %v", failed, testID, err)
					}
					if _, err := strg.UTXOs(hash(4)); !errors.Is(err, storage.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould have an empty index after clearing, got %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to delete and clear.", success, testID)

					iter := storage.NewIterator(strg, next.Hash)
					var walked []database.Hash
					for !iter.Done() {
						b, err := iter.Next()
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to iterate: %v", failed, testID, err)
						}
						walked = append(walked, b.Hash)
					}
					if len(walked) != 2 || walked[0] != next.Hash || walked[1] != genesis.Hash {
						t.Fatalf("\t%s\tTest %d:\tShould walk from the tip to genesis.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould walk from the tip to genesis.", success, testID)

					orphan := storage.NewIterator(strg, hash(77))
					if _, err := orphan.Next(); !errors.Is(err, storage.ErrEndOfChain) || !orphan.Done() {
						t.Fatalf("\t%s\tTest %d:\tShould end the walk on a missing block, got %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould end the walk on a missing block.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_LevelDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")

	db, err := leveldb.New(path, nil)
	if err != nil {
		t.Fatalf("Should be able to open leveldb: %v", err)
	}

	genesis := block(database.ZeroHash, 1)
	err = db.Update(func(w storage.Writer) error {
		if err := w.PutBlock(genesis); err != nil {
			return err
		}
		return w.SetTip(genesis.Hash)
	})
	if err != nil {
		t.Fatalf("Should be able to write: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Should be able to close: %v", err)
	}

	db, err = leveldb.New(path, nil)
	if err != nil {
		t.Fatalf("Should be able to reopen leveldb: %v", err)
	}
	defer db.Close()

	tip, err := db.Tip()
	if err != nil || tip != genesis.Hash {
		t.Fatalf("Should get the tip back after reopening, got %s: %v", tip, err)
	}
}

// =============================================================================

func hash(b byte) database.Hash {
	var h database.Hash
	h[0] = b
	return h
}

func block(prev database.Hash, nonce uint64) database.Block {
	b := database.Block{
		Header: database.BlockHeader{
			PrevBlockHash: prev,
			TargetBits:    1,
			Nonce:         nonce,
		},
		Trans: []database.Tx{{ID: hash(byte(nonce))}},
	}
	b.Hash = b.ComputeHash()

	return b
}
