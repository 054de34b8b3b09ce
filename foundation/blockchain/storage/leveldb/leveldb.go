// Package leveldb implements the storage interface on top of goleveldb.
// Blocks are stored under "b-<hash>", the tip under "l", and index entries
// under "u-<txid>". Updates run inside a leveldb transaction.
package leveldb

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/storage"
)

var (
	blockPrefix = []byte("b-")
	utxoPrefix  = []byte("u-")
	tipKey      = []byte("l")
)

// Options returns the options used to open the database. It's defined as a
// variable for the sake of testing.
var Options = func() *opt.Options {
	return &opt.Options{
		Compression: opt.SnappyCompression,
	}
}

// =============================================================================

// getter is the read behavior shared by the database and a transaction.
type getter interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// LevelDB represents the storage implementation backed by leveldb. This
// implements the storage.Storage interface.
type LevelDB struct {
	ldb *leveldb.DB
}

// New opens the database at the path, creating it if it doesn't exist. A
// corrupted database is recovered before use.
func New(path string, ev func(v string, args ...any)) (*LevelDB, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ldb, err := leveldb.OpenFile(path, Options())

	if ldberrors.IsCorrupted(err) {
		ev("leveldb: New: corruption detected: path[%s]: %s", path, err)

		ldb, err = leveldb.RecoverFile(path, Options())
		if err != nil {
			return nil, errors.Wrapf(err, "recovering leveldb at %s", path)
		}

		ev("leveldb: New: recovered from corruption: path[%s]", path)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", path)
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close releases the database.
func (db *LevelDB) Close() error {
	return errors.Wrap(db.ldb.Close(), "closing leveldb")
}

// Update runs fn inside a leveldb transaction. The transaction is committed
// when fn succeeds and discarded otherwise.
func (db *LevelDB) Update(fn func(w storage.Writer) error) error {
	tr, err := db.ldb.OpenTransaction()
	if err != nil {
		return errors.Wrap(err, "opening transaction")
	}

	if err := fn(&writer{tr: tr}); err != nil {
		tr.Discard()
		return err
	}

	if err := tr.Commit(); err != nil {
		tr.Discard()
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}

// Tip returns the hash of the last block in the chain.
func (db *LevelDB) Tip() (database.Hash, error) {
	return getTip(db.ldb)
}

// Block returns the block stored for the hash.
func (db *LevelDB) Block(hash database.Hash) (database.Block, error) {
	return getBlock(db.ldb, hash)
}

// UTXOs returns the index entry for the transaction.
func (db *LevelDB) UTXOs(txID database.Hash) ([]database.UTXO, error) {
	return getUTXOs(db.ldb, txID)
}

// ForEachUTXO visits every index entry in ascending transaction id order.
func (db *LevelDB) ForEachUTXO(fn func(txID database.Hash, utxos []database.UTXO) error) error {
	snap, err := db.ldb.GetSnapshot()
	if err != nil {
		return errors.Wrap(err, "getting snapshot")
	}
	defer snap.Release()

	return forEachUTXO(snap, fn)
}

// =============================================================================

// writer implements storage.Writer over an open transaction.
type writer struct {
	tr *leveldb.Transaction
}

func (w *writer) Tip() (database.Hash, error) {
	return getTip(w.tr)
}

func (w *writer) Block(hash database.Hash) (database.Block, error) {
	return getBlock(w.tr, hash)
}

func (w *writer) UTXOs(txID database.Hash) ([]database.UTXO, error) {
	return getUTXOs(w.tr, txID)
}

func (w *writer) ForEachUTXO(fn func(txID database.Hash, utxos []database.UTXO) error) error {
	return forEachUTXO(w.tr, fn)
}

func (w *writer) SetTip(hash database.Hash) error {
	return errors.Wrap(w.tr.Put(tipKey, hash.Bytes(), nil), "writing tip")
}

func (w *writer) PutBlock(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return errors.Wrapf(err, "encoding block %s", block.Hash)
	}

	return errors.Wrapf(w.tr.Put(key(blockPrefix, block.Hash), data, nil), "writing block %s", block.Hash)
}

func (w *writer) PutUTXOs(txID database.Hash, utxos []database.UTXO) error {
	data, err := json.Marshal(utxos)
	if err != nil {
		return errors.Wrapf(err, "encoding utxos %s", txID)
	}

	return errors.Wrapf(w.tr.Put(key(utxoPrefix, txID), data, nil), "writing utxos %s", txID)
}

func (w *writer) DeleteUTXOs(txID database.Hash) error {
	return errors.Wrapf(w.tr.Delete(key(utxoPrefix, txID), nil), "deleting utxos %s", txID)
}

func (w *writer) ClearUTXOs() error {
	var keys [][]byte

	iter := w.tr.NewIterator(util.BytesPrefix(utxoPrefix), nil)
	for iter.Next() {
		keys = append(keys, bytes.Clone(iter.Key()))
	}
	iter.Release()

	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "iterating utxos")
	}

	for _, k := range keys {
		if err := w.tr.Delete(k, nil); err != nil {
			return errors.Wrap(err, "clearing utxos")
		}
	}

	return nil
}

// =============================================================================

func key(prefix []byte, hash database.Hash) []byte {
	k := make([]byte, 0, len(prefix)+database.HashLength)
	k = append(k, prefix...)
	return append(k, hash[:]...)
}

func getTip(g getter) (database.Hash, error) {
	data, err := g.Get(tipKey, nil)
	if err != nil {
		return database.Hash{}, notFound(err, "tip")
	}

	if len(data) != database.HashLength {
		return database.Hash{}, errors.Errorf("tip has invalid length %d", len(data))
	}

	var hash database.Hash
	copy(hash[:], data)
	return hash, nil
}

func getBlock(g getter, hash database.Hash) (database.Block, error) {
	data, err := g.Get(key(blockPrefix, hash), nil)
	if err != nil {
		return database.Block{}, notFound(err, "block "+hash.String())
	}

	var block database.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return database.Block{}, errors.Wrapf(err, "decoding block %s", hash)
	}

	return block, nil
}

func getUTXOs(g getter, txID database.Hash) ([]database.UTXO, error) {
	data, err := g.Get(key(utxoPrefix, txID), nil)
	if err != nil {
		return nil, notFound(err, "utxos "+txID.String())
	}

	var utxos []database.UTXO
	if err := json.Unmarshal(data, &utxos); err != nil {
		return nil, errors.Wrapf(err, "decoding utxos %s", txID)
	}

	return utxos, nil
}

func forEachUTXO(g getter, fn func(txID database.Hash, utxos []database.UTXO) error) error {
	iter := g.NewIterator(util.BytesPrefix(utxoPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		k := iter.Key()
		if len(k) != len(utxoPrefix)+database.HashLength {
			return errors.Errorf("utxo key has invalid length %d", len(k))
		}

		var txID database.Hash
		copy(txID[:], k[len(utxoPrefix):])

		var utxos []database.UTXO
		if err := json.Unmarshal(iter.Value(), &utxos); err != nil {
			return errors.Wrapf(err, "decoding utxos %s", txID)
		}

		if err := fn(txID, utxos); err != nil {
			if errors.Is(err, storage.ErrStop) {
				return nil
			}
			return err
		}
	}

	return errors.Wrap(iter.Error(), "iterating utxos")
}

// notFound maps the leveldb not found error to storage.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, leveldb.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}

	return errors.Wrapf(err, "reading %s", what)
}
