// Package memory implements the storage interface in memory. Values are kept
// in their encoded form so callers never share memory with the store.
package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/storage"
)

// Memory represents the storage implementation for keeping the chain in
// memory. This implements the storage.Storage interface.
type Memory struct {
	mu    sync.RWMutex
	state state
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		state: newState(),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Update applies fn to a copy of the current state and swaps the copy in
// only when fn succeeds.
func (m *Memory) Update(fn func(w storage.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpy := m.state.clone()
	if err := fn(&cpy); err != nil {
		return err
	}

	m.state = cpy
	return nil
}

// Tip returns the hash of the last block in the chain.
func (m *Memory) Tip() (database.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Tip()
}

// Block returns the block stored for the hash.
func (m *Memory) Block(hash database.Hash) (database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Block(hash)
}

// UTXOs returns the index entry for the transaction.
func (m *Memory) UTXOs(txID database.Hash) ([]database.UTXO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.UTXOs(txID)
}

// ForEachUTXO visits every index entry in ascending transaction id order.
func (m *Memory) ForEachUTXO(fn func(txID database.Hash, utxos []database.UTXO) error) error {
	m.mu.RLock()
	st := m.state.clone()
	m.mu.RUnlock()

	return st.ForEachUTXO(fn)
}

// =============================================================================

// state is a snapshot of the store. It implements storage.Writer for use
// inside an update.
type state struct {
	tip    database.Hash
	hasTip bool
	blocks map[database.Hash][]byte
	utxos  map[database.Hash][]byte
}

func newState() state {
	return state{
		blocks: make(map[database.Hash][]byte),
		utxos:  make(map[database.Hash][]byte),
	}
}

// clone copies the maps. The encoded values are never modified in place so
// they can be shared between snapshots.
func (s state) clone() state {
	return state{
		tip:    s.tip,
		hasTip: s.hasTip,
		blocks: maps.Clone(s.blocks),
		utxos:  maps.Clone(s.utxos),
	}
}

func (s *state) Tip() (database.Hash, error) {
	if !s.hasTip {
		return database.Hash{}, fmt.Errorf("tip: %w", storage.ErrNotFound)
	}

	return s.tip, nil
}

func (s *state) Block(hash database.Hash) (database.Block, error) {
	data, exists := s.blocks[hash]
	if !exists {
		return database.Block{}, fmt.Errorf("block %s: %w", hash, storage.ErrNotFound)
	}

	var block database.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return database.Block{}, fmt.Errorf("decoding block %s: %w", hash, err)
	}

	return block, nil
}

func (s *state) UTXOs(txID database.Hash) ([]database.UTXO, error) {
	data, exists := s.utxos[txID]
	if !exists {
		return nil, fmt.Errorf("utxos %s: %w", txID, storage.ErrNotFound)
	}

	var utxos []database.UTXO
	if err := json.Unmarshal(data, &utxos); err != nil {
		return nil, fmt.Errorf("decoding utxos %s: %w", txID, err)
	}

	return utxos, nil
}

func (s *state) ForEachUTXO(fn func(txID database.Hash, utxos []database.UTXO) error) error {
	keys := slices.SortedFunc(maps.Keys(s.utxos), func(a, b database.Hash) int {
		return bytes.Compare(a[:], b[:])
	})

	for _, txID := range keys {
		utxos, err := s.UTXOs(txID)
		if err != nil {
			return err
		}

		if err := fn(txID, utxos); err != nil {
			if errors.Is(err, storage.ErrStop) {
				return nil
			}
			return err
		}
	}

	return nil
}

func (s *state) SetTip(hash database.Hash) error {
	s.tip = hash
	s.hasTip = true
	return nil
}

func (s *state) PutBlock(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encoding block %s: %w", block.Hash, err)
	}

	s.blocks[block.Hash] = data
	return nil
}

func (s *state) PutUTXOs(txID database.Hash, utxos []database.UTXO) error {
	data, err := json.Marshal(utxos)
	if err != nil {
		return fmt.Errorf("encoding utxos %s: %w", txID, err)
	}

	s.utxos[txID] = data
	return nil
}

func (s *state) DeleteUTXOs(txID database.Hash) error {
	delete(s.utxos, txID)
	return nil
}

func (s *state) ClearUTXOs() error {
	s.utxos = make(map[database.Hash][]byte)
	return nil
}
