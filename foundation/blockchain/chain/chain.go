// Package chain is the core API for the ledger and implements the business
// rules for appending blocks, querying history, and maintaining the unspent
// output index.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/genesis"
	"github.com/utxoledger/ledger/foundation/blockchain/storage"
	"github.com/utxoledger/ledger/foundation/blockchain/utxo"
)

// Set of error variables for the chain.
var (
	ErrMissingTip  = errors.New("no existing blockchain found, create one first")
	ErrTxNotFound  = errors.New("transaction not found")
	ErrDoubleSpend = errors.New("output already spent")
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to open the chain.
type Config struct {
	Storage   storage.Storage
	Genesis   genesis.Genesis
	EvHandler EventHandler
}

// Chain manages the blockchain database. Writes are serialized, reads go
// straight to the store.
type Chain struct {
	mu        sync.Mutex
	storage   storage.Storage
	genesis   genesis.Genesis
	index     *utxo.Index
	evHandler EventHandler
}

// Create opens the chain held by the store, or when the store is empty, mines
// the genesis block paying the subsidy to the specified public key hash.
func Create(ctx context.Context, cfg Config, genesisTo []byte) (*Chain, error) {
	c := newChain(cfg)

	if _, err := c.storage.Tip(); err == nil {
		c.evHandler("chain: Create: chain exists, opening")
		return c, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	c.evHandler("chain: Create: mining genesis block")

	coinbase, err := database.NewCoinbaseTx(genesisTo, c.genesis.Memo, c.genesis.Subsidy)
	if err != nil {
		return nil, fmt.Errorf("genesis coinbase: %w", err)
	}

	block, err := database.POW(ctx, database.ZeroHash, []database.Tx{coinbase}, c.genesis.TargetBits, c.evHandler)
	if err != nil {
		return nil, fmt.Errorf("mining genesis: %w", err)
	}

	err = c.storage.Update(func(w storage.Writer) error {
		if err := w.PutBlock(block); err != nil {
			return err
		}

		if err := w.SetTip(block.Hash); err != nil {
			return err
		}

		_, err := utxo.Reindex(w, block.Hash)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("writing genesis: %w", err)
	}

	c.evHandler("chain: Create: genesis block[%s]", block.Hash)

	return c, nil
}

// Open provides access to an existing chain. ErrMissingTip is returned when
// the store holds no chain.
func Open(cfg Config) (*Chain, error) {
	c := newChain(cfg)

	if _, err := c.storage.Tip(); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMissingTip
		}
		return nil, err
	}

	return c, nil
}

// Close releases the store.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.storage.Close()
}

// Genesis returns the genesis settings the chain runs with.
func (c *Chain) Genesis() genesis.Genesis {
	return c.genesis
}

// Tip returns the hash of the last block in the chain.
func (c *Chain) Tip() (database.Hash, error) {
	tip, err := c.storage.Tip()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return database.Hash{}, ErrMissingTip
		}
		return database.Hash{}, err
	}

	return tip, nil
}

// =============================================================================

func newChain(cfg Config) *Chain {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	g := cfg.Genesis
	if g.Subsidy == 0 && g.TargetBits == 0 {
		g = genesis.Default()
	}

	return &Chain{
		storage:   cfg.Storage,
		genesis:   g,
		index:     utxo.New(cfg.Storage),
		evHandler: ev,
	}
}
