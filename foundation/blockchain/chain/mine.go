package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/storage"
	"github.com/utxoledger/ledger/foundation/blockchain/utxo"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

// MineBlock verifies the transactions, seals them into a new block on top
// of the tip, and appends it. The block, the new tip, and the index changes
// are written in a single update. Nothing is written when any step fails.
func (c *Chain) MineBlock(ctx context.Context, trans []database.Tx) (database.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mineBlock(ctx, trans)
}

// NewSpendTx builds a transaction moving amount from the owner of the
// private key to the public key hash and signs every input.
func (c *Chain) NewSpendTx(privateKey *ecdsa.PrivateKey, to []byte, amount int64) (database.Tx, error) {
	tx, err := database.NewSpendTx(wallet.PublicKeyBytes(privateKey), to, amount, c.index)
	if err != nil {
		return database.Tx{}, err
	}

	priors, err := c.FindPriorTransactions(tx)
	if err != nil {
		return database.Tx{}, err
	}

	if err := tx.Sign(privateKey, priors); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}

// Send moves amount from the owner of the private key to the public key hash
// and mines the transaction into a block with a coinbase paying the subsidy
// to the miner.
func (c *Chain) Send(ctx context.Context, privateKey *ecdsa.PrivateKey, to []byte, amount int64, miner []byte) (database.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.NewSpendTx(privateKey, to, amount)
	if err != nil {
		return database.Block{}, err
	}

	return c.mineWithReward(ctx, tx, miner)
}

// SubmitTx mines a transaction built and signed elsewhere into a block with
// a coinbase paying the subsidy to the miner.
func (c *Chain) SubmitTx(ctx context.Context, tx database.Tx, miner []byte) (database.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tx.IsCoinbase() {
		return database.Block{}, fmt.Errorf("%w: coinbase can't be submitted", database.ErrInvalidTransaction)
	}

	return c.mineWithReward(ctx, tx, miner)
}

// =============================================================================

func (c *Chain) mineWithReward(ctx context.Context, tx database.Tx, miner []byte) (database.Block, error) {
	reward, err := database.NewCoinbaseTx(miner, "", c.genesis.Subsidy)
	if err != nil {
		return database.Block{}, fmt.Errorf("reward: %w", err)
	}

	return c.mineBlock(ctx, []database.Tx{tx, reward})
}

func (c *Chain) mineBlock(ctx context.Context, trans []database.Tx) (database.Block, error) {
	if len(trans) == 0 {
		return database.Block{}, database.ErrNoTransactions
	}

	c.evHandler("chain: MineBlock: validate: trans[%d]", len(trans))

	if err := c.validateTransactions(trans); err != nil {
		c.evHandler("chain: MineBlock: validate: ERROR: %s", err)
		return database.Block{}, err
	}

	tip, err := c.Tip()
	if err != nil {
		return database.Block{}, err
	}

	block, err := database.POW(ctx, tip, trans, c.genesis.TargetBits, c.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	err = c.storage.Update(func(w storage.Writer) error {
		if err := w.PutBlock(block); err != nil {
			return err
		}

		if err := w.SetTip(block.Hash); err != nil {
			return err
		}

		return utxo.Update(w, block)
	})
	if err != nil {
		return database.Block{}, fmt.Errorf("appending block %s: %w", block.Hash, err)
	}

	c.evHandler("chain: MineBlock: appended: blk[%s]: prevBlk[%s]: trans[%d]", block.Hash, tip, len(block.Trans))

	return block, nil
}

// validateTransactions checks every transaction against the chain and the
// index. A block may hold at most one coinbase minting exactly the subsidy,
// and no output may be claimed twice or claimed after it was spent.
func (c *Chain) validateTransactions(trans []database.Tx) error {
	ids := make(map[database.Hash]bool)
	claimed := make(map[database.OutPoint]bool)
	var coinbases int

	for _, tx := range trans {
		if ids[tx.ID] {
			return fmt.Errorf("%w: duplicate tx %s", database.ErrInvalidTransaction, tx.ID)
		}
		ids[tx.ID] = true

		if tx.IsCoinbase() {
			coinbases++
			if err := c.validateCoinbase(tx, coinbases); err != nil {
				return err
			}
			continue
		}

		priors, err := c.FindPriorTransactions(tx)
		if err != nil {
			return fmt.Errorf("%w: tx %s: %w", database.ErrInvalidTransaction, tx.ID, err)
		}

		if err := tx.Verify(priors); err != nil {
			return fmt.Errorf("tx %s: %w", tx.ID, err)
		}

		for _, op := range tx.OutPoints() {
			if claimed[op] {
				return fmt.Errorf("%w: %w: %s claimed twice", database.ErrInvalidTransaction, ErrDoubleSpend, op)
			}
			claimed[op] = true

			unspent, err := c.isUnspent(op)
			if err != nil {
				return err
			}

			if !unspent {
				return fmt.Errorf("%w: %w: %s", database.ErrInvalidTransaction, ErrDoubleSpend, op)
			}
		}
	}

	return nil
}

func (c *Chain) validateCoinbase(tx database.Tx, count int) error {
	if count > 1 {
		return fmt.Errorf("%w: more than one coinbase", database.ErrInvalidTransaction)
	}

	if err := tx.ValidateID(); err != nil {
		return err
	}

	minted, err := tx.ValidateOutputs()
	if err != nil {
		return err
	}

	if minted != c.genesis.Subsidy {
		return fmt.Errorf("%w: coinbase mints %d, subsidy is %d", database.ErrInvalidTransaction, minted, c.genesis.Subsidy)
	}

	return nil
}

// isUnspent reports if the index still holds the output.
func (c *Chain) isUnspent(op database.OutPoint) (bool, error) {
	utxos, err := c.storage.UTXOs(op.TxID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	for _, u := range utxos {
		if u.Index == op.Index {
			return true, nil
		}
	}

	return false, nil
}
