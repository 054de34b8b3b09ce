package database

import (
	"context"
	"fmt"
	"time"

	"github.com/utxoledger/ledger/foundation/blockchain/merkle"
	"github.com/utxoledger/ledger/foundation/blockchain/pow"
)

// BlockHeader represents the committed information for each block.
type BlockHeader struct {
	PrevBlockHash Hash   `json:"prev_block_hash"` // Hash of the previous block, zero for genesis.
	MerkleRoot    Hash   `json:"merkle_root"`     // Root of the merkle tree over the transaction ids.
	TimeStamp     int64  `json:"timestamp"`       // Unix seconds when the block was mined.
	TargetBits    uint64 `json:"target_bits"`     // Difficulty the hash must satisfy.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the hash solution.
}

// Block represents a group of transactions sealed by proof of work.
type Block struct {
	Hash   Hash        `json:"hash"`
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// POW constructs a new block over the transactions and performs the work to
// find the first nonce that solves the puzzle.
func POW(ctx context.Context, prevBlockHash Hash, trans []Tx, targetBits uint64, ev func(v string, args ...any)) (Block, error) {
	if len(trans) == 0 {
		return Block{}, ErrNoTransactions
	}

	if !pow.ValidTargetBits(targetBits) {
		return Block{}, fmt.Errorf("%w: target bits %d out of range", ErrInvalidBlock, targetBits)
	}

	root, err := MerkleRoot(trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: BlockHeader{
			PrevBlockHash: prevBlockHash,
			MerkleRoot:    root,
			TimeStamp:     time.Now().UTC().Unix(),
			TargetBits:    targetBits,
		},
		Trans: trans,
	}

	if ev != nil {
		for _, tx := range trans {
			ev("database: POW: MINING: tx[%s]", tx)
		}
	}

	nonce, hash, err := pow.Mine(ctx, nb.Header.powHeader(), ev)
	if err != nil {
		return Block{}, err
	}

	nb.Header.Nonce = nonce
	nb.Hash = hash

	return nb, nil
}

// IsGenesis reports if the block has no parent.
func (b Block) IsGenesis() bool {
	return b.Header.PrevBlockHash.IsZero()
}

// ComputeHash recomputes the proof of work digest from the header.
func (b Block) ComputeHash() Hash {
	return pow.Digest(b.Header.powHeader())
}

// ValidatePOW recomputes the digest with the stored nonce and reports if it
// satisfies the target.
func (b Block) ValidatePOW() bool {
	return pow.Validate(b.Header.powHeader())
}

// ValidateHash reports if the stored hash matches the header.
func (b Block) ValidateHash() bool {
	return b.ComputeHash() == b.Hash
}

// ValidateMerkle recomputes the merkle root over the transactions and
// compares it with the header.
func (b Block) ValidateMerkle() error {
	if len(b.Trans) == 0 {
		return ErrNoTransactions
	}

	root, err := MerkleRoot(b.Trans)
	if err != nil {
		return err
	}

	if root != b.Header.MerkleRoot {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.Header.MerkleRoot)
	}

	return nil
}

// Validate checks the block is internally consistent: the merkle root
// commits to the transactions, the stored hash matches the header, and the
// proof of work is satisfied.
func (b Block) Validate() error {
	if err := b.ValidateMerkle(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	if !b.ValidateHash() {
		return fmt.Errorf("%w: stored hash %s does not match header %s", ErrInvalidBlock, b.Hash, b.ComputeHash())
	}

	if !b.ValidatePOW() {
		return fmt.Errorf("%w: %s does not satisfy target bits %d", ErrInvalidBlock, b.Hash, b.Header.TargetBits)
	}

	return nil
}

// Tx locates a transaction inside the block by id.
func (b Block) Tx(id Hash) (Tx, bool) {
	for _, tx := range b.Trans {
		if tx.ID == id {
			return tx, true
		}
	}

	return Tx{}, false
}

// =============================================================================

// MerkleRoot returns the root of the merkle tree over the transaction ids in
// block order.
func MerkleRoot(trans []Tx) (Hash, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Hash{}, err
	}

	var root Hash
	copy(root[:], tree.Root())
	return root, nil
}

func (bh BlockHeader) powHeader() pow.Header {
	return pow.Header{
		PrevBlockHash: bh.PrevBlockHash,
		MerkleRoot:    bh.MerkleRoot,
		TimeStamp:     bh.TimeStamp,
		TargetBits:    bh.TargetBits,
		Nonce:         bh.Nonce,
	}
}
