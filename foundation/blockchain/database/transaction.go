package database

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/utxoledger/ledger/foundation/blockchain/signature"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

// CoinbaseIndex is the output index carried by the single input of a
// coinbase transaction.
const CoinbaseIndex = -1

// GenesisMemo is the memo placed in the coinbase of the genesis block.
const GenesisMemo = "The Times 03/Jan/2009 Chancellor on brink of second bailout for banks"

// =============================================================================

// TxInput represents a claim on an output of a prior transaction.
type TxInput struct {
	TxID        Hash   `json:"txid"`      // Transaction that produced the output being spent.
	OutputIndex int32  `json:"vout"`      // Position of the output inside that transaction.
	Signature   []byte `json:"signature"` // R||S over the signing digest for this input.
	PubKey      []byte `json:"pubkey"`    // Spender's public key, or the memo for a coinbase.
}

// UsesKey reports if the input was created with a key that hashes to the
// specified public key hash.
func (in TxInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(wallet.PublicKeyHash(in.PubKey), pubKeyHash)
}

// TxOutput represents an amount of value locked to a public key hash.
type TxOutput struct {
	Value      int64  `json:"value"`
	PubKeyHash []byte `json:"pubkey_hash"`
}

// NewTxOutput constructs an output locking the value to the address.
func NewTxOutput(value int64, address string) (TxOutput, error) {
	pubKeyHash, err := wallet.AddressToPubKeyHash(address)
	if err != nil {
		return TxOutput{}, err
	}

	return TxOutput{Value: value, PubKeyHash: pubKeyHash}, nil
}

// IsLockedWithKey reports if the output can be claimed by the owner of the
// specified public key hash.
func (out TxOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// =============================================================================

// Tx represents a transfer of value. Inputs spend outputs of prior
// transactions and outputs lock value to new owners.
type Tx struct {
	ID         Hash       `json:"id"`          // sha256 of the transaction with this field cleared.
	Inputs     []TxInput  `json:"inputs"`      // Claims on prior outputs.
	Outputs    []TxOutput `json:"outputs"`     // New value assignments.
	CreateTime int64      `json:"create_time"` // Unix milliseconds when the transaction was built.
}

// NewCoinbaseTx constructs the transaction that mints the subsidy to the
// specified public key hash. When memo is empty a default one is generated.
func NewCoinbaseTx(to []byte, memo string, subsidy int64) (Tx, error) {
	if len(to) != wallet.PubKeyHashLength {
		return Tx{}, fmt.Errorf("%w: receiver hash has length %d", ErrInvalidTransaction, len(to))
	}

	if subsidy <= 0 {
		return Tx{}, fmt.Errorf("%w: subsidy %d", ErrInvalidAmount, subsidy)
	}

	if memo == "" {
		nonce := make([]byte, 8)
		if _, err := rand.Read(nonce); err != nil {
			return Tx{}, fmt.Errorf("generating memo nonce: %w", err)
		}

		memo = fmt.Sprintf("Reward to '%s' %s", hex.EncodeToString(to), hex.EncodeToString(nonce))
	}

	tx := Tx{
		Inputs: []TxInput{
			{
				TxID:        ZeroHash,
				OutputIndex: CoinbaseIndex,
				PubKey:      []byte(memo),
			},
		},
		Outputs: []TxOutput{
			{
				Value:      subsidy,
				PubKeyHash: bytes.Clone(to),
			},
		},
		CreateTime: time.Now().UTC().UnixMilli(),
	}

	if err := tx.finalize(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// SpendableFinder locates enough unspent outputs owned by a public key hash
// to cover an amount.
type SpendableFinder interface {
	FindSpendableOutputs(pubKeyHash []byte, amount int64) (int64, []OutPoint, error)
}

// NewSpendTx constructs an unsigned transaction moving amount from the owner
// of the public key to the receiver's public key hash. Any excess selected is
// returned to the sender as change.
func NewSpendTx(pubKey []byte, to []byte, amount int64, finder SpendableFinder) (Tx, error) {
	if amount <= 0 {
		return Tx{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	if len(to) != wallet.PubKeyHashLength {
		return Tx{}, fmt.Errorf("%w: receiver hash has length %d", ErrInvalidTransaction, len(to))
	}

	from := wallet.PublicKeyHash(pubKey)

	accumulated, outPoints, err := finder.FindSpendableOutputs(from, amount)
	if err != nil {
		return Tx{}, err
	}

	if accumulated < amount {
		return Tx{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, accumulated, amount)
	}

	inputs := make([]TxInput, len(outPoints))
	for i, op := range outPoints {
		inputs[i] = TxInput{
			TxID:        op.TxID,
			OutputIndex: op.Index,
			PubKey:      bytes.Clone(pubKey),
		}
	}

	outputs := []TxOutput{
		{Value: amount, PubKeyHash: bytes.Clone(to)},
	}

	if change := accumulated - amount; change > 0 {
		outputs = append(outputs, TxOutput{Value: change, PubKeyHash: from})
	}

	tx := Tx{
		Inputs:     inputs,
		Outputs:    outputs,
		CreateTime: time.Now().UTC().UnixMilli(),
	}

	if err := tx.finalize(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// IsCoinbase reports if the transaction mints new value.
func (tx Tx) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].TxID.IsZero() && tx.Inputs[0].OutputIndex == CoinbaseIndex
}

// CalculateID returns the sha256 of the transaction with the ID cleared.
func (tx Tx) CalculateID() (Hash, error) {
	tx.ID = ZeroHash

	h, err := signature.Hash(tx)
	if err != nil {
		return Hash{}, fmt.Errorf("hashing tx: %w", err)
	}

	return Hash(h), nil
}

// ValidateID checks the stored ID matches the transaction content.
func (tx Tx) ValidateID() error {
	id, err := tx.CalculateID()
	if err != nil {
		return err
	}

	if id != tx.ID {
		return fmt.Errorf("%w: id %s does not match content %s", ErrInvalidTransaction, tx.ID, id)
	}

	return nil
}

// TrimmedCopy returns a deep copy of the transaction with the signature and
// public key of every input cleared.
func (tx Tx) TrimmedCopy() Tx {
	inputs := make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = TxInput{
			TxID:        in.TxID,
			OutputIndex: in.OutputIndex,
		}
	}

	outputs := make([]TxOutput, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputs[i] = TxOutput{
			Value:      out.Value,
			PubKeyHash: bytes.Clone(out.PubKeyHash),
		}
	}

	return Tx{
		ID:         tx.ID,
		Inputs:     inputs,
		Outputs:    outputs,
		CreateTime: tx.CreateTime,
	}
}

// SigningDigest returns the digest the input at index i commits to. It is
// the hash of the trimmed copy with that input's public key replaced by the
// public key hash locking the output being spent. The transaction is not
// modified.
func (tx Tx) SigningDigest(priors map[Hash]Tx, i int) ([]byte, error) {
	if i < 0 || i >= len(tx.Inputs) {
		return nil, fmt.Errorf("%w: input %d of %d", ErrInvalidOutputIndex, i, len(tx.Inputs))
	}

	lock, err := priorOutput(priors, tx.Inputs[i])
	if err != nil {
		return nil, err
	}

	cpy := tx.TrimmedCopy()
	cpy.Inputs[i].PubKey = bytes.Clone(lock.PubKeyHash)

	id, err := cpy.CalculateID()
	if err != nil {
		return nil, err
	}

	return id.Bytes(), nil
}

// Sign signs every input with the private key and then recomputes the ID so
// it covers the signatures. Coinbase transactions are left untouched.
func (tx *Tx) Sign(privateKey *ecdsa.PrivateKey, priors map[Hash]Tx) error {
	if tx.IsCoinbase() {
		return nil
	}

	for i := range tx.Inputs {
		if _, err := priorOutput(priors, tx.Inputs[i]); err != nil {
			return err
		}
	}

	sigs := make([][]byte, len(tx.Inputs))
	for i := range tx.Inputs {
		digest, err := tx.SigningDigest(priors, i)
		if err != nil {
			return err
		}

		sig, err := signature.Sign(digest, privateKey)
		if err != nil {
			return fmt.Errorf("signing input %d: %w", i, err)
		}

		sigs[i] = sig
	}

	for i := range tx.Inputs {
		tx.Inputs[i].Signature = sigs[i]
	}

	return tx.finalize()
}

// ValidateOutputs checks every output carries a positive value and a full
// public key hash lock, and returns the total value assigned.
func (tx Tx) ValidateOutputs() (int64, error) {
	if len(tx.Outputs) == 0 {
		return 0, fmt.Errorf("%w: no outputs", ErrInvalidTransaction)
	}

	var total int64
	for i, out := range tx.Outputs {
		if out.Value <= 0 {
			return 0, fmt.Errorf("%w: output %d has value %d", ErrInvalidTransaction, i, out.Value)
		}

		if len(out.PubKeyHash) != wallet.PubKeyHashLength {
			return 0, fmt.Errorf("%w: output %d has lock length %d", ErrInvalidTransaction, i, len(out.PubKeyHash))
		}

		var err error
		if total, err = AddValue(total, out.Value); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
		}
	}

	return total, nil
}

// Verify checks every input is an authorized claim on the output it
// references and that the value spent equals the value assigned. A coinbase
// carries no claims and always verifies, its id and subsidy are checked by
// the chain.
func (tx Tx) Verify(priors map[Hash]Tx) error {
	if tx.IsCoinbase() {
		return nil
	}

	if err := tx.ValidateID(); err != nil {
		return err
	}

	totalOut, err := tx.ValidateOutputs()
	if err != nil {
		return err
	}

	if len(tx.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidTransaction)
	}

	var totalIn int64
	for i, in := range tx.Inputs {
		lock, err := priorOutput(priors, in)
		if err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrInvalidTransaction, i, err)
		}

		if !in.UsesKey(lock.PubKeyHash) {
			return fmt.Errorf("%w: input %d: public key does not match lock", ErrInvalidTransaction, i)
		}

		digest, err := tx.SigningDigest(priors, i)
		if err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrInvalidTransaction, i, err)
		}

		if err := signature.Verify(in.PubKey, digest, in.Signature); err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrInvalidTransaction, i, err)
		}

		if totalIn, err = AddValue(totalIn, lock.Value); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
		}
	}

	if totalIn != totalOut {
		return fmt.Errorf("%w: inputs total %d, outputs total %d", ErrInvalidTransaction, totalIn, totalOut)
	}

	return nil
}

// VerifyTx is the boolean form of Verify.
func (tx Tx) VerifyTx(priors map[Hash]Tx) bool {
	return tx.Verify(priors) == nil
}

// OutPoints returns the outputs spent by the transaction.
func (tx Tx) OutPoints() []OutPoint {
	if tx.IsCoinbase() {
		return nil
	}

	ops := make([]OutPoint, len(tx.Inputs))
	for i, in := range tx.Inputs {
		ops[i] = OutPoint{TxID: in.TxID, Index: in.OutputIndex}
	}

	return ops
}

// Hash implements the merkle Hashable interface. The leaf of a transaction
// is its ID.
func (tx Tx) Hash() ([]byte, error) {
	return tx.ID.Bytes(), nil
}

// Equals implements the merkle Hashable interface.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.ID == otherTx.ID
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]", tx.ID, len(tx.Inputs), len(tx.Outputs))
}

// =============================================================================

// finalize sets the ID from the current content.
func (tx *Tx) finalize() error {
	id, err := tx.CalculateID()
	if err != nil {
		return err
	}

	tx.ID = id
	return nil
}

// priorOutput locates the output an input refers to.
func priorOutput(priors map[Hash]Tx, in TxInput) (TxOutput, error) {
	prior, exists := priors[in.TxID]
	if !exists {
		return TxOutput{}, fmt.Errorf("%w: %s", ErrMissingPriorTx, in.TxID)
	}

	if in.OutputIndex < 0 || int(in.OutputIndex) >= len(prior.Outputs) {
		return TxOutput{}, fmt.Errorf("%w: %s:%d", ErrInvalidOutputIndex, in.TxID, in.OutputIndex)
	}

	return prior.Outputs[in.OutputIndex], nil
}
