// Package database defines the ledger's data model: blocks, transactions,
// and the unspent outputs they produce, along with the rules for building,
// signing, and verifying them.
package database

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of error variables for the ledger's data model.
var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrMissingPriorTx     = errors.New("missing prior transaction")
	ErrInvalidOutputIndex = errors.New("invalid output index")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrValueOverflow      = errors.New("value overflow")
	ErrNoTransactions     = errors.New("no transactions to mine")
	ErrInvalidBlock       = errors.New("invalid block")
)

// =============================================================================

// HashLength is the number of bytes in a hash.
const HashLength = 32

// Hash represents a sha256 hash. The zero value is used as the empty
// reference for coinbase inputs and the genesis parent.
type Hash [HashLength]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash Hash

// ToHash converts a hex string, with or without the 0x prefix, into a Hash.
func ToHash(s string) (Hash, error) {
	if !has0xPrefix(s) {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decoding hash %q: %w", s, err)
	}

	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("hash %q has invalid length %d", s, len(b))
	}

	var h Hash
	copy(h[:], b)
	return h, nil
}

// IsZero reports if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(data []byte) error {
	v, err := ToHash(string(data))
	if err != nil {
		return err
	}

	*h = v
	return nil
}

// =============================================================================

// AddValue adds two monetary values and fails instead of wrapping around.
func AddValue(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", ErrValueOverflow, a, b)
	}

	return a + b, nil
}

func has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}
