// Package pow implements the proof of work puzzle used to seal blocks. A
// block is sealed when the sha256 digest of its header, read as a big endian
// 256 bit number, is below the target defined by the target bits.
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
)

// DefaultTargetBits is the difficulty used when none is configured.
const DefaultTargetBits = 16

// MaxTargetBits is the largest difficulty that can be expressed.
const MaxTargetBits = 255

// ErrNonceExhausted is returned when every nonce in the 64 bit space has been
// tried without finding a solution.
var ErrNonceExhausted = errors.New("nonce space exhausted")

// ErrInvalidTargetBits is returned when mining is asked for a difficulty
// outside 1 to MaxTargetBits.
var ErrInvalidTargetBits = errors.New("invalid target bits")

// Header represents the committed content of a block that feeds the digest.
type Header struct {
	PrevBlockHash [32]byte
	MerkleRoot    [32]byte
	TimeStamp     int64
	TargetBits    uint64
	Nonce         uint64
}

// EventHandler defines a function that is called when events occur while
// mining.
type EventHandler func(v string, args ...any)

// =============================================================================

// ValidTargetBits reports if the difficulty is in the range 1 to
// MaxTargetBits.
func ValidTargetBits(bits uint64) bool {
	return bits > 0 && bits <= MaxTargetBits
}

// Target returns the threshold 2^(256-bits) a digest must be below. The bits
// must be in range, see ValidTargetBits.
func Target(bits uint64) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(256-bits))
}

// Digest returns the sha256 of the header fields concatenated in order:
// prev hash, merkle root, timestamp, target bits, and nonce, with the integer
// fields written as 8 byte big endian values.
func Digest(h Header) [32]byte {
	data := make([]byte, 0, 32+32+8+8+8)
	data = append(data, h.PrevBlockHash[:]...)
	data = append(data, h.MerkleRoot[:]...)
	data = binary.BigEndian.AppendUint64(data, uint64(h.TimeStamp))
	data = binary.BigEndian.AppendUint64(data, h.TargetBits)
	data = binary.BigEndian.AppendUint64(data, h.Nonce)

	return sha256.Sum256(data)
}

// Validate recomputes the digest using the header's nonce and reports if it
// satisfies the target. A header carrying out of range target bits is
// reported as invalid.
func Validate(h Header) bool {
	if !ValidTargetBits(h.TargetBits) {
		return false
	}

	digest := Digest(h)
	return isHashSolved(Target(h.TargetBits), digest)
}

// Mine searches for the first nonce, starting at 0, that solves the puzzle
// for the header. The search can be cancelled through the context.
func Mine(ctx context.Context, h Header, ev EventHandler) (uint64, [32]byte, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	if !ValidTargetBits(h.TargetBits) {
		return 0, [32]byte{}, fmt.Errorf("%w: %d", ErrInvalidTargetBits, h.TargetBits)
	}

	ev("pow: Mine: MINING: started: prevBlk[%x]: bits[%d]", h.PrevBlockHash, h.TargetBits)
	defer ev("pow: Mine: MINING: completed")

	target := Target(h.TargetBits)

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("pow: Mine: MINING: attempts[%d]", attempts)
		}

		// Check every so often if we have been asked to stop.
		if nonce%1_024 == 0 && ctx.Err() != nil {
			ev("pow: Mine: MINING: CANCELLED")
			return 0, [32]byte{}, ctx.Err()
		}

		h.Nonce = nonce
		digest := Digest(h)
		if isHashSolved(target, digest) {
			ev("pow: Mine: MINING: SOLVED: nonce[%d]: hash[%x]", nonce, digest)
			return nonce, digest, nil
		}

		if nonce == math.MaxUint64 {
			return 0, [32]byte{}, ErrNonceExhausted
		}
	}
}

// =============================================================================

// isHashSolved checks the digest as a big endian number is below the target.
func isHashSolved(target *big.Int, digest [32]byte) bool {
	return new(big.Int).SetBytes(digest[:]).Cmp(target) < 0
}
