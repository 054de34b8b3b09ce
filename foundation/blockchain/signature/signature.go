// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// HashLength is the number of bytes in a sha256 hash.
const HashLength = sha256.Size

// SignatureLength is the number of bytes in a stored signature. Only the
// [R || S] values are kept, the recovery id is dropped since the public key
// always travels with the signature.
const SignatureLength = crypto.RecoveryIDOffset

// ErrInvalidSignature is returned when a signature does not verify against
// the digest and public key provided.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrInvalidPublicKey is returned when the public key bytes can't be
// reconstructed into a point on the secp256k1 curve.
var ErrInvalidPublicKey = errors.New("invalid public key")

// =============================================================================

// Hash returns the sha256 hash of the json encoding of the value.
func Hash(value any) ([HashLength]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return [HashLength]byte{}, err
	}

	return sha256.Sum256(data), nil
}

// Sign uses the specified private key to sign the digest. The digest is
// pre-hashed with sha256 before signing.
func Sign(digest []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	data := sha256.Sum256(digest)

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data[:], privateKey)
	if err != nil {
		return nil, err
	}

	// Check the signature against the public key of the signer before
	// handing it back.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(&privateKey.PublicKey), data[:], rs) {
		return nil, ErrInvalidSignature
	}

	return rs, nil
}

// Verify checks the signature was produced over the digest by the private
// key matching the specified uncompressed public key.
func Verify(publicKey []byte, digest []byte, sig []byte) error {
	if _, err := crypto.UnmarshalPubkey(publicKey); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}

	if len(sig) != SignatureLength {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	data := sha256.Sum256(digest)
	if !crypto.VerifySignature(publicKey, data[:], sig) {
		return ErrInvalidSignature
	}

	return nil
}

// PublicKeyBytes returns the 65 byte uncompressed form of the public key.
func PublicKeyBytes(publicKey ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(&publicKey)
}
