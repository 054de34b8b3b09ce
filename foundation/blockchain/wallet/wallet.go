// Package wallet provides support for key pairs, public key hashes, and the
// base58 check encoded addresses derived from them.
package wallet

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"
)

// Version is the version byte prefixed to the public key hash when forming
// an address.
const Version byte = 0x00

// PubKeyHashLength is the number of bytes in a public key hash.
const PubKeyHashLength = ripemd160.Size

// ErrInvalidAddress is returned when an address can't be decoded or its
// checksum doesn't match.
var ErrInvalidAddress = errors.New("invalid address")

// =============================================================================

// PublicKeyHash returns RIPEMD160(SHA256(publicKey)), the value outputs are
// locked to.
func PublicKeyHash(publicKey []byte) []byte {
	sum := sha256.Sum256(publicKey)

	h := ripemd160.New()
	h.Write(sum[:])

	return h.Sum(nil)
}

// EncodeAddress produces the base58 text of version || payload || checksum
// where the checksum is the first 4 bytes of a double sha256.
func EncodeAddress(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}

// DecodeAddress validates the checksum of the address and returns the
// version byte and payload.
func DecodeAddress(address string) (byte, []byte, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %q: %s", ErrInvalidAddress, address, err)
	}

	return version, payload, nil
}

// Address returns the address for the specified public key bytes.
func Address(publicKey []byte) string {
	return EncodeAddress(Version, PublicKeyHash(publicKey))
}

// AddressToPubKeyHash decodes the address and returns the public key hash
// it carries.
func AddressToPubKeyHash(address string) ([]byte, error) {
	version, payload, err := DecodeAddress(address)
	if err != nil {
		return nil, err
	}

	if version != Version || len(payload) != PubKeyHashLength {
		return nil, fmt.Errorf("%w: %q: version %d length %d", ErrInvalidAddress, address, version, len(payload))
	}

	return payload, nil
}

// =============================================================================

// Generate constructs a new secp256k1 private key.
func Generate() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Save writes the private key to the file in hex form.
func Save(path string, privateKey *ecdsa.PrivateKey) error {
	return crypto.SaveECDSA(path, privateKey)
}

// Load reads a hex encoded private key from the file.
func Load(path string) (*ecdsa.PrivateKey, error) {
	return crypto.LoadECDSA(path)
}

// PublicKeyBytes returns the 65 byte uncompressed public key for the
// private key.
func PublicKeyBytes(privateKey *ecdsa.PrivateKey) []byte {
	return crypto.FromECDSAPub(&privateKey.PublicKey)
}

// KeyAddress returns the address for the private key.
func KeyAddress(privateKey *ecdsa.PrivateKey) string {
	return Address(PublicKeyBytes(privateKey))
}
