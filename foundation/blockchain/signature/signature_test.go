package signature_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/utxoledger/ledger/foundation/blockchain/signature"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	digest := []byte("a digest to be signed")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(digest, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if len(sig) != signature.SignatureLength {
		t.Logf("got: %d", len(sig))
		t.Logf("exp: %d", signature.SignatureLength)
		t.Fatalf("Should get back a signature of the right length.")
	}

	pub := signature.PublicKeyBytes(pk.PublicKey)
	if err := signature.Verify(pub, digest, sig); err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}
}

func Test_VerifyFailures(t *testing.T) {
	digest := []byte("a digest to be signed")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	other, err := crypto.HexToECDSA(otherHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(digest, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	pub := signature.PublicKeyBytes(pk.PublicKey)

	if err := signature.Verify(pub, []byte("another digest"), sig); err == nil {
		t.Fatalf("Should fail to verify against a different digest.")
	}

	if err := signature.Verify(signature.PublicKeyBytes(other.PublicKey), digest, sig); err == nil {
		t.Fatalf("Should fail to verify against a different public key.")
	}

	for i := range sig {
		bad := make([]byte, len(sig))
		copy(bad, sig)
		bad[i] ^= 0x01

		if err := signature.Verify(pub, digest, bad); err == nil {
			t.Fatalf("Should fail to verify with bit flipped at byte %d.", i)
		}
	}

	if err := signature.Verify(pub[:40], digest, sig); err == nil {
		t.Fatalf("Should fail to verify with a malformed public key.")
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	h1, err := signature.Hash(value)
	if err != nil {
		t.Fatalf("Should be able to hash the value: %s", err)
	}

	h2, err := signature.Hash(value)
	if err != nil {
		t.Fatalf("Should be able to hash the value: %s", err)
	}

	if h1 != h2 {
		t.Logf("got: %x", h2)
		t.Logf("exp: %x", h1)
		t.Fatalf("Should get back the same hash twice.")
	}

	value.Name = "Jill"
	h3, err := signature.Hash(value)
	if err != nil {
		t.Fatalf("Should be able to hash the value: %s", err)
	}

	if h1 == h3 {
		t.Fatalf("Should get a different hash for different values.")
	}
}
