// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/utxoledger/ledger/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses its sha256 sum as the leaf identifier.
type Data struct {
	x string
}

// Hash returns the identifier for the data.
func (d Data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d.x))
	return h[:], nil
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

// =============================================================================

func Test_Root(t *testing.T) {
	type table struct {
		name string
		data []Data
		exp  []byte
	}

	a, b, c, d, e := leaf("a"), leaf("b"), leaf("c"), leaf("d"), leaf("e")

	tt := []table{
		{
			name: "single",
			data: []Data{{"a"}},
			exp:  a,
		},
		{
			name: "pair",
			data: []Data{{"a"}, {"b"}},
			exp:  pair(a, b),
		},
		{
			name: "odd-three",
			data: []Data{{"a"}, {"b"}, {"c"}},
			exp:  pair(pair(a, b), pair(c, c)),
		},
		{
			name: "four",
			data: []Data{{"a"}, {"b"}, {"c"}, {"d"}},
			exp:  pair(pair(a, b), pair(c, d)),
		},
		{
			name: "odd-five",
			data: []Data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}},
			exp:  pair(pair(pair(a, b), pair(c, d)), pair(pair(e, e), pair(e, e))),
		},
	}

	t.Log("Given the need to commit to a list of transaction ids.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %d values.", testID, len(tst.data))
				{
					tree, err := merkle.NewTree(tst.data)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to build the tree.", success, testID)

					if !bytes.Equal(tree.Root(), tst.exp) {
						t.Logf("\t%s\tTest %d:\tgot: %x", failed, testID, tree.Root())
						t.Logf("\t%s\tTest %d:\texp: %x", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get the expected root.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected root.", success, testID)

					again, err := merkle.NewTree(tst.data)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree again: %v", failed, testID, err)
					}

					if !bytes.Equal(tree.Root(), again.Root()) {
						t.Fatalf("\t%s\tTest %d:\tShould get the same root twice.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the same root twice.", success, testID)

					if err := tree.Verify(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to verify the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to verify the tree.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_OrderSensitive(t *testing.T) {
	t1, err := merkle.NewTree([]Data{{"a"}, {"b"}, {"c"}})
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	t2, err := merkle.NewTree([]Data{{"b"}, {"a"}, {"c"}})
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	if bytes.Equal(t1.Root(), t2.Root()) {
		t.Fatalf("Should get a different root when the order changes.")
	}
}

func Test_Empty(t *testing.T) {
	if _, err := merkle.NewTree([]Data{}); !errors.Is(err, merkle.ErrNoContent) {
		t.Fatalf("Should get ErrNoContent for an empty list, got %v", err)
	}
}

func Test_Proof(t *testing.T) {
	data := []Data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	for _, d := range data {
		proof, order, err := tree.Proof(d)
		if err != nil {
			t.Fatalf("Should be able to get a proof for %q: %v", d.x, err)
		}

		h, _ := d.Hash()
		if !merkle.VerifyProof(h, proof, order, tree.Root()) {
			t.Fatalf("Should be able to verify the proof for %q.", d.x)
		}

		bad := leaf("z")
		if merkle.VerifyProof(bad, proof, order, tree.Root()) {
			t.Fatalf("Should fail to verify the proof for %q with the wrong leaf.", d.x)
		}
	}

	if _, _, err := tree.Proof(Data{"z"}); !errors.Is(err, merkle.ErrNotFound) {
		t.Fatalf("Should get ErrNotFound for data not in the tree, got %v", err)
	}
}

func Test_HashStrategy(t *testing.T) {
	data := []Data{{"a"}, {"b"}}

	tree, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](md5.New))
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	a, b := leaf("a"), leaf("b")
	exp := md5.Sum(append(append([]byte{}, a...), b...))

	if !bytes.Equal(tree.Root(), exp[:]) {
		t.Logf("got: %x", tree.Root())
		t.Logf("exp: %x", exp)
		t.Fatalf("Should use the provided hash strategy.")
	}
}

// =============================================================================

func leaf(s string) []byte {
	h := sha256.Sum256([]byte(s))
	return h[:]
}

func pair(l, r []byte) []byte {
	h := sha256.Sum256(append(append([]byte{}, l...), r...))
	return h[:]
}
