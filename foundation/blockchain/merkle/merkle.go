// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkle tree for committing
// to an ordered set of transactions inside a block.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
)

// ErrNoContent is returned when a tree is requested over no values.
var ErrNoContent = errors.New("cannot construct tree with no content")

// ErrNotFound is returned when a proof is requested for a value that is not
// a leaf of the tree.
var ErrNotFound = errors.New("unable to find data in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree. The hash returned is used as the leaf value as is.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint. Levels[0] holds the leaf
// hashes in the order provided and the last level holds the root.
type Tree[T Hashable[T]] struct {
	Values       []T
	Levels       [][][]byte
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree over the values in the order given.
// The order is part of what the root commits to.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the levels of the tree from the specified data. If the
// tree has been generated previously, it is re-generated from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrNoContent
	}

	leafs := make([][]byte, len(values))
	for i, value := range values {
		h, err := value.Hash()
		if err != nil {
			return fmt.Errorf("hashing leaf %d: %w", i, err)
		}
		leafs[i] = h
	}

	levels := [][][]byte{leafs}
	for level := leafs; len(level) > 1; {
		next, err := t.buildLevel(level)
		if err != nil {
			return err
		}

		levels = append(levels, next)
		level = next
	}

	t.Values = values
	t.Levels = levels
	t.MerkleRoot = levels[len(levels)-1][0]

	return nil
}

// Root returns a copy of the merkle root.
func (t *Tree[T]) Root() []byte {
	root := make([]byte, len(t.MerkleRoot))
	copy(root, t.MerkleRoot)
	return root
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash is concatenated first, 1 means it is concatenated second.
func (t *Tree[T]) Proof(data T) ([][]byte, []int64, error) {
	index := -1
	for i, value := range t.Values {
		if value.Equals(data) {
			index = i
			break
		}
	}

	if index == -1 {
		return nil, nil, ErrNotFound
	}

	var proof [][]byte
	var order []int64

	for _, level := range t.Levels[:len(t.Levels)-1] {
		switch {
		case index%2 == 1:
			proof = append(proof, level[index-1])
			order = append(order, 0)

		case index+1 < len(level):
			proof = append(proof, level[index+1])
			order = append(order, 1)

		default:
			// Odd node at the end of the level, paired with itself.
			proof = append(proof, level[index])
			order = append(order, 1)
		}

		index /= 2
	}

	return proof, order, nil
}

// Verify recomputes every level from the stored values and checks the
// result matches the stored root.
func (t *Tree[T]) Verify() error {
	cpy := Tree[T]{hashStrategy: t.hashStrategy}
	if err := cpy.Generate(t.Values); err != nil {
		return err
	}

	if !bytes.Equal(t.MerkleRoot, cpy.MerkleRoot) {
		return errors.New("root hash invalid")
	}

	return nil
}

// VerifyProof folds the leaf hash through the proof and compares the
// result with the root, using sha256.
func VerifyProof(leaf []byte, proof [][]byte, order []int64, root []byte) bool {
	if len(proof) != len(order) {
		return false
	}

	h := leaf
	for i, p := range proof {
		var sum [sha256.Size]byte
		switch order[i] {
		case 0:
			sum = sha256.Sum256(concat(p, h))
		default:
			sum = sha256.Sum256(concat(h, p))
		}
		h = sum[:]
	}

	return bytes.Equal(h, root)
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return fmt.Sprintf("%x", t.MerkleRoot)
}

// =============================================================================

// buildLevel pairs the hashes left to right and hashes each pair. When the
// level has an odd count, the last hash is paired with itself.
func (t *Tree[T]) buildLevel(level [][]byte) ([][]byte, error) {
	next := make([][]byte, 0, (len(level)+1)/2)

	for i := 0; i < len(level); i += 2 {
		left, right := level[i], level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}

		h := t.hashStrategy()
		if _, err := h.Write(concat(left, right)); err != nil {
			return nil, err
		}

		next = append(next, h.Sum(nil))
	}

	return next, nil
}

// concat joins two hashes into a fresh slice so neither input is aliased.
func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
