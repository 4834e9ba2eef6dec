// Package zktrie implements a sparse binary Merkle Patricia trie over a
// Poseidon-friendly field, used as the state commitment scheme for an
// Ethereum-like zk-rollup: it authenticates account and storage key/value
// mappings so their inclusion or exclusion can be proven inside a zk
// circuit.
package zktrie

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Hash is a field element of the trie's prime field (order ~2^254),
// represented as its 32-byte big-endian encoding. It doubles as the type of
// node hashes, value hashes, and secure keys.
type Hash [32]byte

// Big returns h as a big-endian unsigned integer.
func (h Hash) Big() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// HashFromBig encodes bi as a big-endian, left-zero-padded Hash. The caller
// is responsible for bi being a valid field element; HashScheme.Hash
// rejects values outside the field when it matters.
func HashFromBig(bi *big.Int) Hash {
	var h Hash
	b := bi.Bytes()
	copy(h[32-len(b):], b)
	return h
}

// HashFromBytes left-pads or truncates b into a Hash, big-endian.
func HashFromBytes(b []byte) Hash {
	var h Hash
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(h[32-len(b):], b)
	return h
}

// DomainLeaf is the domain-separation element interposed as the left input
// to a leaf's final hash mix, per the scheme's leaf marker contract.
var DomainLeaf = HashFromBig(big.NewInt(1))

var zeroHash Hash

// HashScheme is the arity-2 hash the trie commits with: deterministic,
// collision-resistant within the field, accepting init_state = 0 for
// Poseidon-family instantiations so provers and verifiers agree bit for
// bit on every root.
type HashScheme interface {
	Hash(a, b Hash) (Hash, error)
}

// PoseidonHashScheme is the scheme's only production HashScheme: Poseidon
// with t=3 (two inputs plus the capacity element), as implemented by
// iden3's reference Go Poseidon.
type PoseidonHashScheme struct{}

// Hash computes Poseidon(a, b) over the field. It errors if either input is
// not a valid element of the field (e.g. a raw 32-byte blob that was never
// routed through fold).
func (PoseidonHashScheme) Hash(a, b Hash) (Hash, error) {
	res, err := poseidon.Hash([]*big.Int{a.Big(), b.Big()})
	if err != nil {
		return Hash{}, fmt.Errorf("zktrie: poseidon hash: %w", err)
	}
	return HashFromBig(res), nil
}

// DefaultHashScheme is the scheme every Trie uses unless told otherwise.
var DefaultHashScheme HashScheme = PoseidonHashScheme{}
