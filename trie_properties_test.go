package zktrie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRawKeyLengthBoundaries exercises raw key lengths at and around the
// 32-byte ceiling (0, 1, 15, 16, 17, 31, 32, 33), per spec.md's boundary
// behavior around key width.
func TestRawKeyLengthBoundaries(t *testing.T) {
	lengths := []int{0, 1, 15, 16, 17, 31, 32}
	tr := newTestTrie()
	for _, n := range lengths {
		raw := make([]byte, n)
		for i := range raw {
			raw[i] = byte(i + 1)
		}
		require.NoError(t, tr.Update(raw, slotsOf(byte(n)), 0), "length %d", n)
		got, err := tr.Get(raw)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, slotsOf(byte(n)), got, "length %d", n)
	}

	oversized := make([]byte, 33)
	err := tr.Update(oversized, slotsOf(1), 0)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

// TestSharedPrefixSiblingsAtDeepDivergence constructs two node keys that
// agree on every bit below maxDepth-1 and diverge only on the very last
// bit, then verifies both are independently retrievable and that deleting
// one contracts cleanly back to the other.
func TestSharedPrefixSiblingsAtDeepDivergence(t *testing.T) {
	scheme := DefaultHashScheme

	var k1, k2 Hash
	// Fill with 0x25 so both keys stay below the field modulus: the leaf
	// hash feeds NodeKey to the HashScheme, which rejects non-field values.
	for i := range k1 {
		k1[i] = 0x25
		k2[i] = 0x25
	}
	// Flip bit 7 of byte[1], which is depth 247 — the deepest bit
	// descend() ever consults (byte[0] sits above the 248-bit path and is
	// never read) — so the two keys diverge only at the last possible
	// depth.
	k2[1] ^= 0x80

	tr := New(newMemStore(), constKeyHasher{keys: map[string]Hash{
		"a": k1,
		"b": k2,
	}})

	require.NoError(t, tr.Update([]byte("a"), slotsOf(1), 0))
	require.NoError(t, tr.Update([]byte("b"), slotsOf(2), 0))

	gotA, err := tr.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, slotsOf(1), gotA)

	gotB, err := tr.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, slotsOf(2), gotB)

	require.NoError(t, tr.Delete([]byte("b")))
	leaf, err := tr.GetLeaf([]byte("a"))
	require.NoError(t, err)
	leafHash, err := leaf.Hash(scheme)
	require.NoError(t, err)
	assert.Equal(t, leafHash, tr.Root())
}

// TestDepth248CollisionOverwrites exercises the boundary behavior where
// two distinct node keys happen to agree on every one of the low 248
// bits (differing only above maxDepth, where the path never looks): the
// second Update must overwrite the first rather than attempting to push
// the path deeper than the field supports.
func TestDepth248CollisionOverwrites(t *testing.T) {
	var k1, k2 Hash
	for i := range k1 {
		k1[i] = 0x11
		k2[i] = 0x11
	}
	// Differ only in the top byte, which sits above the 248-bit path and
	// is never consulted by bitAt. Both top bytes are small enough to keep
	// the keys valid field elements.
	k1[0] = 0x01
	k2[0] = 0x02

	tr := New(newMemStore(), constKeyHasher{keys: map[string]Hash{
		"x": k1,
		"y": k2,
	}})

	require.NoError(t, tr.Update([]byte("x"), slotsOf(1), 0))
	require.NoError(t, tr.Update([]byte("y"), slotsOf(2), 0))

	got, err := tr.Get([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, slotsOf(2), got, "second key must overwrite the first at a depth-248 collision")

	leaf, err := tr.GetLeaf([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, k2, leaf.NodeKey)
}

// TestContentAddressingMakesCommitIdempotent commits the same content
// from two separate tries into one shared backend and checks that both
// arrive at the same root: with content-addressed node keys the second
// commit rewrites identical records.
func TestContentAddressingMakesCommitIdempotent(t *testing.T) {
	db := newMemStore()
	hasher := DefaultKeyHasher{Scheme: DefaultHashScheme}

	tr1 := New(db, hasher)
	require.NoError(t, tr1.Update(rawKeyN(1), slotsOf(7), 0))
	require.NoError(t, tr1.Commit())
	root1 := tr1.Root()

	tr2 := New(db, hasher)
	require.NoError(t, tr2.Update(rawKeyN(1), slotsOf(7), 0))
	require.NoError(t, tr2.Commit())
	root2 := tr2.Root()

	assert.Equal(t, root1, root2)
}

// TestEmptyTrieRootIsZero is the base-case invariant every other
// structural property relies on: an empty trie's root is always the zero
// hash, never a computed Empty-node hash.
func TestEmptyTrieRootIsZero(t *testing.T) {
	tr := newTestTrie()
	assert.Equal(t, zeroHash, tr.Root())
	n := newEmptyNode()
	h, err := n.Hash(tr.scheme)
	require.NoError(t, err)
	assert.Equal(t, zeroHash, h)
}

// TestUpdateIsDeterministicRegardlessOfDeleteHistory verifies that a
// trie's root depends only on its current key/value set, not on the
// sequence of updates and deletes that produced it.
func TestUpdateIsDeterministicRegardlessOfDeleteHistory(t *testing.T) {
	direct := newTestTrie()
	require.NoError(t, direct.Update(rawKeyN(1), slotsOf(1), 0))
	require.NoError(t, direct.Update(rawKeyN(2), slotsOf(2), 0))

	viaChurn := newTestTrie()
	require.NoError(t, viaChurn.Update(rawKeyN(1), slotsOf(1), 0))
	require.NoError(t, viaChurn.Update(rawKeyN(3), slotsOf(99), 0))
	require.NoError(t, viaChurn.Update(rawKeyN(2), slotsOf(2), 0))
	require.NoError(t, viaChurn.Delete(rawKeyN(3)))

	assert.Equal(t, direct.Root(), viaChurn.Root())
}

// constKeyHasher is a test-only KeyHasher that returns precomputed node
// keys for specific raw keys, used to engineer exact bit-path collisions
// that would be astronomically unlikely to hit by hashing real inputs.
type constKeyHasher struct {
	keys map[string]Hash
}

func (h constKeyHasher) SecureKey(raw []byte) (Hash, error) {
	k, ok := h.keys[string(raw)]
	if !ok {
		return Hash{}, ErrKeyNotFound
	}
	return k, nil
}
