package zktrie

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
)

const keyHalf = 16

// KeyHasher derives a trie node key (a field element suitable for bit-path
// traversal) from an arbitrary raw key such as an address or a storage
// slot index.
type KeyHasher interface {
	SecureKey(raw []byte) (Hash, error)
}

// DefaultKeyHasher implements component C's v_lo/v_hi split: raw's first
// (up to) 16 bytes form the low half and any remainder the high half, each
// zero-extended out to 32 bytes, and the pair is hashed as (high, low) with
// the same HashScheme the trie commits with. Like fold (byte32.go) it turns
// an arbitrary blob into a pair of valid field elements before mixing them;
// unlike fold, the first 16 bytes go in as the right-hand input.
type DefaultKeyHasher struct {
	Scheme HashScheme
}

// SecureKey derives the node key for raw. raw longer than 32 bytes is
// rejected. Unlike fold, the split is taken directly off raw's own bytes,
// not off a right-aligned 32-byte padding of raw: the first (up to) 16
// bytes of raw go to the low half, any remaining bytes go to the high
// half, each placed at offset 16 in its own zeroed 32-byte buffer. This
// placement is bit-exact per the on-wire commitment contract and must not
// be "simplified" into a fold-alike right-aligned split.
func (h DefaultKeyHasher) SecureKey(raw []byte) (Hash, error) {
	if len(raw) > 32 {
		return Hash{}, fmt.Errorf("%w: raw key longer than 32 bytes", ErrInvalidEncoding)
	}

	var vHi, vLo Byte32
	if len(raw) > keyHalf {
		copy(vLo[keyHalf:], raw[:keyHalf])
		copy(vHi[keyHalf:], raw[keyHalf:])
	} else {
		copy(vLo[keyHalf:], raw)
	}

	return h.Scheme.Hash(Hash(vHi), Hash(vLo))
}

// CachingKeyHasher wraps an inner KeyHasher with a fastcache-backed
// memoization layer, for callers that rederive the same node keys
// repeatedly (e.g. re-resolving the same account across many trie
// operations in one block). fastcache is byte-keyed and alloc-light,
// exactly the shape this cache needs; it is the same cache library the
// teacher's go.mod already carries for its own trie/state caches.
type CachingKeyHasher struct {
	inner KeyHasher
	cache *fastcache.Cache
}

// NewCachingKeyHasher wraps inner with an in-memory cache capped at
// approximately maxBytes of cache memory.
func NewCachingKeyHasher(inner KeyHasher, maxBytes int) *CachingKeyHasher {
	return &CachingKeyHasher{
		inner: inner,
		cache: fastcache.New(maxBytes),
	}
}

// SecureKey returns the cached node key for raw if present, else derives
// it via the wrapped KeyHasher and caches the result. Derivation errors
// are never cached.
func (h *CachingKeyHasher) SecureKey(raw []byte) (Hash, error) {
	if v, ok := h.cache.HasGet(nil, raw); ok {
		var out Hash
		copy(out[:], v)
		return out, nil
	}
	k, err := h.inner.SecureKey(raw)
	if err != nil {
		return Hash{}, err
	}
	h.cache.Set(append([]byte(nil), raw...), k[:])
	return k, nil
}
