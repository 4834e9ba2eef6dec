package zktrie

import "fmt"

// Byte32 is an arbitrary 32-byte blob: not every Byte32 is a valid field
// element. Values cross into the hash scheme only after either (a) being
// proven a valid field element (the unflagged case below) or (b) being
// routed through fold per the compression flag.
type Byte32 [32]byte

// Bytes returns b's contents as a slice.
func (b Byte32) Bytes() []byte { return b[:] }

const half = 16

// fold reduces a 32-byte blob that is not itself a valid field element into
// one that is, by hashing its two 16-byte halves, each zero-extended (left
// zero-padded) back out to 32 bytes, with the first half as the left
// input. The key hasher in key.go uses a similar split but hashes its halves
// in the other order; both are bit-exact parts of the on-wire commitment
// contract and must not be "simplified".
func fold(scheme HashScheme, b Byte32) (Hash, error) {
	var hi, lo Byte32
	copy(hi[half:], b[0:half])
	copy(lo[half:], b[half:32])
	return scheme.Hash(Hash(hi), Hash(lo))
}

// valueHash is the general value-hash rule: each slot whose bit is set in
// flag is first reduced via fold; the resulting sequence of field elements
// is then combined pairwise, bottom-up, left to right, into a balanced
// tree. Account and storage value hashes (account.go, storage.go) are
// precomputed shapes of this same rule.
func valueHash(scheme HashScheme, slots []Byte32, flag uint32) (Hash, error) {
	if len(slots) == 0 {
		return Hash{}, fmt.Errorf("%w: empty value slot list", ErrInvalidEncoding)
	}
	if len(slots) > 32 {
		return Hash{}, fmt.Errorf("%w: too many value slots for a uint32 compression flag", ErrInvalidEncoding)
	}
	if flag>>uint(len(slots)) != 0 {
		return Hash{}, fmt.Errorf("%w: compression flag has bits set beyond the slot count", ErrInvalidEncoding)
	}

	reduced := make([]Hash, len(slots))
	for i, s := range slots {
		if flag&(1<<uint(i)) != 0 {
			h, err := fold(scheme, s)
			if err != nil {
				return Hash{}, err
			}
			reduced[i] = h
		} else {
			reduced[i] = Hash(s)
		}
	}
	return combineBalanced(scheme, reduced)
}

// combineBalanced reduces items to a single hash: pair adjacent elements
// bottom-up left to right, carrying forward any unpaired trailing element
// to the next level. For five elements with only the fourth flagged (the
// account shape), this produces exactly
// h(h(h(s0,s1), h(s2,fold(s3))), s4).
func combineBalanced(scheme HashScheme, items []Hash) (Hash, error) {
	level := items
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				h, err := scheme.Hash(level[i], level[i+1])
				if err != nil {
					return Hash{}, err
				}
				next = append(next, h)
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0], nil
}
