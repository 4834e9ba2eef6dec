package zktrie

import "errors"

// Error kinds a caller can match against with errors.Is. Errors from the
// trie's own checks and from the KVStore are or wrap one of these; an
// error from the HashScheme itself is passed through without one.
var (
	// ErrKeyNotFound is returned when a lookup or delete addresses a key
	// the trie has no leaf for.
	ErrKeyNotFound = errors.New("zktrie: key not found")

	// ErrBackendUnavailable wraps any error the KVStore returns — a store
	// outage, a timeout, an I/O error, or a node hash the store has no
	// record for.
	ErrBackendUnavailable = errors.New("zktrie: backend unavailable")

	// ErrCorruptNode is returned when a node loaded from the backend fails
	// to decode, or decodes but its recomputed hash doesn't match the key
	// it was stored under.
	ErrCorruptNode = errors.New("zktrie: corrupt node")

	// ErrDepthExceeded is returned when a descent would need to go past the
	// maximum path depth the field's bit width allows.
	ErrDepthExceeded = errors.New("zktrie: maximum trie depth exceeded")

	// ErrInvalidEncoding is returned when a caller-supplied value shape
	// (raw key length, slot count, compression flag) is structurally
	// invalid independent of any particular key.
	ErrInvalidEncoding = errors.New("zktrie: invalid encoding")
)
