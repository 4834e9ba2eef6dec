package zktrie

// StorageCompressionFlag marks the single storage slot as not a valid
// field element: any 256-bit EVM word may appear there, and most aren't
// below the field's modulus.
const StorageCompressionFlag uint32 = 0b1

// StorageValueHash computes the value hash for a storage leaf: a single
// slot, always folded.
func StorageValueHash(scheme HashScheme, value Byte32) (Hash, error) {
	return valueHash(scheme, []Byte32{value}, StorageCompressionFlag)
}
