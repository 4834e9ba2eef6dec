package zktrie

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

// AccountCompressionFlag marks slot 3 (the keccak code hash) as not a valid
// field element; every other account slot is used as-is.
const AccountCompressionFlag uint32 = 0b001000

// AccountValueHash computes the value hash for an Ethereum-style account
// leaf: five slots, with nonce and code size packed into slot 0, balance in slot 1, storage root in slot 2, the
// keccak code hash (folded) in slot 3, and the Poseidon code hash in slot
// 4.
func AccountValueHash(scheme HashScheme, nonce, codeSize uint64, balance *uint256.Int, storageRoot, keccakCodeHash, poseidonCodeHash Hash) (Hash, error) {
	slots := AccountSlots(nonce, codeSize, balance, storageRoot, keccakCodeHash, poseidonCodeHash)
	return valueHash(scheme, slots, AccountCompressionFlag)
}

// AccountSlots builds the raw 32-byte slot list an account leaf stores as
// its ValuePreimage, in the order AccountValueHash expects.
func AccountSlots(nonce, codeSize uint64, balance *uint256.Int, storageRoot, keccakCodeHash, poseidonCodeHash Hash) []Byte32 {
	var slot0 Byte32
	binary.BigEndian.PutUint64(slot0[16:24], codeSize)
	binary.BigEndian.PutUint64(slot0[24:32], nonce)

	var slot1 Byte32
	if balance != nil {
		slot1 = Byte32(balance.Bytes32())
	}

	return []Byte32{
		slot0,
		slot1,
		Byte32(storageRoot),
		Byte32(keccakCodeHash),
		Byte32(poseidonCodeHash),
	}
}
