package zktrie

import (
	"encoding/binary"
	"fmt"
)

// NodeType tags the three node shapes a sparse binary Merkle Patricia trie
// can hold. It doubles as the encoding the parent stores for each of its
// two children, so a descent never needs to fetch a child just to learn
// whether it is empty.
type NodeType uint8

const (
	NodeTypeEmpty NodeType = iota
	NodeTypeBranch
	NodeTypeLeaf
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeEmpty:
		return "empty"
	case NodeTypeBranch:
		return "branch"
	case NodeTypeLeaf:
		return "leaf"
	default:
		return fmt.Sprintf("NodeType(%d)", uint8(t))
	}
}

// Node is one of the trie's three node shapes, tagged by Type. Branch
// fields are meaningful only when Type == NodeTypeBranch; Leaf fields only
// when Type == NodeTypeLeaf.
type Node struct {
	Type NodeType

	// Branch fields.
	ChildL     Hash
	ChildLType NodeType
	ChildR     Hash
	ChildRType NodeType

	// Leaf fields.
	NodeKey         Hash
	CompressionFlag uint32
	ValuePreimage   []Byte32
	ValueHash       Hash

	hash  *Hash
	dirty bool
}

func newEmptyNode() *Node {
	return &Node{Type: NodeTypeEmpty}
}

func newBranchNode(l Hash, lt NodeType, r Hash, rt NodeType) *Node {
	return &Node{
		Type:       NodeTypeBranch,
		ChildL:     l,
		ChildLType: lt,
		ChildR:     r,
		ChildRType: rt,
		dirty:      true,
	}
}

// newLeafNode builds a leaf node and eagerly computes its ValueHash from
// preimage and flag, per the value-hash rule in byte32.go.
func newLeafNode(scheme HashScheme, nodeKey Hash, flag uint32, preimage []Byte32) (*Node, error) {
	vh, err := valueHash(scheme, preimage, flag)
	if err != nil {
		return nil, err
	}
	return &Node{
		Type:            NodeTypeLeaf,
		NodeKey:         nodeKey,
		CompressionFlag: flag,
		ValuePreimage:   preimage,
		ValueHash:       vh,
		dirty:           true,
	}, nil
}

// Hash returns the node's hash, computing and caching it on first call.
// Empty hashes to the zero hash; Branch hashes its two children together;
// Leaf mixes a domain-separated node key with its value hash, so two
// leaves with the same key and different values (impossible in a correct
// trie, since NodeKey determines position) or the same value and
// different keys never collide.
func (n *Node) Hash(scheme HashScheme) (Hash, error) {
	if n.hash != nil {
		return *n.hash, nil
	}
	var h Hash
	var err error
	switch n.Type {
	case NodeTypeEmpty:
		h = zeroHash
	case NodeTypeBranch:
		h, err = scheme.Hash(n.ChildL, n.ChildR)
	case NodeTypeLeaf:
		var mixed Hash
		mixed, err = scheme.Hash(DomainLeaf, n.NodeKey)
		if err == nil {
			h, err = scheme.Hash(mixed, n.ValueHash)
		}
	default:
		return Hash{}, fmt.Errorf("%w: unknown node type %v", ErrCorruptNode, n.Type)
	}
	if err != nil {
		return Hash{}, err
	}
	n.hash = &h
	return h, nil
}

const (
	nodeTagEmpty  = 0
	nodeTagBranch = 1
	nodeTagLeaf   = 2
)

// MarshalBinary encodes n for storage. Empty nodes are never stored (the
// zero hash stands for them implicitly) and are rejected here.
func (n *Node) MarshalBinary() ([]byte, error) {
	switch n.Type {
	case NodeTypeBranch:
		buf := make([]byte, 0, 1+32+32+1+1)
		buf = append(buf, nodeTagBranch)
		buf = append(buf, n.ChildL[:]...)
		buf = append(buf, n.ChildR[:]...)
		buf = append(buf, byte(n.ChildLType))
		buf = append(buf, byte(n.ChildRType))
		return buf, nil
	case NodeTypeLeaf:
		if len(n.ValuePreimage) > 255 {
			return nil, fmt.Errorf("%w: leaf has more than 255 value slots", ErrInvalidEncoding)
		}
		buf := make([]byte, 0, 1+32+4+1+32*len(n.ValuePreimage))
		buf = append(buf, nodeTagLeaf)
		buf = append(buf, n.NodeKey[:]...)
		var flagBuf [4]byte
		binary.BigEndian.PutUint32(flagBuf[:], n.CompressionFlag)
		buf = append(buf, flagBuf[:]...)
		buf = append(buf, byte(len(n.ValuePreimage)))
		for _, s := range n.ValuePreimage {
			buf = append(buf, s[:]...)
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: cannot marshal node of type %v", ErrInvalidEncoding, n.Type)
	}
}

// UnmarshalNode decodes a node from its stored binary form. It fills only
// the structural fields; Leaf nodes additionally need hydrate to
// recompute ValueHash before Hash can be called.
func UnmarshalNode(data []byte) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty node payload", ErrCorruptNode)
	}
	switch data[0] {
	case nodeTagBranch:
		if len(data) != 1+32+32+1+1 {
			return nil, fmt.Errorf("%w: bad branch node length %d", ErrCorruptNode, len(data))
		}
		n := &Node{Type: NodeTypeBranch}
		copy(n.ChildL[:], data[1:33])
		copy(n.ChildR[:], data[33:65])
		n.ChildLType = NodeType(data[65])
		n.ChildRType = NodeType(data[66])
		return n, nil
	case nodeTagLeaf:
		if len(data) < 1+32+4+1 {
			return nil, fmt.Errorf("%w: bad leaf node length %d", ErrCorruptNode, len(data))
		}
		n := &Node{Type: NodeTypeLeaf}
		copy(n.NodeKey[:], data[1:33])
		n.CompressionFlag = binary.BigEndian.Uint32(data[33:37])
		count := int(data[37])
		want := 1 + 32 + 4 + 1 + 32*count
		if len(data) != want {
			return nil, fmt.Errorf("%w: bad leaf slot count %d for payload length %d", ErrCorruptNode, count, len(data))
		}
		n.ValuePreimage = make([]Byte32, count)
		off := 38
		for i := 0; i < count; i++ {
			copy(n.ValuePreimage[i][:], data[off:off+32])
			off += 32
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: unknown node tag %d", ErrCorruptNode, data[0])
	}
}

// hydrate recomputes derived fields the binary encoding omits. It must be
// called on every node freshly loaded from a KVStore before the node is
// used for anything beyond raw structural inspection.
func (n *Node) hydrate(scheme HashScheme) error {
	if n.Type != NodeTypeLeaf {
		return nil
	}
	vh, err := valueHash(scheme, n.ValuePreimage, n.CompressionFlag)
	if err != nil {
		return fmt.Errorf("%w: leaf value hash: %v", ErrCorruptNode, err)
	}
	n.ValueHash = vh
	return nil
}
