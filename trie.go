package zktrie

import "fmt"

// maxDepth is the deepest a path may descend: the field is slightly
// smaller than 2^256, so only the low 248 bits of a node key are safe to
// use as a bit path (the top byte is never consulted).
const maxDepth = 248

// Trie is a sparse binary Merkle Patricia trie committed with a
// HashScheme over node keys derived by a KeyHasher. It holds a working set
// of nodes touched since the last Commit; nodes are only written to the
// backing KVStore on Commit, never eagerly.
type Trie struct {
	scheme    HashScheme
	db        KVStore
	keyHasher KeyHasher

	root  Hash
	nodes map[Hash]*Node
	dirty bool
}

// New returns an empty trie backed by db, using DefaultHashScheme for
// hashing and keyHasher for deriving node keys from raw keys.
func New(db KVStore, keyHasher KeyHasher) *Trie {
	return NewWithScheme(db, keyHasher, DefaultHashScheme)
}

// NewWithScheme is New with an explicit HashScheme, for tests and callers
// that need a non-default scheme.
func NewWithScheme(db KVStore, keyHasher KeyHasher, scheme HashScheme) *Trie {
	return &Trie{
		scheme:    scheme,
		db:        db,
		keyHasher: keyHasher,
		nodes:     make(map[Hash]*Node),
	}
}

// NewAt resumes a trie at a previously committed root.
func NewAt(db KVStore, keyHasher KeyHasher, root Hash) *Trie {
	t := New(db, keyHasher)
	t.root = root
	return t
}

// Root returns the trie's current root hash. It reflects uncommitted
// updates immediately; Commit only persists it.
func (t *Trie) Root() Hash {
	return t.root
}

// IsDirty reports whether the trie has updates not yet persisted via
// Commit.
func (t *Trie) IsDirty() bool {
	return t.dirty
}

// bitAt returns bit depth of h, LSB-first, counting from the least
// significant bit of the low 31 bytes. depth must be in [0, maxDepth).
func bitAt(h Hash, depth int) int {
	byteIdx := 31 - depth/8
	bitIdx := uint(depth % 8)
	return int((h[byteIdx] >> bitIdx) & 1)
}

// resolveNode returns the node stored at hash h, consulting the working
// set before the backend. The zero hash always resolves to an empty node
// without a backend round trip.
func (t *Trie) resolveNode(h Hash) (*Node, error) {
	if h == zeroHash {
		return newEmptyNode(), nil
	}
	if n, ok := t.nodes[h]; ok {
		return n, nil
	}
	data, err := t.db.Get(h[:])
	if err != nil {
		return nil, fmt.Errorf("%w: loading node %x: %v", ErrBackendUnavailable, h, err)
	}
	n, err := UnmarshalNode(data)
	if err != nil {
		return nil, err
	}
	if err := n.hydrate(t.scheme); err != nil {
		return nil, err
	}
	got, err := n.Hash(t.scheme)
	if err != nil {
		return nil, err
	}
	if got != h {
		return nil, fmt.Errorf("%w: node %x rehashes to %x", ErrCorruptNode, h, got)
	}
	t.nodes[h] = n
	return n, nil
}

// storeNode computes n's hash, marks it dirty, and inserts it into the
// working set, returning its hash.
func (t *Trie) storeNode(n *Node) (Hash, error) {
	h, err := n.Hash(t.scheme)
	if err != nil {
		return Hash{}, err
	}
	n.dirty = true
	t.nodes[h] = n
	return h, nil
}

// spineStep is one level of a root-to-terminal descent: the branch node
// visited at that level, and which side (0 = left, 1 = right) the descent
// took out of it.
type spineStep struct {
	node *Node
	side int
}

// descend walks from the root along nodeKey's bit path, stopping at the
// first non-Branch node (Empty or Leaf) or at maxDepth. It returns the
// sequence of Branch nodes visited (spine) and the terminal node reached.
func (t *Trie) descend(nodeKey Hash) (spine []spineStep, terminal *Node, err error) {
	cur := t.root
	for depth := 0; depth < maxDepth; depth++ {
		n, err := t.resolveNode(cur)
		if err != nil {
			return nil, nil, err
		}
		if n.Type != NodeTypeBranch {
			return spine, n, nil
		}
		side := bitAt(nodeKey, depth)
		spine = append(spine, spineStep{node: n, side: side})
		if side == 0 {
			cur = n.ChildL
		} else {
			cur = n.ChildR
		}
	}
	n, err := t.resolveNode(cur)
	if err != nil {
		return nil, nil, err
	}
	if n.Type == NodeTypeBranch {
		return nil, nil, fmt.Errorf("%w: descent past depth %d", ErrDepthExceeded, maxDepth)
	}
	return spine, n, nil
}

// Get returns the decoded value slots stored for rawKey.
func (t *Trie) Get(rawKey []byte) ([]Byte32, error) {
	leaf, err := t.GetLeaf(rawKey)
	if err != nil {
		return nil, err
	}
	return leaf.ValuePreimage, nil
}

// GetLeaf returns the raw leaf node stored for rawKey, for callers that
// need the node key, compression flag, or value hash directly (e.g. a
// storage-trie root embedded in an account leaf) rather than just the
// decoded slots.
func (t *Trie) GetLeaf(rawKey []byte) (*Node, error) {
	nodeKey, err := t.keyHasher.SecureKey(rawKey)
	if err != nil {
		return nil, err
	}
	_, terminal, err := t.descend(nodeKey)
	if err != nil {
		return nil, err
	}
	if terminal.Type != NodeTypeLeaf || terminal.NodeKey != nodeKey {
		return nil, ErrKeyNotFound
	}
	return terminal, nil
}

// Update inserts or overwrites the value at rawKey with slots and flag. A
// key exactly equal to an existing key, or a different key that agrees
// with it on all maxDepth path bits (differing only in the top byte),
// overwrites that existing leaf in place rather than attempting to push
// the path deeper than the field supports. Keys that first differ at bit
// maxDepth-1 still become sibling leaves.
func (t *Trie) Update(rawKey []byte, slots []Byte32, flag uint32) error {
	nodeKey, err := t.keyHasher.SecureKey(rawKey)
	if err != nil {
		return err
	}
	newLeaf, err := newLeafNode(t.scheme, nodeKey, flag, slots)
	if err != nil {
		return err
	}

	spine, terminal, err := t.descend(nodeKey)
	if err != nil {
		return err
	}

	var childHash Hash
	var childType NodeType
	switch {
	case terminal.Type == NodeTypeEmpty:
		childHash, err = t.storeNode(newLeaf)
		childType = NodeTypeLeaf
	case terminal.Type == NodeTypeLeaf && terminal.NodeKey == nodeKey:
		childHash, err = t.storeNode(newLeaf)
		childType = NodeTypeLeaf
	case terminal.Type == NodeTypeLeaf:
		childHash, childType, err = t.pushDown(terminal, newLeaf, len(spine))
	default:
		err = fmt.Errorf("%w: unexpected terminal node type %v", ErrCorruptNode, terminal.Type)
	}
	if err != nil {
		return err
	}

	root, err := t.rehashSpine(spine, childHash, childType)
	if err != nil {
		return err
	}
	t.root = root
	t.dirty = true
	return nil
}

// pushDown resolves a collision between an existing leaf and a new leaf
// whose node keys agree on the bit path down to depth d but diverge
// below it. It lengthens the path with Branch(Empty, X) chains until the
// two keys' bits diverge, then plants both leaves as siblings of a single
// branch at the divergence depth. If the keys are identical, or agree on
// every bit up to maxDepth (so no divergence depth exists within the
// field's usable range), the new leaf simply overwrites the old one.
func (t *Trie) pushDown(existing, newLeaf *Node, d int) (Hash, NodeType, error) {
	k1, k2 := existing.NodeKey, newLeaf.NodeKey
	if k1 == k2 {
		h, err := t.storeNode(newLeaf)
		return h, NodeTypeLeaf, err
	}

	dstar := d
	for dstar < maxDepth && bitAt(k1, dstar) == bitAt(k2, dstar) {
		dstar++
	}
	if dstar >= maxDepth {
		h, err := t.storeNode(newLeaf)
		return h, NodeTypeLeaf, err
	}

	h1, err := existing.Hash(t.scheme)
	if err != nil {
		return Hash{}, 0, err
	}
	h2, err := t.storeNode(newLeaf)
	if err != nil {
		return Hash{}, 0, err
	}

	var branchHash Hash
	var branchType NodeType
	if bitAt(k1, dstar) == 0 {
		branchHash, err = t.storeBranch(h1, NodeTypeLeaf, h2, NodeTypeLeaf)
	} else {
		branchHash, err = t.storeBranch(h2, NodeTypeLeaf, h1, NodeTypeLeaf)
	}
	if err != nil {
		return Hash{}, 0, err
	}
	branchType = NodeTypeBranch

	for depth := dstar - 1; depth >= d; depth-- {
		side := bitAt(k1, depth)
		if side == 0 {
			branchHash, err = t.storeBranch(branchHash, branchType, zeroHash, NodeTypeEmpty)
		} else {
			branchHash, err = t.storeBranch(zeroHash, NodeTypeEmpty, branchHash, branchType)
		}
		if err != nil {
			return Hash{}, 0, err
		}
		branchType = NodeTypeBranch
	}
	return branchHash, branchType, nil
}

func (t *Trie) storeBranch(l Hash, lt NodeType, r Hash, rt NodeType) (Hash, error) {
	return t.storeNode(newBranchNode(l, lt, r, rt))
}

// rehashSpine rebuilds each branch on spine, from deepest to shallowest,
// substituting childHash/childType for the side the descent took, and
// returns the new root hash.
func (t *Trie) rehashSpine(spine []spineStep, childHash Hash, childType NodeType) (Hash, error) {
	curHash, curType := childHash, childType
	for i := len(spine) - 1; i >= 0; i-- {
		step := spine[i]
		var h Hash
		var err error
		if step.side == 0 {
			h, err = t.storeBranch(curHash, curType, step.node.ChildR, step.node.ChildRType)
		} else {
			h, err = t.storeBranch(step.node.ChildL, step.node.ChildLType, curHash, curType)
		}
		if err != nil {
			return Hash{}, err
		}
		curHash, curType = h, NodeTypeBranch
	}
	return curHash, nil
}

// Delete removes the leaf at rawKey. Deleting an absent key returns
// ErrKeyNotFound. Contraction collapses any Branch(Empty, Leaf) or
// Branch(Leaf, Empty) left behind by the removal upward into a bare leaf;
// a Branch with one Empty child and one Branch child is rehashed in place
// but not collapsed further, since collapsing it would change the meaning
// of the bits already consumed on the path to its surviving descendant.
func (t *Trie) Delete(rawKey []byte) error {
	nodeKey, err := t.keyHasher.SecureKey(rawKey)
	if err != nil {
		return err
	}
	spine, terminal, err := t.descend(nodeKey)
	if err != nil {
		return err
	}
	if terminal.Type != NodeTypeLeaf || terminal.NodeKey != nodeKey {
		return ErrKeyNotFound
	}

	curHash, curType := zeroHash, NodeTypeEmpty
	for i := len(spine) - 1; i >= 0; i-- {
		step := spine[i]
		var siblingHash Hash
		var siblingType NodeType
		if step.side == 0 {
			siblingHash, siblingType = step.node.ChildR, step.node.ChildRType
		} else {
			siblingHash, siblingType = step.node.ChildL, step.node.ChildLType
		}

		switch {
		case curType == NodeTypeEmpty && siblingType == NodeTypeEmpty:
			return fmt.Errorf("%w: branch with two empty children", ErrCorruptNode)
		case curType == NodeTypeEmpty && siblingType == NodeTypeLeaf:
			curHash, curType = siblingHash, siblingType
		case siblingType == NodeTypeEmpty && curType == NodeTypeLeaf:
			curHash, curType = curHash, curType
		default:
			var h Hash
			var err error
			if step.side == 0 {
				h, err = t.storeBranch(curHash, curType, siblingHash, siblingType)
			} else {
				h, err = t.storeBranch(siblingHash, siblingType, curHash, curType)
			}
			if err != nil {
				return err
			}
			curHash, curType = h, NodeTypeBranch
		}
	}

	t.root = curHash
	t.dirty = true
	return nil
}
