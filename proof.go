package zktrie

// ProofPath is a Merkle inclusion proof for one key: the terminal node
// reached by descending on NodeKey's bit path, plus the sibling hash
// skipped over at each level from the root down to the terminal.
type ProofPath struct {
	NodeKey  Hash
	Siblings []Hash
	Terminal *Node
}

// Depth returns the number of branch levels the proof crosses, i.e. how
// deep the terminal node sits below the root.
func (p *ProofPath) Depth() int {
	return len(p.Siblings)
}

// Prove builds a ProofPath for rawKey against the trie's current root.
// The proof is valid whether or not rawKey is actually present: a
// non-membership proof has a Terminal of type Empty or a Leaf with a
// different NodeKey.
func (t *Trie) Prove(rawKey []byte) (*ProofPath, error) {
	nodeKey, err := t.keyHasher.SecureKey(rawKey)
	if err != nil {
		return nil, err
	}
	spine, terminal, err := t.descend(nodeKey)
	if err != nil {
		return nil, err
	}
	siblings := make([]Hash, len(spine))
	for i, step := range spine {
		if step.side == 0 {
			siblings[i] = step.node.ChildR
		} else {
			siblings[i] = step.node.ChildL
		}
	}
	return &ProofPath{NodeKey: nodeKey, Siblings: siblings, Terminal: terminal}, nil
}

// Verify recomputes the root implied by p against scheme and reports
// whether it matches root. It rebuilds the hash chain from the terminal
// node up to the root, using NodeKey's bits to decide, at each level,
// whether the reconstructed hash so far was the left or right child.
func (p *ProofPath) Verify(scheme HashScheme, root Hash) (bool, error) {
	cur, err := p.Terminal.Hash(scheme)
	if err != nil {
		return false, err
	}
	for i := len(p.Siblings) - 1; i >= 0; i-- {
		sib := p.Siblings[i]
		if bitAt(p.NodeKey, i) == 0 {
			cur, err = scheme.Hash(cur, sib)
		} else {
			cur, err = scheme.Hash(sib, cur)
		}
		if err != nil {
			return false, err
		}
	}
	return cur == root, nil
}
