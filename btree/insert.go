package btree

import "BurrowDB/types"

// putLeaf inserts an entry into a non-full leaf, keeping the key array
// non-decreasing. Equal keys are admitted left of existing ones; only the
// ordering matters.
func (t *tree[K]) putLeaf(n leafNode[K], entry ridKeyPair[K]) {
	pos := 0
	for pos < t.leafCap && n.occupied(pos) {
		if t.codec.compare(n.key(pos), entry.key) >= 0 {
			break
		}
		pos++
	}
	for i := t.leafCap - 1; i > pos; i-- {
		n.setRID(i, n.rid(i-1))
		n.setKey(i, n.key(i-1))
	}
	n.setRID(pos, entry.rid)
	n.setKey(pos, entry.key)
}

// putInner inserts a separator into a non-full non-leaf. At the right edge
// (the slot past the occupied prefix) the key lands one slot left of the
// child, which keeps key[i] between child[i] and child[i+1].
func (t *tree[K]) putInner(n innerNode[K], sep pageKeyPair[K]) {
	pos := 0
	for pos < t.innerCap && n.child(pos) != 0 {
		if t.codec.compare(n.key(pos), sep.key) >= 0 {
			break
		}
		pos++
	}
	for i := t.innerCap - 1; i > pos; i-- {
		n.setKey(i, n.key(i-1))
		n.setChild(i+1, n.child(i))
	}
	if n.child(pos) == 0 {
		n.setKey(pos-1, sep.key)
		n.setChild(pos, sep.pageNo)
	} else {
		n.setKey(pos, sep.key)
		n.setChild(pos+1, sep.pageNo)
	}
}

// splitLeaf splits a full leaf around mid, links the new leaf into the
// sibling chain, inserts the pending entry into whichever half owns it, and
// returns the separator to promote. The caller owns the source pin and must
// mark it dirty.
func (t *tree[K]) splitLeaf(n leafNode[K], entry ridKeyPair[K]) (pageKeyPair[K], error) {
	var zero pageKeyPair[K]
	mid := t.leafCap/2 + 1

	np, err := t.allocPage()
	if err != nil {
		return zero, err
	}
	defer np.release()
	nn := t.leafNode(np.data)

	for i := mid; i < t.leafCap; i++ {
		nn.setKey(i-mid, n.key(i))
		nn.setRID(i-mid, n.rid(i))
		n.setRID(i, types.RecordID{})
	}
	nn.setRightSib(n.rightSib())
	n.setRightSib(np.pageNo)

	sep := pageKeyPair[K]{pageNo: np.pageNo, key: nn.key(0)}
	if t.codec.compare(entry.key, sep.key) < 0 {
		t.putLeaf(n, entry)
	} else {
		t.putLeaf(nn, entry)
	}

	np.markDirty()
	return sep, np.release()
}

// splitInner splits a full non-leaf around mid. Keys and children right of
// mid move to the new node, the mid child stays with the source, and the
// mid key is promoted to the parent without remaining in either half. Every
// child therefore lives in exactly one node and both halves keep key[i]
// between child[i] and child[i+1]. The pending separator then goes into
// whichever half its key falls in, relative to the promoted key.
func (t *tree[K]) splitInner(n innerNode[K], sep pageKeyPair[K]) (pageKeyPair[K], error) {
	var zero pageKeyPair[K]
	mid := t.innerCap/2 + 1

	np, err := t.allocPage()
	if err != nil {
		return zero, err
	}
	defer np.release()
	nn := t.innerNode(np.data)
	nn.setLevel(n.level())

	promoted := pageKeyPair[K]{pageNo: np.pageNo, key: n.key(mid)}

	for i := mid + 1; i < t.innerCap; i++ {
		nn.setKey(i-mid-1, n.key(i))
	}
	for i := mid + 1; i <= t.innerCap; i++ {
		nn.setChild(i-mid-1, n.child(i))
		n.setChild(i, 0)
	}

	if t.codec.compare(sep.key, promoted.key) < 0 {
		t.putInner(n, sep)
	} else {
		t.putInner(nn, sep)
	}

	np.markDirty()
	return promoted, np.release()
}

// growRoot replaces the root with a fresh non-leaf holding the old root and
// the promoted separator, then rewrites the header's root pointer.
func (t *tree[K]) growRoot(oldRoot uint32, sep pageKeyPair[K], childrenAreLeaves bool) error {
	np, err := t.allocPage()
	if err != nil {
		return err
	}
	defer np.release()
	nn := t.innerNode(np.data)
	if childrenAreLeaves {
		nn.setLevel(1)
	}
	nn.setChild(0, oldRoot)
	nn.setChild(1, sep.pageNo)
	nn.setKey(0, sep.key)
	np.markDirty()
	if err := np.release(); err != nil {
		return err
	}

	t.rootPage = np.pageNo
	t.rootIsLeaf = false

	hp, err := t.readPage(t.headerPage)
	if err != nil {
		return err
	}
	defer hp.release()
	indexMeta{hp.data}.setRootPage(t.rootPage)
	hp.markDirty()
	return hp.release()
}

// insertRootLeaf handles the single-leaf tree: insert in place, or split
// the root leaf and grow the first non-leaf root above it.
func (t *tree[K]) insertRootLeaf(entry ridKeyPair[K]) error {
	rp, err := t.readPage(t.rootPage)
	if err != nil {
		return err
	}
	defer rp.release()
	leaf := t.leafNode(rp.data)

	if !leaf.full() {
		t.putLeaf(leaf, entry)
		rp.markDirty()
		return rp.release()
	}

	oldRoot := t.rootPage
	sep, err := t.splitLeaf(leaf, entry)
	if err != nil {
		return err
	}
	rp.markDirty()
	if err := rp.release(); err != nil {
		return err
	}
	return t.growRoot(oldRoot, sep, true)
}

// descend inserts the entry in the subtree rooted at the non-leaf page
// curr. It returns the zero pageKeyPair unless curr itself split, in which
// case the caller must place the promoted separator.
func (t *tree[K]) descend(curr uint32, entry ridKeyPair[K]) (pageKeyPair[K], error) {
	var zero pageKeyPair[K]

	cp, err := t.readPage(curr)
	if err != nil {
		return zero, err
	}
	defer cp.release()
	node := t.innerNode(cp.data)
	childNo := node.child(t.findChild(node, entry.key, false))

	if node.level() == 1 {
		// Children are leaves: insert here, splitting as needed.
		chp, err := t.readPage(childNo)
		if err != nil {
			return zero, err
		}
		defer chp.release()
		leaf := t.leafNode(chp.data)

		var promoted pageKeyPair[K]
		if !leaf.full() {
			t.putLeaf(leaf, entry)
		} else {
			sep, err := t.splitLeaf(leaf, entry)
			if err != nil {
				return zero, err
			}
			if !node.full() {
				t.putInner(node, sep)
			} else {
				if promoted, err = t.splitInner(node, sep); err != nil {
					return zero, err
				}
			}
			cp.markDirty()
		}
		chp.markDirty()
		if err := chp.release(); err != nil {
			return zero, err
		}
		return promoted, cp.release()
	}

	// Interior level: drop the pin across the recursion so the descent
	// never holds more than a handful of pages.
	if err := cp.release(); err != nil {
		return zero, err
	}
	childSep, err := t.descend(childNo, entry)
	if err != nil {
		return zero, err
	}
	if childSep.pageNo == 0 {
		return zero, nil
	}

	cp2, err := t.readPage(curr)
	if err != nil {
		return zero, err
	}
	defer cp2.release()
	node = t.innerNode(cp2.data)

	var promoted pageKeyPair[K]
	if !node.full() {
		t.putInner(node, childSep)
	} else {
		if promoted, err = t.splitInner(node, childSep); err != nil {
			return zero, err
		}
	}
	cp2.markDirty()
	return promoted, cp2.release()
}

// insert drives one entry into the tree. A live separator surfacing from
// the descent means the root overflowed and a new root must be grown.
func (t *tree[K]) insert(entry ridKeyPair[K]) error {
	if t.rootIsLeaf {
		return t.insertRootLeaf(entry)
	}
	oldRoot := t.rootPage
	sep, err := t.descend(oldRoot, entry)
	if err != nil {
		return err
	}
	if sep.pageNo != 0 {
		return t.growRoot(oldRoot, sep, false)
	}
	return nil
}
