package obtree

// This file holds the node-local mutation primitives the engine (engine.go)
// composes into Insert/Remove: entry/child shifting, split, the two
// borrow-from-sibling rebalances, and merge. None of these know about the
// tree as a whole — they only ever touch a node and, where a parent is
// involved, the parent's own entries/children arrays.

func insertEntryAt[K, V any](n *node[K, V], i int, e entry[K, V]) {
	n.entries = append(n.entries, entry[K, V]{})
	copy(n.entries[i+1:], n.entries[i:n.count])
	n.entries[i] = e
	n.count++
}

func removeEntryAt[K, V any](n *node[K, V], i int) entry[K, V] {
	e := n.entries[i]
	copy(n.entries[i:], n.entries[i+1:n.count])
	n.count--
	n.entries = n.entries[:n.count]
	return e
}

func insertChildAt[K, V any](n *node[K, V], i int, c *node[K, V]) {
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:len(n.children)-1])
	n.children[i] = c
	c.parent = n
	reindexChildren(n, i)
}

func removeChildAt[K, V any](n *node[K, V], i int) *node[K, V] {
	c := n.children[i]
	copy(n.children[i:], n.children[i+1:])
	n.children = n.children[:len(n.children)-1]
	reindexChildren(n, i)
	return c
}

func reindexChildren[K, V any](n *node[K, V], from int) {
	for j := from; j < len(n.children); j++ {
		n.children[j].position = uint16(j)
	}
}

// splitIndex picks where to cut a full node of the given count, biased
// toward insertPos (spec §4.3): a node that keeps absorbing inserts at one
// edge — the common sequential-key workload — gets a fresh sibling with
// headroom on that same edge instead of splitting dead down the middle
// every time.
func splitIndex(count, insertPos, minCount int) int {
	// The separator itself takes one slot, so the two sides only have
	// count-1 entries to divide; each must keep at least minCount.
	lo, hi := minCount, count-1-minCount
	mid := count / 2
	switch {
	case insertPos >= count:
		mid = hi
	case insertPos <= 0:
		mid = lo
	}
	if mid < lo {
		mid = lo
	}
	if mid > hi {
		mid = hi
	}
	return mid
}

// split cuts a full node n in two. The entry at the cut point is handed
// back to the caller to install as a separator in n's parent (or in a
// freshly created root); it is not duplicated into either half, since
// internal nodes here hold real entries rather than just routing keys.
func (t *Tree[K, V]) split(n *node[K, V], insertPos int) (sep entry[K, V], right *node[K, V]) {
	si := splitIndex(int(n.count), insertPos, t.minNodeKV)
	sep = n.entries[si]

	rightKind := kindLeaf
	if !n.isLeaf() {
		rightKind = kindInternal
	}
	right = newNode[K, V](t.alloc, rightKind, t.nodeKV, t.esz)

	right.entries = append(right.entries, n.entries[si+1:n.count]...)
	right.count = uint16(len(right.entries))

	n.count = uint16(si)
	n.entries = n.entries[:si]

	if !n.isLeaf() {
		right.children = append(right.children, n.children[si+1:]...)
		n.children = n.children[:si+1]
		for i, c := range right.children {
			c.parent = right
			c.position = uint16(i)
		}
	}
	return sep, right
}

// rebalanceLeftToRight borrows the last entry (and, for internal nodes, the
// last child) of parent.children[i] and rotates it through the separator at
// parent.entries[i] into parent.children[i+1].
func rebalanceLeftToRight[K, V any](parent *node[K, V], i int) {
	left, right := parent.children[i], parent.children[i+1]

	borrowed := removeEntryAt(left, int(left.count)-1)
	insertEntryAt(right, 0, parent.entries[i])
	parent.entries[i] = borrowed

	if !left.isLeaf() {
		c := removeChildAt(left, len(left.children)-1)
		insertChildAt(right, 0, c)
	}
}

// rebalanceRightToLeft is rebalanceLeftToRight's mirror: borrows from the
// right sibling into the left.
func rebalanceRightToLeft[K, V any](parent *node[K, V], i int) {
	left, right := parent.children[i], parent.children[i+1]

	borrowed := removeEntryAt(right, 0)
	insertEntryAt(left, int(left.count), parent.entries[i])
	parent.entries[i] = borrowed

	if !left.isLeaf() {
		c := removeChildAt(right, 0)
		insertChildAt(left, len(left.children), c)
	}
}

// merge folds parent.children[i+1] and the separator at parent.entries[i]
// into parent.children[i], then removes both the separator and the now-
// empty right sibling from parent. The caller is responsible for freeing
// the returned node.
func (t *Tree[K, V]) merge(parent *node[K, V], i int) *node[K, V] {
	left, right := parent.children[i], parent.children[i+1]

	insertEntryAt(left, int(left.count), parent.entries[i])
	left.entries = append(left.entries, right.entries...)
	left.count += right.count

	if !left.isLeaf() {
		base := len(left.children)
		left.children = append(left.children, right.children...)
		for j := base; j < len(left.children); j++ {
			left.children[j].parent = left
			left.children[j].position = uint16(j)
		}
	}

	removeEntryAt(parent, i)
	removeChildAt(parent, i+1)
	return right
}
