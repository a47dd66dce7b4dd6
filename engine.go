package obtree

import (
	"cmp"

	"github.com/google/uuid"

	"obtree/alloc"
)

// Tree is an ordered key→value map backed by a B-tree of fixed-byte-budget
// nodes (package doc has the full picture). It is not safe for concurrent
// use — per the allocator contract it owns its Allocator exclusively, and
// nothing inside the engine synchronizes access, the same contract an
// ordinary Go map makes.
type Tree[K any, V comparable] struct {
	root *node[K, V]
	size int

	// leftmost/rightmost are recomputed by a root-to-leaf descent after
	// every structural change rather than incrementally patched through
	// every split/merge/rebalance call site. Spec §9's footer redesign
	// moves this bookkeeping off the root node and into the tree handle
	// specifically so Cursor.Begin/End don't need a node walk; an O(height)
	// descent after each mutation gets the same end result without having
	// to reason about every code path that could leave a stale pointer
	// behind, and height stays in the single digits for any tree that
	// fits in memory.
	leftmost  *node[K, V]
	rightmost *node[K, V]

	nodeKV    int
	minNodeKV int
	esz       int

	cmp    Comparator[K]
	alloc  alloc.Allocator
	logger Logger

	id uuid.UUID
}

// New creates a Tree ordered by K's natural order. K must satisfy
// cmp.Ordered; for key types that don't (or to override natural order),
// use NewWithComparator.
func New[K cmp.Ordered, V comparable](opts ...Option[K, V]) *Tree[K, V] {
	return newTree(DefaultComparator[K](), opts...)
}

// NewWithComparator creates a Tree ordered by the given Comparator. Use
// this for key types with no natural order, or to impose a non-default
// one (e.g. case-insensitive strings).
func NewWithComparator[K any, V comparable](c Comparator[K], opts ...Option[K, V]) *Tree[K, V] {
	return newTree(c, opts...)
}

func newTree[K any, V comparable](c Comparator[K], opts ...Option[K, V]) *Tree[K, V] {
	cfg := defaultConfig[K, V]()
	cfg.cmp = c
	for _, opt := range opts {
		opt(&cfg)
	}

	esz := entrySize[K, V]()
	nodeKV, minNodeKV := capacities(cfg.targetNodeBytes, esz)
	id := uuid.New()

	root := newNode[K, V](cfg.alloc, kindLeafRoot, 1, esz)
	t := &Tree[K, V]{
		root:      root,
		nodeKV:    nodeKV,
		minNodeKV: minNodeKV,
		esz:       esz,
		cmp:       cfg.cmp,
		alloc:     cfg.alloc,
		logger:    withInstance(cfg.logger, id),
		id:        id,
	}
	t.leftmost, t.rightmost = root, root
	return t
}

// InstanceID uniquely identifies this Tree for log correlation across a
// process with many live trees.
func (t *Tree[K, V]) InstanceID() uuid.UUID { return t.id }

// locate performs a root-to-leaf search for k, stopping as soon as k is
// found in whichever node — leaf or internal — actually holds it.
func (t *Tree[K, V]) locate(k K) (n *node[K, V], i int, ok bool) {
	n = t.root
	for {
		i = n.linearSearch(t.cmp, k)
		if i < int(n.count) && t.cmp.Eq(n.key(i), k) {
			return n, i, true
		}
		if n.isLeaf() {
			return n, i, false
		}
		n = n.children[i]
	}
}

// recomputeEdges walks from the root to the leftmost and rightmost leaves.
func (t *Tree[K, V]) recomputeEdges() {
	n := t.root
	for !n.isLeaf() {
		n = n.children[0]
	}
	t.leftmost = n

	n = t.root
	for !n.isLeaf() {
		n = n.children[len(n.children)-1]
	}
	t.rightmost = n
}

// growLeafRoot doubles (capped at nodeKV) a small-leaf-root's capacity,
// carving a new allocator-owned entries array and copying the existing
// entries into it. It never touches anything but the root.
func (t *Tree[K, V]) growLeafRoot(n *node[K, V]) *node[K, V] {
	newMax := int(n.maxCount) * 2
	if newMax > t.nodeKV {
		newMax = t.nodeKV
	}
	nn := newNode[K, V](t.alloc, kindLeafRoot, newMax, t.esz)
	nn.entries = append(nn.entries, n.entries...)
	nn.count = n.count
	freeNode(t.alloc, n, t.esz)
	if t.leftmost == n {
		t.leftmost = nn
	}
	if t.rightmost == n {
		t.rightmost = nn
	}
	return nn
}

// splitRootNode splits a full root (leaf or internal) in two under a fresh
// internal root, biased by where k will land. It handles both the
// small-leaf-root-at-capacity case and the internal-root-overflow case
// uniformly: the only difference is what kind the old root settles into.
func (t *Tree[K, V]) splitRootNode(k K) {
	old := t.root
	pos := old.linearSearch(t.cmp, k)
	sep, right := t.split(old, pos)

	if old.isLeaf() {
		old.kind = kindLeaf
	} else {
		old.kind = kindInternal
	}

	newRoot := newNode[K, V](t.alloc, kindInternalRoot, t.nodeKV, t.esz)
	newRoot.entries = append(newRoot.entries, sep)
	newRoot.count = 1
	newRoot.children = append(newRoot.children, old, right)
	old.parent, old.position = newRoot, 0
	right.parent, right.position = newRoot, 1

	t.root = newRoot
	t.recomputeEdges()
	t.logger.Info("root height increased", "new_root_kind", "internal-root")
}

// splitChild splits parent.children[i], biased by where k will land, and
// installs the separator and new sibling into parent.
func (t *Tree[K, V]) splitChild(parent *node[K, V], i int, k K) {
	child := parent.children[i]
	pos := child.linearSearch(t.cmp, k)
	sep, right := t.split(child, pos)
	insertEntryAt(parent, i, sep)
	insertChildAt(parent, i+1, right)
}

// ensureInsertable guarantees parent.children[i] has room for one more
// entry before the caller descends into it. It is insert's mirror of
// ensureDescendable: instead of borrowing a spare entry from a sibling into
// a deficient child, it rotates an entry out of the full child and into
// whichever neighbor has slack, through the separator between them. Only
// when neither sibling has room does it fall back to splitting the child.
//
// A rotation shifts the separator, and so which child k now sorts into —
// the caller must re-search parent afterward, which is why this returns
// the (possibly shifted) index rather than mutating in place. That
// re-search might land k in the sibling that just absorbed the rotated
// entry rather than back in the original child, so a sibling only
// qualifies if it has at least two free slots, not merely one: one slot
// is consumed by the entry rotating in, and the insert still needs to
// land in a non-full node afterward.
func (t *Tree[K, V]) ensureInsertable(parent *node[K, V], i int, k K) int {
	child := parent.children[i]
	if !child.full() {
		return i
	}
	switch {
	case i > 0 && int(parent.children[i-1].count) < int(parent.children[i-1].maxCount)-1:
		rebalanceRightToLeft(parent, i-1)
	case i < int(parent.count) && int(parent.children[i+1].count) < int(parent.children[i+1].maxCount)-1:
		rebalanceLeftToRight(parent, i)
	default:
		t.splitChild(parent, i, k)
	}
	return parent.linearSearch(t.cmp, k)
}

// Add inserts k→v, failing with ErrDuplicateKey if k is already present.
func (t *Tree[K, V]) Add(k K, v V) error {
	return t.insert(k, v, false)
}

// Set inserts k→v, overwriting any existing value for k.
func (t *Tree[K, V]) Set(k K, v V) {
	_ = t.insert(k, v, true)
}

func (t *Tree[K, V]) insert(k K, v V, upsert bool) error {
	if n, i, ok := t.locate(k); ok {
		if !upsert {
			return ErrDuplicateKey
		}
		n.setValue(i, v)
		return nil
	}

	if t.root.full() {
		if t.root.kind == kindLeafRoot && int(t.root.maxCount) < t.nodeKV {
			t.root = t.growLeafRoot(t.root)
		} else {
			t.splitRootNode(k)
		}
	}

	n := t.root
	var i int
	for {
		i = n.linearSearch(t.cmp, k)
		if n.isLeaf() {
			break
		}
		i = t.ensureInsertable(n, i, k)
		n = n.children[i]
	}

	insertEntryAt(n, i, entry[K, V]{key: k, val: v})
	t.size++
	t.recomputeEdges()
	return nil
}

// ensureDescendable guarantees parent.children[i] holds more than
// minNodeKV entries before the caller descends into it: the delete-side
// mirror of insert's preemptive split. It returns the (possibly shifted)
// index of the child to descend into, since a left-merge shifts it down
// by one.
func (t *Tree[K, V]) ensureDescendable(parent *node[K, V], i int) int {
	child := parent.children[i]
	if int(child.count) > t.minNodeKV {
		return i
	}
	switch {
	case i > 0 && int(parent.children[i-1].count) > t.minNodeKV:
		rebalanceLeftToRight(parent, i-1)
	case i < int(parent.count) && int(parent.children[i+1].count) > t.minNodeKV:
		rebalanceRightToLeft(parent, i)
	case i > 0:
		t.logger.Warn("no sibling has spare capacity to rebalance, merging left instead")
		t.mergeAndFree(parent, i-1)
		i--
	default:
		t.logger.Warn("no sibling has spare capacity to rebalance, merging right instead")
		t.mergeAndFree(parent, i)
	}
	return i
}

func (t *Tree[K, V]) mergeAndFree(parent *node[K, V], i int) {
	dead := t.merge(parent, i)
	freeNode(t.alloc, dead, t.esz)
}

func (t *Tree[K, V]) removeMax(n *node[K, V]) entry[K, V] {
	for !n.isLeaf() {
		i := t.ensureDescendable(n, len(n.children)-1)
		n = n.children[i]
	}
	return removeEntryAt(n, int(n.count)-1)
}

func (t *Tree[K, V]) removeMin(n *node[K, V]) entry[K, V] {
	for !n.isLeaf() {
		i := t.ensureDescendable(n, 0)
		n = n.children[i]
	}
	return removeEntryAt(n, 0)
}

// deleteFromInternal handles removal when k is found at n.entries[i] in a
// non-leaf node. It borrows a predecessor/successor from whichever
// neighbor child can spare one, or — if neither can — merges the two
// children around the entry and continues the removal inside the merged
// node, where k now lives.
func (t *Tree[K, V]) deleteFromInternal(n *node[K, V], i int, k K) {
	left, right := n.children[i], n.children[i+1]
	switch {
	case int(left.count) > t.minNodeKV:
		n.entries[i] = t.removeMax(left)
	case int(right.count) > t.minNodeKV:
		n.entries[i] = t.removeMin(right)
	default:
		t.mergeAndFree(n, i)
		_ = t.removeFrom(left, k)
	}
}

func (t *Tree[K, V]) removeFrom(n *node[K, V], k K) error {
	for {
		i := n.linearSearch(t.cmp, k)
		if i < int(n.count) && t.cmp.Eq(n.key(i), k) {
			if n.isLeaf() {
				removeEntryAt(n, i)
			} else {
				t.deleteFromInternal(n, i, k)
			}
			return nil
		}
		if n.isLeaf() {
			return ErrKeyNotFound
		}
		i = t.ensureDescendable(n, i)
		n = n.children[i]
	}
}

// shrinkRoot collapses an internal root left with no entries (exactly one
// child, the tree's height having dropped by one) into its sole child.
func (t *Tree[K, V]) shrinkRoot() {
	if t.root.isLeaf() || t.root.count > 0 {
		return
	}
	old := t.root
	child := old.children[0]
	if child.isLeaf() {
		child.kind = kindLeafRoot
	} else {
		child.kind = kindInternalRoot
	}
	child.parent = nil
	child.position = 0
	t.root = child
	freeNode(t.alloc, old, t.esz)
	t.logger.Info("root height decreased")
}

// Remove deletes k, failing with ErrKeyNotFound if it is absent.
func (t *Tree[K, V]) Remove(k K) error {
	// The descent may merge or rebalance nodes even when k turns out to be
	// absent, so the root and edges are fixed up on both outcomes.
	err := t.removeFrom(t.root, k)
	if err == nil {
		t.size--
	}
	t.shrinkRoot()
	t.recomputeEdges()
	return err
}

// Dispose releases every node's allocator-owned entries array. The Tree
// must not be used afterward.
func (t *Tree[K, V]) Dispose() {
	var walk func(n *node[K, V])
	walk = func(n *node[K, V]) {
		for _, c := range n.children {
			walk(c)
		}
		freeNode(t.alloc, n, t.esz)
	}
	if t.root != nil {
		walk(t.root)
	}
	t.root = nil
	t.leftmost, t.rightmost = nil, nil
	t.size = 0
}
