package obtree

import (
	"unsafe"

	"obtree/alloc"
)

// kind tags a node's shape, replacing the self-loop/parent.is_leaf root
// detection trick a straight port of the source algorithm would need
// (spec §9 "Cyclic parent pointers" names this exact simplification: a
// one-byte kind tag removes the aliasing hazard outright).
type kind uint8

const (
	kindLeafRoot     kind = iota // small leaf root, capacity grows 1, 2, 4, ... up to nodeKV
	kindLeaf                     // regular leaf, child of an internal node
	kindInternal                 // internal node
	kindInternalRoot             // the unique internal node with no parent
)

func (k kind) isLeaf() bool { return k == kindLeafRoot || k == kindLeaf }
func (k kind) isRoot() bool { return k == kindLeafRoot || k == kindInternalRoot }

// entry is an ordered (key, value) pair, stored contiguously in a node's
// entries array. K and V are required by spec §3/§6 to be fixed-size and
// trivially copyable — no embedded references into a managed heap — which
// is exactly what lets the entries array live in allocator-owned raw
// memory instead of ordinary GC-tracked storage.
type entry[K, V any] struct {
	key K
	val V
}

func entrySize[K, V any]() int {
	return int(unsafe.Sizeof(entry[K, V]{}))
}

// node is a B-tree node. Its entries array is carved out of a byte region
// returned by the tree's Allocator (spec §4.1) — that's the one piece of
// node state genuinely unmanaged, and the one that dominates a node's
// memory footprint, so it's the piece worth pooling (spec §4.2).
//
// parent/children are ordinary typed pointers rather than raw
// addresses into the same arena as entries: Go's garbage collector only
// traces pointer-shaped words inside allocations it knows to be
// pointer-shaped, and an Allocator-owned byte region is opaque to it.
// Packing child addresses into that same region would make them invisible
// to the collector — a real use-after-collection hazard, not a cosmetic
// one — so the structural links use the language's own pointers and the
// Allocator is reserved for the part of the layout that is safe to make
// opaque: the fixed-size, pointer-free entry payload.
type node[K, V any] struct {
	kind     kind
	position uint16 // index within parent's child array; 0 if root
	maxCount uint16 // capacity of entries (== cap(entries))
	count    uint16 // current entry count (== len(entries))

	parent   *node[K, V]
	children []*node[K, V] // len == count+1; nil for leaves

	entries []entry[K, V] // len == count, cap == maxCount, allocator-owned backing array
}

func (n *node[K, V]) isLeaf() bool { return n.kind.isLeaf() }
func (n *node[K, V]) isRoot() bool { return n.kind.isRoot() }

func (n *node[K, V]) key(i int) K       { return n.entries[i].key }
func (n *node[K, V]) value(i int) V     { return n.entries[i].val }
func (n *node[K, V]) setValue(i int, v V) {
	n.entries[i].val = v
}

func (n *node[K, V]) full() bool { return n.count == n.maxCount }

// bytesAllocated returns the byte size that must be passed back to the
// Allocator's Deallocate when this node is freed: the entries array's
// capacity in bytes. It does not include the children slice, which (per
// the node doc comment) is never Allocator-owned.
func (n *node[K, V]) bytesAllocated(esz int) int {
	return int(n.maxCount) * esz
}

// newNode carves a fresh node of the given kind and entry capacity out of
// a, panicking with *AllocationError on failure per spec §7's
// AllocationFailure being fatal.
func newNode[K, V any](a alloc.Allocator, k kind, maxCount int, esz int) *node[K, V] {
	n := &node[K, V]{kind: k, maxCount: uint16(maxCount)}

	size := maxCount * esz
	if size > 0 {
		ptr, err := a.Allocate(size)
		if err != nil {
			panic(&AllocationError{Size: size, Err: err})
		}
		n.entries = unsafe.Slice((*entry[K, V])(ptr), maxCount)[:0]
	}

	if !k.isLeaf() {
		n.children = make([]*node[K, V], 0, maxCount+1)
	}
	return n
}

// freeNode returns n's entries backing array to a, using the same size it
// was allocated with (spec §4.1's sized-free contract).
func freeNode[K, V any](a alloc.Allocator, n *node[K, V], esz int) {
	if base := unsafe.SliceData(n.entries); base != nil {
		a.Deallocate(unsafe.Pointer(base), n.bytesAllocated(esz))
	}
	n.entries = nil
	n.children = nil
	n.parent = nil
}

// capacities derives NODE_KV_COUNT and MIN_NODE_KV_COUNT from a configured
// byte budget (spec §3's "Derived capacity constants").
func capacities(targetNodeBytes, esz int) (nodeKV, minNodeKV int) {
	const headerBudget = 16 // isLeaf/kind + position + maxCount + count + parent, rounded to a word
	nodeKV = (targetNodeBytes - headerBudget) / esz
	if nodeKV < 3 {
		nodeKV = 3
	}
	// A split must leave MIN_NODE_KV_COUNT entries on each side plus one
	// promoted to the parent as separator: minNodeKV*2+1 <= nodeKV.
	minNodeKV = (nodeKV - 1) / 2
	return
}

// linearSearch returns the smallest index i in [0, count] such that
// key(i) >= k, using only Lt — the comparator method the spec (§4.3)
// insists on for this primitive, since at a realistic TARGET_SIZE the
// node holds only a few dozen entries and a branch-heavy binary search
// loses to a predictable linear scan.
func (n *node[K, V]) linearSearch(cmp Comparator[K], k K) int {
	i := 0
	for i < int(n.count) && cmp.Lt(n.key(i), k) {
		i++
	}
	return i
}
