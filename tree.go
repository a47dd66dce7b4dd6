package obtree

import (
	"cmp"
	"fmt"
	"io"
	"sort"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
)

// Get returns the value stored for k, failing with ErrKeyNotFound if k is
// absent.
func (t *Tree[K, V]) Get(k K) (V, error) {
	if n, i, ok := t.locate(k); ok {
		return n.value(i), nil
	}
	var zero V
	return zero, ErrKeyNotFound
}

// TryGet is Get without the error allocation, Go-map-style.
func (t *Tree[K, V]) TryGet(k K) (V, bool) {
	if n, i, ok := t.locate(k); ok {
		return n.value(i), true
	}
	var zero V
	return zero, false
}

// Contains reports whether k is present.
func (t *Tree[K, V]) Contains(k K) bool {
	_, _, ok := t.locate(k)
	return ok
}

// ContainsEntry reports whether k is present with exactly value v,
// comparing by value equality rather than key alone.
func (t *Tree[K, V]) ContainsEntry(k K, v V) bool {
	n, i, ok := t.locate(k)
	return ok && n.value(i) == v
}

// Count returns the number of entries in the tree.
func (t *Tree[K, V]) Count() int { return t.size }

// IsEmpty reports whether the tree holds no entries.
func (t *Tree[K, V]) IsEmpty() bool { return t.size == 0 }

// Clear removes every entry, releasing all nodes back to the allocator and
// resetting the tree to its initial single-leaf-root state.
func (t *Tree[K, V]) Clear() {
	t.Dispose()
	root := newNode[K, V](t.alloc, kindLeafRoot, 1, t.esz)
	t.root = root
	t.leftmost, t.rightmost = root, root
	t.size = 0
}

// Enumerate visits every entry in ascending key order, stopping early if
// fn returns false.
func (t *Tree[K, V]) Enumerate(fn func(k K, v V) bool) {
	var walk func(n *node[K, V]) bool
	walk = func(n *node[K, V]) bool {
		if n.isLeaf() {
			for i := 0; i < int(n.count); i++ {
				if !fn(n.key(i), n.value(i)) {
					return false
				}
			}
			return true
		}
		for i := 0; i < int(n.count); i++ {
			if !walk(n.children[i]) {
				return false
			}
			if !fn(n.key(i), n.value(i)) {
				return false
			}
		}
		return walk(n.children[n.count])
	}
	walk(t.root)
}

// CopyTo inserts every entry of t into dst, overwriting any existing
// values dst already has for the same keys.
func (t *Tree[K, V]) CopyTo(dst *Tree[K, V]) {
	t.Enumerate(func(k K, v V) bool {
		dst.Set(k, v)
		return true
	})
}

// From bulk-constructs a Tree from a map, inserting keys in sorted order
// so the small-leaf-root growth path and split bias both see the same
// append-heavy pattern a sorted bulk load is meant to exercise.
func From[K cmp.Ordered, V comparable](m map[K]V, opts ...Option[K, V]) *Tree[K, V] {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	t := New[K, V](opts...)
	for _, k := range keys {
		t.Set(k, m[k])
	}
	return t
}

const ptrSize = int(unsafe.Sizeof(uintptr(0)))
const headerBudgetBytes = 16

// BytesUsed returns the total bytes allocated across every node: a fixed
// per-node header estimate, each node's allocator-owned entries capacity,
// plus the children slice for
// internal nodes (never allocator-owned, but real memory all the same —
// see node's doc comment for why the two are split).
func (t *Tree[K, V]) BytesUsed() int {
	total := 0
	var walk func(n *node[K, V])
	walk = func(n *node[K, V]) {
		total += headerBudgetBytes + n.bytesAllocated(t.esz)
		if !n.isLeaf() {
			total += cap(n.children) * ptrSize
			for _, c := range n.children {
				walk(c)
			}
		}
	}
	walk(t.root)
	return total
}

// NodeCount returns the number of live nodes.
func (t *Tree[K, V]) NodeCount() int {
	count := 0
	var walk func(n *node[K, V])
	walk = func(n *node[K, V]) {
		count++
		if !n.isLeaf() {
			for _, c := range n.children {
				walk(c)
			}
		}
	}
	walk(t.root)
	return count
}

// Fullness returns the mean ratio of live entries to capacity across every
// node, in [0, 1]. A tree built by sequential inserts without intervening
// removals sits near (NODE_KV_COUNT-1)/NODE_KV_COUNT in steady state, since
// a full node rotates entries into a sibling with room before it splits;
// heavy removal churn pulls it down toward MIN_NODE_KV_COUNT/NODE_KV_COUNT,
// since merges only fire once a node drops to MIN_NODE_KV_COUNT.
func (t *Tree[K, V]) Fullness() float64 {
	var sumRatio float64
	n := 0
	var walk func(nd *node[K, V])
	walk = func(nd *node[K, V]) {
		if nd.maxCount > 0 {
			sumRatio += float64(nd.count) / float64(nd.maxCount)
			n++
		}
		if !nd.isLeaf() {
			for _, c := range nd.children {
				walk(c)
			}
		}
	}
	walk(t.root)
	if n == 0 {
		return 0
	}
	return sumRatio / float64(n)
}

// Overhead returns the fraction of BytesUsed not occupied by live entry
// payload: 1 - (live entries * entry size) / BytesUsed.
func (t *Tree[K, V]) Overhead() float64 {
	used := t.BytesUsed()
	if used == 0 {
		return 0
	}
	payload := t.size * t.esz
	return 1 - float64(payload)/float64(used)
}

// Validate walks the whole tree checking every structural invariant the
// engine is supposed to maintain: sorted entries within a node, consistent
// parent/position/count bookkeeping, no node below MIN_NODE_KV_COUNT
// except the root, and no node visited twice (a bitset keyed by node
// identity catches a cycle that would otherwise spin Validate forever).
func (t *Tree[K, V]) Validate() error {
	visited := bitset.New(0)
	ids := make(map[*node[K, V]]uint)

	idFor := func(n *node[K, V]) uint {
		if id, ok := ids[n]; ok {
			return id
		}
		id := uint(len(ids))
		ids[n] = id
		return id
	}

	var walk func(n *node[K, V], depth int) (leafDepth int, err error)
	walk = func(n *node[K, V], depth int) (int, error) {
		id := idFor(n)
		if visited.Test(id) {
			return 0, fmt.Errorf("%w: node visited twice (cycle)", ErrCorruption)
		}
		visited.Set(id)

		if int(n.count) > int(n.maxCount) {
			return 0, fmt.Errorf("%w: count %d exceeds maxCount %d", ErrCorruption, n.count, n.maxCount)
		}
		if !n.isRoot() && int(n.count) < t.minNodeKV {
			return 0, fmt.Errorf("%w: non-root node below MIN_NODE_KV_COUNT (%d < %d)", ErrCorruption, n.count, t.minNodeKV)
		}
		for i := 1; i < int(n.count); i++ {
			if !t.cmp.Lt(n.key(i-1), n.key(i)) {
				return 0, fmt.Errorf("%w: entries out of order at index %d", ErrCorruption, i)
			}
		}

		if n.isLeaf() {
			return depth, nil
		}
		if len(n.children) != int(n.count)+1 {
			return 0, fmt.Errorf("%w: internal node has %d children for %d entries", ErrCorruption, len(n.children), n.count)
		}

		var firstLeafDepth = -1
		for i, c := range n.children {
			if c.parent != n {
				return 0, fmt.Errorf("%w: child %d has wrong parent pointer", ErrCorruption, i)
			}
			if int(c.position) != i {
				return 0, fmt.Errorf("%w: child %d has position %d", ErrCorruption, i, c.position)
			}
			if i > 0 && c.count > 0 && !t.cmp.Lt(n.entries[i-1].key, c.key(0)) {
				return 0, fmt.Errorf("%w: child %d's first key does not exceed separator %d", ErrCorruption, i, i-1)
			}
			if i < int(n.count) && c.count > 0 && !t.cmp.Lt(c.key(int(c.count)-1), n.entries[i].key) {
				return 0, fmt.Errorf("%w: child %d's last key does not precede separator %d", ErrCorruption, i, i)
			}
			ld, err := walk(c, depth+1)
			if err != nil {
				return 0, err
			}
			if firstLeafDepth == -1 {
				firstLeafDepth = ld
			} else if ld != firstLeafDepth {
				return 0, fmt.Errorf("%w: unbalanced leaf depth (%d vs %d)", ErrCorruption, ld, firstLeafDepth)
			}
		}
		return firstLeafDepth, nil
	}

	if t.root == nil {
		return nil
	}
	_, err := walk(t.root, 0)
	return err
}

// Fingerprint returns a structural digest of every (key, value) pair in
// ascending order, computed directly over each entry's raw bytes — safe
// only because K and V are constrained to fixed-size, pointer-free types
// (see node's doc comment), which makes an entry's in-memory
// representation its own canonical encoding.
func (t *Tree[K, V]) Fingerprint() uint64 {
	h := xxhash.New()
	t.Enumerate(func(k K, v V) bool {
		e := entry[K, V]{key: k, val: v}
		b := unsafe.Slice((*byte)(unsafe.Pointer(&e)), t.esz)
		_, _ = h.Write(b)
		return true
	})
	return h.Sum64()
}

// Dump writes a colorized, indented tree layout to w for interactive
// debugging: node kind, depth, and entry count, never value contents
// (which may not be printable for an arbitrary V).
func (t *Tree[K, V]) Dump(w io.Writer) {
	kindName := func(k kind) string {
		switch k {
		case kindLeafRoot:
			return "leaf-root"
		case kindLeaf:
			return "leaf"
		case kindInternal:
			return "internal"
		case kindInternalRoot:
			return "internal-root"
		default:
			return "?"
		}
	}

	var walk func(n *node[K, V], depth int)
	walk = func(n *node[K, V], depth int) {
		label := color.New(color.FgCyan).Sprintf("%s", kindName(n.kind))
		fmt.Fprintf(w, "%s%s count=%d/%d\n", indent(depth), label, n.count, n.maxCount)
		if !n.isLeaf() {
			for _, c := range n.children {
				walk(c, depth+1)
			}
		}
	}
	if t.root != nil {
		walk(t.root, 0)
	}
}

func indent(depth int) string {
	b := make([]byte, depth*2)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
