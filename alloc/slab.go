package alloc

import "unsafe"

// Default factory parameters for a SlabPool (spec §4.2).
const (
	DefaultItemsPerSlab = 1024
	DefaultInitialSlabs = 1
	DefaultMaxSlabBytes = 0 // uncapped
)

// SlabPool bulk-allocates fixed-size items out of contiguous slabs with a
// free list, amortizing the cost of individual allocation for workloads
// that churn same-size objects heavily — exactly the traffic a B-tree's
// node allocator sees. One SlabPool holds items of a single size; see
// SlabAllocator for a pool-of-pools that dispatches by size.
//
// A SlabPool is not safe for concurrent use. Per spec §5, the allocator is
// the tree's only shared resource and owned exclusively by it; wrap a
// SlabPool in external synchronization if multiple trees must share one.
type SlabPool struct {
	itemSize     int
	itemsPerSlab int
	maxSlabBytes int

	slabs     [][]byte // each slab is a contiguous []byte carved into itemSize-byte items
	slabItems []int    // items capacity actually carved into slabs[i] (may be < itemsPerSlab when maxSlabBytes caps it)
	curSlab   int      // index into slabs of the slab currently being bumped
	cursor    int      // next free item offset (in items) within slabs[curSlab]

	free []unsafe.Pointer // addresses returned by Free, reused before bumping
}

// SlabOption configures a SlabPool or SlabAllocator at construction time.
type SlabOption func(*slabConfig)

type slabConfig struct {
	itemsPerSlab int
	maxSlabBytes int
	initialSlabs int
}

func defaultSlabConfig() slabConfig {
	return slabConfig{
		itemsPerSlab: DefaultItemsPerSlab,
		maxSlabBytes: DefaultMaxSlabBytes,
		initialSlabs: DefaultInitialSlabs,
	}
}

// WithItemsPerSlab sets how many items each slab is carved into (default 1024).
func WithItemsPerSlab(n int) SlabOption {
	return func(c *slabConfig) { c.itemsPerSlab = n }
}

// WithMaxSlabBytes caps the byte size of any single slab (0 = uncapped,
// the default). When set, a slab holds min(itemsPerSlab, maxSlabBytes/itemSize)
// items instead.
func WithMaxSlabBytes(n int) SlabOption {
	return func(c *slabConfig) { c.maxSlabBytes = n }
}

// WithInitialSlabs pre-allocates this many slabs at construction (default 1).
func WithInitialSlabs(n int) SlabOption {
	return func(c *slabConfig) { c.initialSlabs = n }
}

// NewSlabPool creates a SlabPool for items of the given size.
func NewSlabPool(itemSize int, opts ...SlabOption) *SlabPool {
	cfg := defaultSlabConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &SlabPool{
		itemSize:     itemSize,
		itemsPerSlab: cfg.itemsPerSlab,
		maxSlabBytes: cfg.maxSlabBytes,
	}
	for i := 0; i < cfg.initialSlabs; i++ {
		p.growSlab()
	}
	return p
}

func (p *SlabPool) slabCapacity() int {
	if p.maxSlabBytes <= 0 {
		return p.itemsPerSlab
	}
	if cap := p.maxSlabBytes / p.itemSize; cap < p.itemsPerSlab {
		if cap < 1 {
			return 1
		}
		return cap
	}
	return p.itemsPerSlab
}

func (p *SlabPool) growSlab() {
	n := p.slabCapacity()
	p.slabs = append(p.slabs, make([]byte, n*p.itemSize))
	p.slabItems = append(p.slabItems, n)
}

// Get returns the address of a fresh, unzeroed-guarantee-free item: popped
// from the free list if one is available, else bumped from the current
// slab, advancing (and growing, doubling the slab vector via append's
// normal growth policy) to a new slab when the current one is exhausted.
func (p *SlabPool) Get() unsafe.Pointer {
	if n := len(p.free); n > 0 {
		addr := p.free[n-1]
		p.free = p.free[:n-1]
		return addr
	}

	if p.curSlab >= len(p.slabs) {
		p.growSlab()
	}
	for p.cursor >= p.slabItems[p.curSlab] {
		p.curSlab++
		p.cursor = 0
		if p.curSlab >= len(p.slabs) {
			p.growSlab()
		}
	}

	slab := p.slabs[p.curSlab]
	addr := unsafe.Pointer(&slab[p.cursor*p.itemSize])
	p.cursor++
	return addr
}

// Free returns an item's address to the free list. The address remains
// stable — it is not compacted or reused until a subsequent Get pops it
// back off the free list.
func (p *SlabPool) Free(addr unsafe.Pointer) {
	p.free = append(p.free, addr)
}

// Dispose releases every slab. The SlabPool must not be used afterward.
func (p *SlabPool) Dispose() {
	p.slabs = nil
	p.slabItems = nil
	p.free = nil
	p.curSlab = 0
	p.cursor = 0
}

// Stats reports allocator-level introspection supplementing the engine's
// bytes_used/fullness metrics (spec §4.6) with slab-pool-specific detail.
type Stats struct {
	ItemSize     int
	SlabCount    int
	FreeListSize int
	ItemsLive    int // items currently checked out (bumped or reused minus freed)
}

// Stats returns a snapshot of this pool's bookkeeping.
func (p *SlabPool) Stats() Stats {
	bumped := 0
	for i := 0; i < p.curSlab; i++ {
		bumped += p.slabItems[i]
	}
	bumped += p.cursor
	return Stats{
		ItemSize:     p.itemSize,
		SlabCount:    len(p.slabs),
		FreeListSize: len(p.free),
		ItemsLive:    bumped - len(p.free),
	}
}

// SlabAllocator implements Allocator by dispatching to one SlabPool per
// distinct size it is asked to allocate. The engine sizes a node's
// entries array as capacity × entry size: every full-capacity node (leaf,
// internal or root) shares one size, and each growth step of the small leaf
// root (1, 2, 4, ... entries) adds another, so a SlabAllocator holds one
// pool per distinct size a Tree has asked for.
type SlabAllocator struct {
	opts  []SlabOption
	pools map[int]*SlabPool
}

// NewSlabAllocator creates an empty pool-of-pools. Options apply to every
// SlabPool it lazily creates.
func NewSlabAllocator(opts ...SlabOption) *SlabAllocator {
	return &SlabAllocator{opts: opts, pools: make(map[int]*SlabPool)}
}

func (a *SlabAllocator) poolFor(size int) *SlabPool {
	if p, ok := a.pools[size]; ok {
		return p
	}
	p := NewSlabPool(size, a.opts...)
	a.pools[size] = p
	return p
}

// Allocate returns an item from the pool matching size, creating that pool
// on first use.
func (a *SlabAllocator) Allocate(size int) (unsafe.Pointer, error) {
	return a.poolFor(size).Get(), nil
}

// Deallocate returns addr to the pool matching size. size must be the same
// value passed to the Allocate call that produced addr.
func (a *SlabAllocator) Deallocate(addr unsafe.Pointer, size int) {
	a.poolFor(size).Free(addr)
}

// Dispose releases every underlying SlabPool.
func (a *SlabAllocator) Dispose() {
	for _, p := range a.pools {
		p.Dispose()
	}
}

// PoolStats returns a Stats snapshot for every size this allocator has
// ever been asked for.
func (a *SlabAllocator) PoolStats() map[int]Stats {
	out := make(map[int]Stats, len(a.pools))
	for size, p := range a.pools {
		out[size] = p.Stats()
	}
	return out
}
