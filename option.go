package obtree

import "obtree/alloc"

// DefaultTargetNodeBytes is the byte budget each node is sized against
// when no WithTargetNodeBytes option is supplied.
const DefaultTargetNodeBytes = 256

// config holds construction-time configuration for a Tree. It is built up
// by Option values and consumed once, by New.
type config[K, V any] struct {
	targetNodeBytes int
	cmp             Comparator[K]
	alloc           alloc.Allocator
	logger          Logger
}

func defaultConfig[K, V any]() config[K, V] {
	return config[K, V]{
		targetNodeBytes: DefaultTargetNodeBytes,
		alloc:           alloc.Heap{},
		logger:          DiscardLogger{},
	}
}

// Option configures a Tree using the functional options pattern.
//
// Because Go cannot infer type parameters from an option's argument alone,
// and no option takes an argument typed in terms of both K and V, every
// option needs explicit instantiation at the call site, e.g.
// obtree.WithTargetNodeBytes[string, int](512).
type Option[K, V any] func(*config[K, V])

// WithTargetNodeBytes overrides the byte budget used to size nodes (spec
// §6 target_node_bytes, default 256).
//
//goland:noinspection GoUnusedExportedFunction
func WithTargetNodeBytes[K, V any](n int) Option[K, V] {
	return func(c *config[K, V]) {
		c.targetNodeBytes = n
	}
}

// WithComparator overrides the key ordering (spec §6 comparator). The
// supplied Comparator must induce a total strict order: see Comparator's
// doc comment for the exact contract.
//
//goland:noinspection GoUnusedExportedFunction
func WithComparator[K, V any](cmp Comparator[K]) Option[K, V] {
	return func(c *config[K, V]) {
		c.cmp = cmp
	}
}

// WithAllocator overrides the raw byte allocator backing every node (spec
// §6 allocator, §4.1). The default is alloc.Heap, which allocates and frees
// through the Go runtime. Pass an *alloc.SlabAllocator to amortize allocation
// for workloads that churn nodes heavily.
//
//goland:noinspection GoUnusedExportedFunction
func WithAllocator[K, V any](a alloc.Allocator) Option[K, V] {
	return func(c *config[K, V]) {
		c.alloc = a
	}
}

// WithLogger overrides the Logger used for diagnostic events (rebalance
// heuristics firing, root height changes). The default is DiscardLogger.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger[K, V any](l Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.logger = l
	}
}
