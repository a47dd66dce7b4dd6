// Package obtree implements an ordered key→value map as a B-tree of
// fixed-byte-budget nodes, designed to sit close to raw memory: every node's
// entry storage is carved out of a caller-pluggable Allocator (see the alloc
// subpackage) rather than grown ad hoc by the Go runtime, and a node's
// capacity is derived from a configurable byte budget instead of a fixed
// fanout constant.
//
// Construct a Tree with New (for a key type with a natural order) or
// NewWithComparator (for anything else), operate on it with Add/Set/Get/
// Remove, and walk it in order with Enumerate, Range, or a Cursor obtained
// from Begin/End/LowerBound/UpperBound.
package obtree
