package obtree

import "cmp"

// Comparator totally orders values of type K. The engine calls Lt and Eq
// on every hot path (spec §6); Gt is part of the contract but never called
// internally — it exists so callers building a Comparator by hand have a
// symmetric triple to reason about.
//
// A correct Comparator satisfies, for all a, b:
//
//	Gt(a, b) == Lt(b, a)
//	Eq(a, b) == !Lt(a, b) && !Lt(b, a)
type Comparator[K any] struct {
	Eq func(a, b K) bool
	Lt func(a, b K) bool
	Gt func(a, b K) bool
}

// DefaultComparator builds a Comparator from K's natural order using the
// standard library's three-way cmp.Compare, but — unlike a comparator that
// tests compareTo(a,b) == 1 or == -1 — only ever tests the sign of the
// result. A comparator with an unusual three-way contract (returning, say,
// -2/2 instead of -1/1) still orders correctly here.
func DefaultComparator[K cmp.Ordered]() Comparator[K] {
	return Comparator[K]{
		Eq: func(a, b K) bool { return cmp.Compare(a, b) == 0 },
		Lt: func(a, b K) bool { return cmp.Compare(a, b) < 0 },
		Gt: func(a, b K) bool { return cmp.Compare(a, b) > 0 },
	}
}
