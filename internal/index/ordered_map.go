// Package index implements the per-collection in-memory index: the
// sequence counter, the primary key map, and named secondary key maps,
// plus the range analysis that turns a selector into an ordered sequence
// of candidate file offsets (§4.2).
package index

import "github.com/google/btree"

// Bounds describes an inclusive/exclusive key range, computed from a
// selector's operator keys (§4.2.1).
type Bounds[K any] struct {
	HasLower       bool
	Lower          K
	LowerExclusive bool
	HasUpper       bool
	Upper          K
	UpperExclusive bool
}

type pair[K any, V any] struct {
	key K
	val V
}

// OrderedMap is a generic ordered key/value map backed by a B-tree
// (github.com/google/btree), giving O(log n) insert/delete and the
// lower_bound/upper_bound/equal_range primitives §4.2.1 describes.
type OrderedMap[K any, V any] struct {
	tree *btree.BTreeG[pair[K, V]]
	less func(a, b K) bool
}

// NewOrderedMap builds an empty OrderedMap ordered by less.
func NewOrderedMap[K any, V any](less func(a, b K) bool) *OrderedMap[K, V] {
	lessPair := func(a, b pair[K, V]) bool { return less(a.key, b.key) }
	return &OrderedMap[K, V]{tree: btree.NewG(32, lessPair), less: less}
}

func (m *OrderedMap[K, V]) Set(key K, val V) {
	m.tree.ReplaceOrInsert(pair[K, V]{key: key, val: val})
}

func (m *OrderedMap[K, V]) Delete(key K) (V, bool) {
	it, ok := m.tree.Delete(pair[K, V]{key: key})
	return it.val, ok
}

func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	it, ok := m.tree.Get(pair[K, V]{key: key})
	return it.val, ok
}

func (m *OrderedMap[K, V]) Len() int { return m.tree.Len() }

// Ascend visits entries within bounds in ascending key order until visit
// returns false.
func (m *OrderedMap[K, V]) Ascend(b Bounds[K], visit func(K, V) bool) {
	iter := func(it pair[K, V]) bool {
		if b.HasLower && b.LowerExclusive && !m.less(b.Lower, it.key) {
			return true // it.key == Lower: skip, keep scanning
		}
		if b.HasUpper {
			if b.UpperExclusive {
				if !m.less(it.key, b.Upper) {
					return false
				}
			} else if m.less(b.Upper, it.key) {
				return false
			}
		}
		return visit(it.key, it.val)
	}
	if b.HasLower {
		m.tree.AscendGreaterOrEqual(pair[K, V]{key: b.Lower}, iter)
	} else {
		m.tree.Ascend(iter)
	}
}

// Descend visits entries within bounds in descending key order until visit
// returns false.
func (m *OrderedMap[K, V]) Descend(b Bounds[K], visit func(K, V) bool) {
	iter := func(it pair[K, V]) bool {
		if b.HasUpper && b.UpperExclusive && !m.less(it.key, b.Upper) {
			return true // it.key == Upper: skip, keep scanning
		}
		if b.HasLower {
			if b.LowerExclusive {
				if !m.less(b.Lower, it.key) {
					return false
				}
			} else if m.less(it.key, b.Lower) {
				return false
			}
		}
		return visit(it.key, it.val)
	}
	if b.HasUpper {
		m.tree.DescendLessOrEqual(pair[K, V]{key: b.Upper}, iter)
	} else {
		m.tree.Descend(iter)
	}
}

// All visits every entry ascending (the full-scan fallback of §4.2.1).
func (m *OrderedMap[K, V]) All(visit func(K, V) bool) {
	m.Ascend(Bounds[K]{}, visit)
}

// AllDesc visits every entry descending.
func (m *OrderedMap[K, V]) AllDesc(visit func(K, V) bool) {
	m.Descend(Bounds[K]{}, visit)
}
