package index

import "sync"

// offsetSet is a small ordered set of file offsets sharing one secondary
// key value (distinct documents commonly share a secondary field's
// value, e.g. many users with the same age).
type offsetSet struct {
	offsets []int64
}

func (s *offsetSet) add(off int64) {
	for _, o := range s.offsets {
		if o == off {
			return
		}
	}
	s.offsets = append(s.offsets, off)
}

func (s *offsetSet) remove(off int64) {
	for i, o := range s.offsets {
		if o == off {
			s.offsets = append(s.offsets[:i], s.offsets[i+1:]...)
			return
		}
	}
}

func (s *offsetSet) empty() bool { return len(s.offsets) == 0 }

func lessInt64(a, b int64) bool  { return a < b }
func lessString(a, b string) bool { return a < b }

// Index is the in-memory index of a single collection (§3): the sequence
// counter used to assign new ids, the primary key -> offset map, and the
// named secondary key -> offset-set maps.
type Index struct {
	mu             sync.RWMutex
	sequence       int64
	primary        *OrderedMap[int64, int64]
	secondaryOrder []string
	secondary      map[string]*OrderedMap[string, *offsetSet]
}

// New builds an empty Index.
func New() *Index {
	return &Index{
		primary:   NewOrderedMap[int64, int64](lessInt64),
		secondary: make(map[string]*OrderedMap[string, *offsetSet]),
	}
}

// NextID assigns and returns the next sequence value (§4.1 create).
func (idx *Index) NextID() int64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.sequence++
	return idx.sequence
}

// Bump raises the sequence counter to at least id, used during replay's
// structural pass (§4.1.1).
func (idx *Index) Bump(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if id > idx.sequence {
		idx.sequence = id
	}
}

// Sequence returns the current highest assigned (or observed) id.
func (idx *Index) Sequence() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.sequence
}

// SecondaryFields returns the names of configured secondary index fields,
// in the order they were added.
func (idx *Index) SecondaryFields() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, len(idx.secondaryOrder))
	copy(out, idx.secondaryOrder)
	return out
}

// AddSecondaryField registers field as a secondary index, idempotently
// (§4.1 index()).
func (idx *Index) AddSecondaryField(field string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.secondary[field]; ok {
		return
	}
	idx.secondary[field] = NewOrderedMap[string, *offsetSet](lessString)
	idx.secondaryOrder = append(idx.secondaryOrder, field)
}

// HasSecondaryField reports whether field is a configured secondary
// index.
func (idx *Index) HasSecondaryField(field string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.secondary[field]
	return ok
}

// InsertPrimary records id's live offset.
func (idx *Index) InsertPrimary(id, offset int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.primary.Set(id, offset)
}

// DeletePrimary removes id's live offset.
func (idx *Index) DeletePrimary(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.primary.Delete(id)
}

// PrimaryOffset returns id's live offset.
func (idx *Index) PrimaryOffset(id int64) (int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.primary.Get(id)
}

// InsertSecondary adds offset under field's key (the canonical string
// form of the field's value).
func (idx *Index) InsertSecondary(field, key string, offset int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	m, ok := idx.secondary[field]
	if !ok {
		m = NewOrderedMap[string, *offsetSet](lessString)
		idx.secondary[field] = m
		idx.secondaryOrder = append(idx.secondaryOrder, field)
	}
	set, ok := m.Get(key)
	if !ok {
		set = &offsetSet{}
		m.Set(key, set)
	}
	set.add(offset)
}

// DeleteSecondary removes offset from under field's key, pruning the key
// entirely once empty (§3 invariant 4).
func (idx *Index) DeleteSecondary(field, key string, offset int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	m, ok := idx.secondary[field]
	if !ok {
		return
	}
	set, ok := m.Get(key)
	if !ok {
		return
	}
	set.remove(offset)
	if set.empty() {
		m.Delete(key)
	}
}

// Reset clears the index's key maps but preserves the sequence counter
// and configured secondary field names, used by reindex() (§4.1 reindex).
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.primary = NewOrderedMap[int64, int64](lessInt64)
	for _, f := range idx.secondaryOrder {
		idx.secondary[f] = NewOrderedMap[string, *offsetSet](lessString)
	}
}

// SetSecondaryFields replaces the full set of configured secondary index
// fields with fields, dropping any not named and starting each named one
// empty. Used by PUT /_db/{collection}'s replace semantics, as opposed to
// AddSecondaryField's additive PATCH semantics.
func (idx *Index) SetSecondaryFields(fields []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.secondary = make(map[string]*OrderedMap[string, *offsetSet])
	idx.secondaryOrder = nil
	for _, f := range fields {
		idx.secondary[f] = NewOrderedMap[string, *offsetSet](lessString)
		idx.secondaryOrder = append(idx.secondaryOrder, f)
	}
}
