package index

import "yardb/internal/document"

// Plan describes a range-analysis choice (§4.2.1): which map is walked and
// in which direction. Candidates returns the resulting offsets directly.
type Plan struct {
	Field string // "" for primary/full scan, else the secondary field name
	Desc  bool
}

// Candidates resolves selector against idx per §4.2.1's "choice of which
// map to walk" rule, and returns the ordered candidate offsets: primary
// key or secondary field sub-selector operators narrow the range;
// $head/$tail narrow further; $desc reverses the final order. The
// non-operator field predicates in selector are NOT re-applied here —
// that is document.Match's job, run by the caller against the decoded
// document (§4.3.2 step 3), so Candidates only ever needs to return a
// superset.
func (idx *Index) Candidates(selector document.Value) []int64 {
	desc := hasBoolHint(selector, document.OpDesc)

	if idSel, ok := selector.Get(document.IDKey); ok {
		b, head, tail := bounds[int64](idSel, valueToInt64)
		keys := collectPrimary(idx.primary, b)
		keys = applyHeadTail(keys, head, tail)
		if desc {
			reverseInt64(keys)
		}
		return keys
	}

	for _, field := range idx.SecondaryFields() {
		sub, ok := selector.Get(field)
		if !ok {
			continue
		}
		idx.mu.RLock()
		m := idx.secondary[field]
		idx.mu.RUnlock()
		b, head, tail := bounds[string](sub, valueToString)
		offsets := collectSecondary(m, b)
		offsets = applyHeadTail(offsets, head, tail)
		if desc {
			reverseInt64(offsets)
		}
		return offsets
	}

	// Full scan fallback (§4.2.1 rule 3).
	b := Bounds[int64]{}
	head, tail := headTailHints(selector)
	keys := collectPrimary(idx.primary, b)
	keys = applyHeadTail(keys, head, tail)
	if desc {
		reverseInt64(keys)
	}
	return keys
}

func hasBoolHint(selector document.Value, key string) bool {
	_, ok := selector.Get(key)
	return ok
}

func headTailHints(selector document.Value) (head, tail *int) {
	if v, ok := selector.Get(document.OpHead); ok {
		if n, ok := v.AsInt(); ok {
			i := int(n)
			head = &i
		}
	}
	if v, ok := selector.Get(document.OpTail); ok {
		if n, ok := v.AsInt(); ok {
			i := int(n)
			tail = &i
		}
	}
	return
}

func valueToInt64(v document.Value) (int64, bool) { return v.AsInt() }
func valueToString(v document.Value) (string, bool) {
	if v.Kind() == document.String {
		return v.AsString(), true
	}
	return document.ToString(v), true
}

// bounds computes the Bounds for a sub-selector (the value under "_id" or
// a secondary field name), plus any $head/$tail hints found alongside it,
// following the operator table in §4.2.1.
func bounds[K any](sub document.Value, conv func(document.Value) (K, bool)) (Bounds[K], *int, *int) {
	var b Bounds[K]

	if sub.Kind() != document.Object {
		if k, ok := conv(sub); ok {
			b.HasLower, b.Lower = true, k
			b.HasUpper, b.Upper = true, k
		}
		return b, nil, nil
	}

	head, tail := headTailHints(sub)

	if eq, ok := sub.Get(document.OpEq); ok {
		if k, ok := conv(eq); ok {
			b.HasLower, b.Lower = true, k
			b.HasUpper, b.Upper = true, k
		}
		return b, nil, nil // $eq overrides $head/$tail (§4.2.1)
	}

	if gte, ok := sub.Get(document.OpGte); ok {
		if k, ok := conv(gte); ok {
			b.HasLower, b.Lower, b.LowerExclusive = true, k, false
		}
	}
	if gt, ok := sub.Get(document.OpGt); ok {
		if k, ok := conv(gt); ok {
			if !b.HasLower {
				b.HasLower, b.Lower, b.LowerExclusive = true, k, true
			}
		}
	}
	if lte, ok := sub.Get(document.OpLte); ok {
		if k, ok := conv(lte); ok {
			b.HasUpper, b.Upper, b.UpperExclusive = true, k, false
		}
	}
	if lt, ok := sub.Get(document.OpLt); ok {
		if k, ok := conv(lt); ok {
			if !b.HasUpper {
				b.HasUpper, b.Upper, b.UpperExclusive = true, k, true
			}
		}
	}

	return b, head, tail
}

func collectPrimary(m *OrderedMap[int64, int64], b Bounds[int64]) []int64 {
	var out []int64
	m.Ascend(b, func(_ int64, off int64) bool {
		out = append(out, off)
		return true
	})
	return out
}

func collectSecondary(m *OrderedMap[string, *offsetSet], b Bounds[string]) []int64 {
	var out []int64
	if m == nil {
		return out
	}
	m.Ascend(b, func(_ string, set *offsetSet) bool {
		out = append(out, set.offsets...)
		return true
	})
	return out
}

// applyHeadTail narrows an ascending candidate list per $head/$tail
// (§4.2.1); $head keeps a prefix, $tail keeps a suffix.
func applyHeadTail(keys []int64, head, tail *int) []int64 {
	switch {
	case head != nil:
		n := *head
		if n < 0 {
			n = 0
		}
		if n > len(keys) {
			n = len(keys)
		}
		return keys[:n]
	case tail != nil:
		n := *tail
		if n < 0 {
			n = 0
		}
		if n > len(keys) {
			n = len(keys)
		}
		return keys[len(keys)-n:]
	default:
		return keys
	}
}

func reverseInt64(s []int64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
