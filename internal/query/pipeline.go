package query

import (
	"sort"

	"yardb/internal/document"
	"yardb/internal/engine"
)

// Result is the output of Execute, before REST envelope wrapping (§4.4.3).
type Result struct {
	Docs      []document.Value
	Count     int
	CountOnly bool
}

// Execute runs the pipeline of §4.3.2 against the active collection of e:
// index view selection, candidate iteration (via e.Read), $filter, ordering,
// $skip/$top, and finally $count or $select projection.
func Execute(e *engine.Engine, pathSelector document.Value, p Params) (Result, error) {
	engineSelector := pathSelector

	indexServesOrder := false
	if p.OrderBy != nil && e.IsIndexed(p.OrderBy.Field) {
		indexServesOrder = true
		// Candidates (internal/index/range.go) only walks a field's B-tree
		// in order when that field is itself a selector key; an empty
		// object means an unbounded range over it rather than a match.
		if _, already := engineSelector.Get(p.OrderBy.Field); !already {
			engineSelector = engineSelector.WithPair(p.OrderBy.Field, document.NewObject())
		}
		if p.OrderBy.Desc {
			engineSelector = engineSelector.WithPair(document.OpDesc, document.NewBool(true))
		}
	}

	// Pagination can be pushed down to the engine only when nothing after
	// it (filter, in-memory sort) can still reorder or drop rows.
	pushPagination := p.Filter == nil && (p.OrderBy == nil || indexServesOrder)
	if pushPagination {
		if p.Skip != nil {
			engineSelector = engineSelector.WithPair(document.OpSkip, document.NewInt64(int64(*p.Skip)))
		}
		if p.Top != nil {
			engineSelector = engineSelector.WithPair(document.OpTop, document.NewInt64(int64(*p.Top)))
		}
	}

	docs, err := e.Read(engineSelector)
	if err != nil {
		return Result{}, err
	}

	if p.Filter != nil {
		filtered := make([]document.Value, 0, len(docs))
		for _, d := range docs {
			if Eval(p.Filter, d) {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	if p.OrderBy != nil && !indexServesOrder {
		sortDocs(docs, *p.OrderBy)
	}

	if !pushPagination {
		if p.Skip != nil {
			n := *p.Skip
			if n > len(docs) {
				n = len(docs)
			}
			docs = docs[n:]
		}
		if p.Top != nil {
			n := *p.Top
			if n < len(docs) {
				docs = docs[:n]
			}
		}
	}

	if p.Count {
		return Result{Count: len(docs), CountOnly: true}, nil
	}

	if len(p.Select) > 0 {
		for i := range docs {
			docs[i] = project(docs[i], p.Select)
		}
	}

	return Result{Docs: docs}, nil
}

func sortDocs(docs []document.Value, ob OrderBy) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi, _ := docs[i].Get(ob.Field)
		vj, _ := docs[j].Get(ob.Field)
		c := document.Compare(vi, vj)
		if ob.Desc {
			return c > 0
		}
		return c < 0
	})
}

func project(doc document.Value, fields []string) document.Value {
	keep := make(map[string]bool, len(fields)+1)
	keep[document.IDKey] = true
	for _, f := range fields {
		keep[f] = true
	}
	var out []document.Pair
	for _, pair := range doc.Pairs() {
		if keep[pair.Key] {
			out = append(out, pair)
		}
	}
	return document.NewObject(out...)
}
