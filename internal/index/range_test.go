package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"yardb/internal/document"
)

func buildPrimary(idx *Index, n int) {
	for i := int64(1); i <= int64(n); i++ {
		idx.InsertPrimary(i, i*10)
	}
}

func TestCandidatesFullScan(t *testing.T) {
	idx := New()
	buildPrimary(idx, 3)
	offs := idx.Candidates(document.NewObject())
	assert.Equal(t, []int64{10, 20, 30}, offs)
}

func TestCandidatesPrimaryEquality(t *testing.T) {
	idx := New()
	buildPrimary(idx, 5)
	sel := document.NewObject(document.Pair{Key: "_id", Value: document.NewInt64(3)})
	assert.Equal(t, []int64{30}, idx.Candidates(sel))
}

func TestCandidatesPrimaryGtGte(t *testing.T) {
	idx := New()
	buildPrimary(idx, 5)

	sel := document.NewObject(document.Pair{Key: "_id", Value: document.NewObject(
		document.Pair{Key: document.OpGt, Value: document.NewInt64(3)},
	)})
	assert.Equal(t, []int64{40, 50}, idx.Candidates(sel))

	sel2 := document.NewObject(document.Pair{Key: "_id", Value: document.NewObject(
		document.Pair{Key: document.OpGte, Value: document.NewInt64(3)},
	)})
	assert.Equal(t, []int64{30, 40, 50}, idx.Candidates(sel2))
}

func TestCandidatesDesc(t *testing.T) {
	idx := New()
	buildPrimary(idx, 3)
	sel := document.NewObject(document.Pair{Key: document.OpDesc, Value: document.NewBool(true)})
	assert.Equal(t, []int64{30, 20, 10}, idx.Candidates(sel))
}

func TestCandidatesHead(t *testing.T) {
	idx := New()
	buildPrimary(idx, 5)
	sel := document.NewObject(document.Pair{Key: document.OpHead, Value: document.NewInt64(2)})
	assert.Equal(t, []int64{10, 20}, idx.Candidates(sel))
}

func TestCandidatesTail(t *testing.T) {
	idx := New()
	buildPrimary(idx, 5)
	sel := document.NewObject(document.Pair{Key: document.OpTail, Value: document.NewInt64(2)})
	assert.Equal(t, []int64{40, 50}, idx.Candidates(sel))
}

func TestCandidatesSecondaryField(t *testing.T) {
	idx := New()
	idx.AddSecondaryField("email")
	idx.InsertSecondary("email", "a@x", 100)
	idx.InsertSecondary("email", "b@x", 200)

	sel := document.NewObject(document.Pair{Key: "email", Value: document.NewString("a@x")})
	assert.Equal(t, []int64{100}, idx.Candidates(sel))
}
