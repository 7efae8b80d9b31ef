package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceMonotonic(t *testing.T) {
	idx := New()
	assert.Equal(t, int64(1), idx.NextID())
	assert.Equal(t, int64(2), idx.NextID())
	idx.Bump(10)
	assert.Equal(t, int64(10), idx.Sequence())
	assert.Equal(t, int64(11), idx.NextID())
}

func TestPrimaryInsertDelete(t *testing.T) {
	idx := New()
	idx.InsertPrimary(1, 100)
	off, ok := idx.PrimaryOffset(1)
	assert.True(t, ok)
	assert.Equal(t, int64(100), off)

	idx.DeletePrimary(1)
	_, ok = idx.PrimaryOffset(1)
	assert.False(t, ok)
}

func TestSecondaryFieldIdempotent(t *testing.T) {
	idx := New()
	idx.AddSecondaryField("email")
	idx.AddSecondaryField("email")
	assert.Equal(t, []string{"email"}, idx.SecondaryFields())
}

func TestSecondaryMultipleOffsetsPerKey(t *testing.T) {
	idx := New()
	idx.AddSecondaryField("age")
	idx.InsertSecondary("age", "25", 10)
	idx.InsertSecondary("age", "25", 20)

	idx.DeleteSecondary("age", "25", 10)
	m := idx.secondary["age"]
	set, ok := m.Get("25")
	assert.True(t, ok)
	assert.Equal(t, []int64{20}, set.offsets)

	idx.DeleteSecondary("age", "25", 20)
	_, ok = m.Get("25")
	assert.False(t, ok, "key should be pruned once its offset set is empty")
}

func TestResetPreservesSequenceAndFields(t *testing.T) {
	idx := New()
	idx.NextID()
	idx.NextID()
	idx.AddSecondaryField("email")
	idx.InsertPrimary(1, 100)
	idx.InsertSecondary("email", "a@x", 100)

	idx.Reset()

	assert.Equal(t, int64(2), idx.Sequence())
	assert.Equal(t, []string{"email"}, idx.SecondaryFields())
	_, ok := idx.PrimaryOffset(1)
	assert.False(t, ok)
}
