package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	doc := NewObject(
		Pair{Key: "_id", Value: NewInt64(1)},
		Pair{Key: "name", Value: NewString("Alice")},
		Pair{Key: "age", Value: NewInt32(25)},
		Pair{Key: "score", Value: NewDouble(9.5)},
		Pair{Key: "active", Value: NewBool(true)},
		Pair{Key: "joined", Value: NewDate(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))},
		Pair{Key: "tags", Value: NewArray(NewString("a"), NewString("b"))},
		Pair{Key: "address", Value: NewObject(Pair{Key: "city", Value: NewString("NYC")})},
		Pair{Key: "nothing", Value: NewNull()},
	)

	data, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, Object, decoded.Kind())
	id, ok := decoded.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	name, ok := decoded.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Alice", name.AsString())

	age, ok := decoded.Get("age")
	require.True(t, ok)
	assert.Equal(t, int32(25), age.AsInt32())

	tags, ok := decoded.Get("tags")
	require.True(t, ok)
	assert.Equal(t, Array, tags.Kind())
	assert.Len(t, tags.AsArray(), 2)

	addr, ok := decoded.Get("address")
	require.True(t, ok)
	city, ok := addr.Get("city")
	require.True(t, ok)
	assert.Equal(t, "NYC", city.AsString())
}

func TestMergeOverwritesTopLevelKeys(t *testing.T) {
	base := NewObject(
		Pair{Key: "_id", Value: NewInt64(1)},
		Pair{Key: "a", Value: NewInt64(1)},
		Pair{Key: "b", Value: NewString("keep")},
	)
	patch := NewObject(Pair{Key: "a", Value: NewInt64(2)})

	merged := Merge(patch, base)

	a, _ := merged.Get("a")
	assert.Equal(t, int64(2), a.AsInt64())
	b, _ := merged.Get("b")
	assert.Equal(t, "keep", b.AsString())
	id, _ := merged.ID()
	assert.Equal(t, int64(1), id)
}

func TestMergeReplacesID(t *testing.T) {
	base := NewObject(Pair{Key: "_id", Value: NewInt64(1)})
	patch := NewObject(Pair{Key: "_id", Value: NewInt64(2)})

	merged := Merge(patch, base)
	id, _ := merged.ID()
	assert.Equal(t, int64(2), id)
}

func TestEqualCrossNumeric(t *testing.T) {
	assert.True(t, Equal(NewInt32(5), NewInt64(5)))
	assert.True(t, Equal(NewInt64(5), NewDouble(5)))
	assert.False(t, Equal(NewInt64(5), NewString("5")))
}

func TestToStringCanonicalForms(t *testing.T) {
	assert.Equal(t, "5", ToString(NewInt32(5)))
	assert.Equal(t, "5", ToString(NewInt64(5)))
	assert.Equal(t, "true", ToString(NewBool(true)))
	assert.Equal(t, "hello", ToString(NewString("hello")))
}

func TestCloneIsDeep(t *testing.T) {
	base := NewObject(Pair{Key: "arr", Value: NewArray(NewInt64(1))})
	clone := base.Clone()
	arr, _ := clone.Get("arr")
	arr.items[0] = NewInt64(99)

	orig, _ := base.Get("arr")
	assert.Equal(t, int64(1), orig.items[0].AsInt64(), "mutating the clone's array must not affect the original")
}
