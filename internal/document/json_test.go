package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONPreservesOrderAndTypes(t *testing.T) {
	v, err := ParseJSON([]byte(`{"name":"Alice","age":30,"active":true,"tags":["a","b"],"note":null}`))
	require.NoError(t, err)
	require.Equal(t, Object, v.Kind())

	pairs := v.Pairs()
	require.Len(t, pairs, 5)
	assert.Equal(t, "name", pairs[0].Key)
	assert.Equal(t, "age", pairs[1].Key)
	assert.Equal(t, "active", pairs[2].Key)
	assert.Equal(t, "tags", pairs[3].Key)
	assert.Equal(t, "note", pairs[4].Key)

	age, _ := v.Get("age")
	assert.Equal(t, Int64, age.Kind())
	assert.Equal(t, int64(30), age.AsInt64())

	tags, _ := v.Get("tags")
	require.Equal(t, Array, tags.Kind())
	assert.Len(t, tags.AsArray(), 2)
}

func TestToJSONRoundTripsThroughEncoding(t *testing.T) {
	v := NewObject(
		Pair{Key: "name", Value: NewString("Alice")},
		Pair{Key: "age", Value: NewInt64(30)},
	)
	out := ToJSON(v)
	obj, ok := out.(JSONObject)
	require.True(t, ok)

	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Alice","age":30}`, string(raw))
}

func TestToJSONPreservesFieldOrderOnEncode(t *testing.T) {
	v := NewObject(
		Pair{Key: "z", Value: NewInt64(1)},
		Pair{Key: "a", Value: NewInt64(2)},
		Pair{Key: "m", Value: NewInt64(3)},
	)
	raw, err := json.Marshal(ToJSON(v))
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2,"m":3}`, string(raw))
}

func TestJSONObjectSetAppendsOrOverwrites(t *testing.T) {
	obj := ToJSONObject(NewObject(Pair{Key: "name", Value: NewString("Alice")}))
	obj.Set("@odata.id", "/users/1")
	obj.Set("name", "Bob")

	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Bob","@odata.id":"/users/1"}`, string(raw))
}
