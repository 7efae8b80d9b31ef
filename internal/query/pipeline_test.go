package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yardb/internal/document"
	"yardb/internal/engine"
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yardb")
	e, err := engine.Open(path, zap.NewNop(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	e.Collection("users")
	return e
}

func TestExecuteFilterAndSelect(t *testing.T) {
	e := openTestEngine(t)
	for _, n := range []struct {
		name string
		age  int64
	}{{"Alice", 25}, {"Bob", 30}, {"Charlie", 35}, {"David", 20}} {
		_, err := e.Create(document.NewObject(
			document.Pair{Key: "name", Value: document.NewString(n.name)},
			document.Pair{Key: "age", Value: document.NewInt64(n.age)},
		))
		require.NoError(t, err)
	}

	expr, err := ParseFilter("age gt 25")
	require.NoError(t, err)

	res, err := Execute(e, document.NewObject(), Params{Filter: expr, Select: []string{"name"}})
	require.NoError(t, err)
	require.Len(t, res.Docs, 2)
	names := []string{}
	for _, d := range res.Docs {
		n, _ := d.Get("name")
		names = append(names, n.AsString())
		_, hasAge := d.Get("age")
		assert.False(t, hasAge, "$select must drop unselected fields")
	}
	assert.ElementsMatch(t, []string{"Bob", "Charlie"}, names)
}

func TestExecuteCount(t *testing.T) {
	e := openTestEngine(t)
	_, err := e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(10)}))
	require.NoError(t, err)
	_, err = e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(20)}))
	require.NoError(t, err)

	res, err := Execute(e, document.NewObject(), Params{Count: true})
	require.NoError(t, err)
	assert.True(t, res.CountOnly)
	assert.Equal(t, 2, res.Count)
}

func TestExecuteOrderByInMemorySort(t *testing.T) {
	e := openTestEngine(t)
	_, err := e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(30)}))
	require.NoError(t, err)
	_, err = e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(10)}))
	require.NoError(t, err)
	_, err = e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(20)}))
	require.NoError(t, err)

	res, err := Execute(e, document.NewObject(), Params{OrderBy: &OrderBy{Field: "age"}})
	require.NoError(t, err)
	require.Len(t, res.Docs, 3)
	var ages []int64
	for _, d := range res.Docs {
		v, _ := d.Get("age")
		ages = append(ages, v.AsInt64())
	}
	assert.Equal(t, []int64{10, 20, 30}, ages)
}

func TestExecuteOrderByIndexedField(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.Index([]string{"age"}))

	_, err := e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(30)}))
	require.NoError(t, err)
	_, err = e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(10)}))
	require.NoError(t, err)
	_, err = e.Create(document.NewObject(document.Pair{Key: "age", Value: document.NewInt64(20)}))
	require.NoError(t, err)

	res, err := Execute(e, document.NewObject(), Params{OrderBy: &OrderBy{Field: "age"}})
	require.NoError(t, err)
	require.Len(t, res.Docs, 3)
	var ages []int64
	for _, d := range res.Docs {
		v, _ := d.Get("age")
		ages = append(ages, v.AsInt64())
	}
	assert.Equal(t, []int64{10, 20, 30}, ages, "ordering must come from the index, not insertion order")

	resDesc, err := Execute(e, document.NewObject(), Params{OrderBy: &OrderBy{Field: "age", Desc: true}})
	require.NoError(t, err)
	require.Len(t, resDesc.Docs, 3)
	ages = ages[:0]
	for _, d := range resDesc.Docs {
		v, _ := d.Get("age")
		ages = append(ages, v.AsInt64())
	}
	assert.Equal(t, []int64{30, 20, 10}, ages)
}

func TestExecuteTopSkip(t *testing.T) {
	e := openTestEngine(t)
	for i := 0; i < 5; i++ {
		_, err := e.Create(document.NewObject())
		require.NoError(t, err)
	}
	top := 2
	skip := 1
	res, err := Execute(e, document.NewObject(), Params{Top: &top, Skip: &skip})
	require.NoError(t, err)
	require.Len(t, res.Docs, 2)
}
