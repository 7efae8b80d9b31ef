package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yardb/internal/document"
	"yardb/internal/yarerr"
)

func openTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yardb")
	e, err := Open(path, zap.NewNop(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	e.Collection("users")
	return e, path
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	e, _ := openTestEngine(t)

	a, err := e.Create(document.NewObject(document.Pair{Key: "name", Value: document.NewString("ann")}))
	require.NoError(t, err)
	b, err := e.Create(document.NewObject(document.Pair{Key: "name", Value: document.NewString("bob")}))
	require.NoError(t, err)

	aID, _ := a.ID()
	bID, _ := b.ID()
	assert.Equal(t, int64(1), aID)
	assert.Equal(t, int64(2), bID)
}

func TestCreateReadRoundTrip(t *testing.T) {
	e, _ := openTestEngine(t)

	created, err := e.Create(document.NewObject(document.Pair{Key: "name", Value: document.NewString("ann")}))
	require.NoError(t, err)
	id, _ := created.ID()

	got, err := e.Read(document.NewObject(document.Pair{Key: document.IDKey, Value: document.NewInt64(id)}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	name, _ := got[0].Get("name")
	assert.Equal(t, "ann", name.AsString())
}

func TestUpdateSupersedesOldRecord(t *testing.T) {
	e, _ := openTestEngine(t)

	created, err := e.Create(document.NewObject(document.Pair{Key: "name", Value: document.NewString("ann")}))
	require.NoError(t, err)
	id, _ := created.ID()
	sel := document.NewObject(document.Pair{Key: document.IDKey, Value: document.NewInt64(id)})

	updated, err := e.Update(sel, document.NewObject(document.Pair{Key: "name", Value: document.NewString("annie")}))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	name, _ := updated[0].Get("name")
	assert.Equal(t, "annie", name.AsString())

	got, err := e.Read(sel)
	require.NoError(t, err)
	require.Len(t, got, 1)
	name, _ = got[0].Get("name")
	assert.Equal(t, "annie", name.AsString())
}

func TestReplaceDropsOmittedFields(t *testing.T) {
	e, _ := openTestEngine(t)

	created, err := e.Create(document.NewObject(
		document.Pair{Key: "name", Value: document.NewString("ann")},
		document.Pair{Key: "age", Value: document.NewInt64(30)},
	))
	require.NoError(t, err)
	id, _ := created.ID()
	sel := document.NewObject(document.Pair{Key: document.IDKey, Value: document.NewInt64(id)})

	replaced, err := e.Replace(sel, document.NewObject(document.Pair{Key: "name", Value: document.NewString("annie")}))
	require.NoError(t, err)
	require.Len(t, replaced, 1)
	assert.False(t, replaced[0].Has("age"))
	name, _ := replaced[0].Get("name")
	assert.Equal(t, "annie", name.AsString())

	got, err := e.Read(sel)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Has("age"))
}

func TestReplaceIndexDropsUnlistedField(t *testing.T) {
	e, _ := openTestEngine(t)

	require.NoError(t, e.Index([]string{"name", "age"}))
	assert.ElementsMatch(t, []string{"name", "age"}, e.IndexedFields())

	require.NoError(t, e.ReplaceIndex([]string{"age"}))
	assert.Equal(t, []string{"age"}, e.IndexedFields())
	assert.False(t, e.IsIndexed("name"))
}

func TestDestroyExcludesFromRead(t *testing.T) {
	e, _ := openTestEngine(t)

	created, err := e.Create(document.NewObject(document.Pair{Key: "name", Value: document.NewString("ann")}))
	require.NoError(t, err)
	id, _ := created.ID()
	sel := document.NewObject(document.Pair{Key: document.IDKey, Value: document.NewInt64(id)})

	destroyed, err := e.Destroy(sel)
	require.NoError(t, err)
	require.Len(t, destroyed, 1)

	got, err := e.Read(sel)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryWalksChainNewestFirst(t *testing.T) {
	e, _ := openTestEngine(t)

	created, err := e.Create(document.NewObject(document.Pair{Key: "name", Value: document.NewString("v1")}))
	require.NoError(t, err)
	id, _ := created.ID()
	sel := document.NewObject(document.Pair{Key: document.IDKey, Value: document.NewInt64(id)})

	_, err = e.Update(sel, document.NewObject(document.Pair{Key: "name", Value: document.NewString("v2")}))
	require.NoError(t, err)
	_, err = e.Update(sel, document.NewObject(document.Pair{Key: "name", Value: document.NewString("v3")}))
	require.NoError(t, err)

	chains, err := e.History(sel)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.Len(t, chains[0], 3)

	n0, _ := chains[0][0].Get("name")
	n1, _ := chains[0][1].Get("name")
	n2, _ := chains[0][2].Get("name")
	assert.Equal(t, "v3", n0.AsString())
	assert.Equal(t, "v2", n1.AsString())
	assert.Equal(t, "v1", n2.AsString())
}

func TestIndexRegistersSecondaryFieldAndNarrowsCandidates(t *testing.T) {
	e, _ := openTestEngine(t)

	_, err := e.Create(document.NewObject(document.Pair{Key: "email", Value: document.NewString("a@x")}))
	require.NoError(t, err)
	_, err = e.Create(document.NewObject(document.Pair{Key: "email", Value: document.NewString("b@x")}))
	require.NoError(t, err)

	require.NoError(t, e.Index([]string{"email"}))
	// Index does not populate the new field from documents already stored;
	// Reindex does.
	require.NoError(t, e.Reindex())

	got, err := e.Read(document.NewObject(document.Pair{Key: "email", Value: document.NewString("a@x")}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	email, _ := got[0].Get("email")
	assert.Equal(t, "a@x", email.AsString())

	// The index configuration must be persisted into _db.
	dbEntries, err := e.readIn(dbCollectionName, document.NewObject())
	require.NoError(t, err)
	require.Len(t, dbEntries, 1)
	coll, _ := dbEntries[0].Get("collection")
	assert.Equal(t, "users", coll.AsString())
}

func TestReopenReplaysIndexesAndSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yardb")
	e, err := Open(path, zap.NewNop(), 0)
	require.NoError(t, err)
	e.Collection("users")

	_, err = e.Create(document.NewObject(document.Pair{Key: "email", Value: document.NewString("a@x")}))
	require.NoError(t, err)
	require.NoError(t, e.Index([]string{"email"}))
	created2, err := e.Create(document.NewObject(document.Pair{Key: "email", Value: document.NewString("b@x")}))
	require.NoError(t, err)
	require.NoError(t, e.Close())

	e2, err := Open(path, zap.NewNop(), 0)
	require.NoError(t, err)
	defer e2.Close()
	e2.Collection("users")

	got, err := e2.Read(document.NewObject(document.Pair{Key: "email", Value: document.NewString("a@x")}))
	require.NoError(t, err)
	require.Len(t, got, 1)

	id2, _ := created2.ID()
	next, err := e2.Create(document.NewObject())
	require.NoError(t, err)
	nextID, _ := next.ID()
	assert.Equal(t, id2+1, nextID)
}

func TestOpenTwiceFailsAlreadyLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yardb")
	e, err := Open(path, zap.NewNop(), 0)
	require.NoError(t, err)
	defer e.Close()

	_, err = Open(path, zap.NewNop(), 0)
	require.Error(t, err)
	var yerr *yarerr.Error
	require.ErrorAs(t, err, &yerr)
	assert.Equal(t, yarerr.AlreadyLocked, yerr.Kind)
}

func TestCollectionsExcludesDB(t *testing.T) {
	e, _ := openTestEngine(t)
	_, err := e.Create(document.NewObject())
	require.NoError(t, err)
	require.NoError(t, e.Index([]string{"email"}))

	cols := e.Collections()
	assert.Contains(t, cols, "users")
	assert.NotContains(t, cols, dbCollectionName)
}
