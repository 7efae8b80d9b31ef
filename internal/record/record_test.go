package record

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"yardb/internal/document"
)

func TestRecordRoundTrip(t *testing.T) {
	doc := document.NewObject(
		document.Pair{Key: "_id", Value: document.NewInt64(1)},
		document.Pair{Key: "name", Value: document.NewString("Alice")},
	)
	docBytes, err := document.Encode(doc)
	require.NoError(t, err)

	meta := Metadata{
		Status:     Created,
		Collection: "items",
		Timestamp:  time.Now().Truncate(time.Millisecond),
		Position:   0,
		Previous:   NoPrevious,
	}

	path := filepath.Join(t.TempDir(), "db")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	buf := Encode(meta, docBytes)
	_, err = f.WriteAt(buf, 0)
	require.NoError(t, err)

	got, err := ReadAt(f, 0)
	require.NoError(t, err)
	require.Equal(t, int64(len(buf)), got.Length)
	require.Equal(t, Created, got.Metadata.Status)
	require.Equal(t, "items", got.Metadata.Collection)
	require.Equal(t, int64(0), got.Metadata.Position)
	require.Equal(t, NoPrevious, got.Metadata.Previous)

	decodedDoc, err := document.Decode(got.Doc)
	require.NoError(t, err)
	name, ok := decodedDoc.Get("name")
	require.True(t, ok)
	require.Equal(t, "Alice", name.AsString())
}

func TestStatusByteRewrite(t *testing.T) {
	doc := document.NewObject(document.Pair{Key: "_id", Value: document.NewInt64(1)})
	docBytes, _ := document.Encode(doc)
	meta := Metadata{Status: Created, Collection: "x", Timestamp: time.Now(), Position: 0, Previous: NoPrevious}
	buf := Encode(meta, docBytes)

	path := filepath.Join(t.TempDir(), "db")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteAt(buf, 0)
	require.NoError(t, err)

	_, err = f.WriteAt([]byte{byte(Deleted)}, StatusOffset(0))
	require.NoError(t, err)

	got, err := ReadAt(f, 0)
	require.NoError(t, err)
	require.Equal(t, Deleted, got.Metadata.Status)
}
