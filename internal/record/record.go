package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Encode concatenates a metadata header and an already-encoded document
// into the bytes of a single on-disk record (§6.1).
func Encode(m Metadata, doc []byte) []byte {
	buf := make([]byte, 0, m.EncodedLen()+len(doc))
	w := &sliceWriter{buf: buf}
	_, _ = m.WriteTo(w)
	w.buf = append(w.buf, doc...)
	return w.buf
}

type sliceWriter struct{ buf []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Record is a decoded metadata header plus its raw (still-encoded)
// document bytes, and the total length of the on-disk record.
type Record struct {
	Metadata Metadata
	Doc      []byte
	Length   int64
}

// ReadAt decodes one full record starting at offset in r. The document's
// own length prefix (the document codec's BSON encoding begins with a
// 4-byte little-endian total length) tells the reader exactly how many
// further bytes to consume, satisfying §3 invariant 1: decoding a record
// needs only bytes from its start up to the next record boundary.
func ReadAt(r io.ReaderAt, offset int64) (Record, error) {
	section := io.NewSectionReader(r, offset, 1<<62-offset)
	br := bufio.NewReaderSize(section, 4096)

	meta, metaLen, err := ReadMetadata(br)
	if err != nil {
		return Record{}, fmt.Errorf("record: read metadata at %d: %w", offset, err)
	}
	meta.Position = offset

	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return Record{}, fmt.Errorf("record: read document length at %d: %w", offset, err)
	}
	docLen := binary.LittleEndian.Uint32(lenBuf[:])
	if docLen < 4 {
		return Record{}, fmt.Errorf("record: invalid document length %d at %d", docLen, offset)
	}

	doc := make([]byte, docLen)
	copy(doc[:4], lenBuf[:])
	if _, err := io.ReadFull(br, doc[4:]); err != nil {
		return Record{}, fmt.Errorf("record: read document body at %d: %w", offset, err)
	}

	return Record{
		Metadata: meta,
		Doc:      doc,
		Length:   metaLen + int64(docLen),
	}, nil
}
