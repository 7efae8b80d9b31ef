// Package record implements the on-disk metadata header that precedes
// every document in the storage file (§3, §6.1): status, collection,
// timestamp, self-position, and the previous-version position that chains
// document history.
package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Status is the one mutable byte of a record: the newest record for an id
// starts Created and may later be rewritten to Updated (superseded) or
// Deleted, in place, without moving the record (§9).
type Status uint8

const (
	Created Status = 1
	Updated Status = 2
	Deleted Status = 3
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// NoPrevious marks the oldest record in a history chain.
const NoPrevious int64 = -1

// Metadata is the fixed-shape header written before every document.
type Metadata struct {
	Status     Status
	Collection string
	Timestamp  time.Time
	Position   int64
	Previous   int64
}

// headerFixedLen is the metadata header length, excluding the
// variable-length collection name: status(1) + collection-len(4) +
// timestamp(8) + position(8) + previous(8).
const headerFixedLen = 1 + 4 + 8 + 8 + 8

// EncodedLen returns the number of bytes the metadata header occupies.
func (m Metadata) EncodedLen() int {
	return headerFixedLen + len(m.Collection)
}

// WriteTo appends the encoded metadata header to w. All integers are
// little-endian (§6.1).
func (m Metadata) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, m.EncodedLen())
	buf[0] = byte(m.Status)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(m.Collection)))
	copy(buf[5:5+len(m.Collection)], m.Collection)
	off := 5 + len(m.Collection)
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(m.Timestamp.UTC().UnixMilli()))
	binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(m.Position))
	binary.LittleEndian.PutUint64(buf[off+16:off+24], uint64(m.Previous))
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadMetadata decodes a metadata header from r, returning the number of
// bytes consumed.
func ReadMetadata(r *bufio.Reader) (Metadata, int64, error) {
	var m Metadata
	var n int64

	statusByte, err := r.ReadByte()
	if err != nil {
		return m, n, err
	}
	n++
	m.Status = Status(statusByte)

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return m, n, err
	}
	n += 4
	collLen := binary.LittleEndian.Uint32(lenBuf[:])

	collBuf := make([]byte, collLen)
	if _, err := io.ReadFull(r, collBuf); err != nil {
		return m, n, err
	}
	n += int64(collLen)
	m.Collection = string(collBuf)

	var rest [24]byte
	if _, err := io.ReadFull(r, rest[:]); err != nil {
		return m, n, err
	}
	n += 24
	ms := binary.LittleEndian.Uint64(rest[0:8])
	m.Timestamp = time.UnixMilli(int64(ms)).UTC()
	m.Position = int64(binary.LittleEndian.Uint64(rest[8:16]))
	m.Previous = int64(binary.LittleEndian.Uint64(rest[16:24]))

	return m, n, nil
}

// StatusOffset returns the absolute file offset of the mutable status byte
// for a record whose metadata starts at position: it is always the first
// byte of the record (§9).
func StatusOffset(position int64) int64 {
	return position
}
