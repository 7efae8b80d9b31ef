// Package engine implements YarDB's single-file storage engine (§4.1):
// open/replay, the append-only write path, and the create/read/update/
// destroy/history/index/reindex operations. An Engine assumes it is
// called under external mutual exclusion (internal/concurrency) — it
// keeps no lock of its own around its in-memory index state, only the
// cross-process advisory file lock acquired at Open.
package engine

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"yardb/internal/document"
	"yardb/internal/index"
	"yardb/internal/record"
	"yardb/internal/yarerr"
)

type cachedDoc struct {
	doc document.Value
}

// Engine owns one open database file.
type Engine struct {
	path   string
	file   *os.File
	lock   *dbLock
	logger *zap.Logger

	size int64 // end of file / next write offset

	collections map[string]*index.Index
	collOrder   []string
	active      string

	cache *lru.Cache[int64, cachedDoc]
}

// Open acquires the database's exclusive lock, opens (creating if absent)
// its single file, and replays it (§4.1.1). cacheSize <= 0 uses
// DefaultCacheSize.
func Open(path string, logger *zap.Logger, cacheSize int) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	lk, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		_ = lk.release()
		return nil, yarerr.Wrap(yarerr.IoError, "open database file", err).With("path", path)
	}

	cache, err := newDecodeCache(cacheSize)
	if err != nil {
		_ = f.Close()
		_ = lk.release()
		return nil, yarerr.Wrap(yarerr.Internal, "build decode cache", err)
	}

	e := &Engine{
		path:        path,
		file:        f,
		lock:        lk,
		logger:      logger,
		collections: make(map[string]*index.Index),
		cache:       cache,
	}

	if err := e.replay(); err != nil {
		_ = f.Close()
		_ = lk.release()
		return nil, err
	}

	logger.Info("engine opened",
		zap.String("path", path),
		zap.Int64("size", e.size),
		zap.Strings("collections", e.collOrder))

	return e, nil
}

// Close flushes, closes the file, and releases the exclusive lock.
func (e *Engine) Close() error {
	if err := e.file.Sync(); err != nil {
		_ = e.file.Close()
		_ = e.lock.release()
		return yarerr.Wrap(yarerr.IoError, "sync database file", err)
	}
	if err := e.file.Close(); err != nil {
		_ = e.lock.release()
		return yarerr.Wrap(yarerr.IoError, "close database file", err)
	}
	return e.lock.release()
}

// Collection sets the active collection for subsequent operations (§4.1).
func (e *Engine) Collection(name string) {
	e.active = name
}

// Collections lists every collection name the engine knows of, in the
// order first seen, excluding the internal _db index-configuration
// collection. A name is known once it appears in the file or once any
// operation (including a read or an index-configuration lookup) has named
// it, so a collection with no stored record can be listed.
func (e *Engine) Collections() []string {
	out := make([]string, 0, len(e.collOrder))
	for _, name := range e.collOrder {
		if name == dbCollectionName {
			continue
		}
		out = append(out, name)
	}
	return out
}

// IsIndexed reports whether field is the primary key or a configured
// secondary index field of the active collection, used by the query
// layer to decide whether $orderby can be served by index direction
// rather than an in-memory sort (§4.3.2 step 5).
func (e *Engine) IsIndexed(field string) bool {
	if field == document.IDKey {
		return true
	}
	return e.indexFor(e.active).HasSecondaryField(field)
}

func (e *Engine) indexFor(name string) *index.Index {
	if idx, ok := e.collections[name]; ok {
		return idx
	}
	idx := index.New()
	e.collections[name] = idx
	e.collOrder = append(e.collOrder, name)
	return idx
}

// appendRecord writes one new record at the end of the file and advances
// e.size, returning the record's position.
func (e *Engine) appendRecord(meta record.Metadata, docBytes []byte) (int64, error) {
	offset := e.size
	meta.Position = offset
	buf := record.Encode(meta, docBytes)
	if _, err := e.file.WriteAt(buf, offset); err != nil {
		return 0, err
	}
	e.size += int64(len(buf))
	return offset, nil
}

// rewriteStatus flips the single mutable status byte of the record at
// offset, in place, without touching the rest of the file (§9).
func (e *Engine) rewriteStatus(offset int64, status record.Status) error {
	_, err := e.file.WriteAt([]byte{byte(status)}, record.StatusOffset(offset))
	return err
}

func (e *Engine) flush() error {
	return e.file.Sync()
}

// decodeAt reads the record at offset, returning its metadata (always
// freshly read, since status can change) and decoded document (served
// from cache when present, since document bytes are immutable once
// written).
func (e *Engine) decodeAt(offset int64) (record.Metadata, document.Value, error) {
	rec, err := record.ReadAt(e.file, offset)
	if err != nil {
		return record.Metadata{}, document.Value{}, yarerr.Wrap(yarerr.IoError, "read record", err).With("offset", offset)
	}
	if cd, ok := e.cache.Get(offset); ok {
		return rec.Metadata, cd.doc, nil
	}
	doc, err := document.Decode(rec.Doc)
	if err != nil {
		return rec.Metadata, document.Value{}, yarerr.Wrap(yarerr.IoError, "decode document", err).With("offset", offset)
	}
	e.cache.Add(offset, cachedDoc{doc: doc})
	return rec.Metadata, doc, nil
}

func (e *Engine) indexSecondaries(idx *index.Index, doc document.Value, offset int64) {
	for _, field := range idx.SecondaryFields() {
		if val, ok := doc.Get(field); ok {
			idx.InsertSecondary(field, document.ToString(val), offset)
		}
	}
}

func (e *Engine) removeSecondaries(idx *index.Index, doc document.Value, offset int64) {
	for _, field := range idx.SecondaryFields() {
		if val, ok := doc.Get(field); ok {
			idx.DeleteSecondary(field, document.ToString(val), offset)
		}
	}
}

func extractHint(selector document.Value, key string) *int {
	if v, ok := selector.Get(key); ok {
		if n, ok := v.AsInt(); ok {
			i := int(n)
			return &i
		}
	}
	return nil
}

// Create inserts doc into the active collection, assigning _id from the
// collection's sequence if doc does not already carry one (§4.1 create).
func (e *Engine) Create(doc document.Value) (document.Value, error) {
	return e.createIn(e.active, doc)
}

func (e *Engine) createIn(collection string, doc document.Value) (document.Value, error) {
	idx := e.indexFor(collection)

	id, hadID := doc.ID()
	if hadID {
		idx.Bump(id)
	} else {
		id = idx.NextID()
		doc = doc.WithPair(document.IDKey, document.NewInt64(id))
	}

	docBytes, err := document.Encode(doc)
	if err != nil {
		return document.Value{}, yarerr.Wrap(yarerr.Internal, "encode document", err)
	}

	meta := record.Metadata{
		Status:     record.Created,
		Collection: collection,
		Timestamp:  time.Now(),
		Previous:   record.NoPrevious,
	}
	offset, err := e.appendRecord(meta, docBytes)
	if err != nil {
		return document.Value{}, yarerr.Wrap(yarerr.IoError, "append record", err)
	}
	if err := e.flush(); err != nil {
		return document.Value{}, yarerr.Wrap(yarerr.IoError, "flush", err)
	}

	idx.InsertPrimary(id, offset)
	e.indexSecondaries(idx, doc, offset)
	e.cache.Add(offset, cachedDoc{doc: doc})

	return doc, nil
}

// Read returns every live document in the active collection matching
// selector, after applying its $skip/$top hints (§4.1 read).
func (e *Engine) Read(selector document.Value) ([]document.Value, error) {
	return e.readIn(e.active, selector)
}

func (e *Engine) readIn(collection string, selector document.Value) ([]document.Value, error) {
	idx := e.indexFor(collection)
	candidates := idx.Candidates(selector)

	var matched []document.Value
	for _, off := range candidates {
		meta, doc, err := e.decodeAt(off)
		if err != nil {
			return nil, err
		}
		if meta.Status != record.Created {
			continue
		}
		if !document.Match(doc, selector) {
			continue
		}
		matched = append(matched, doc)
	}

	if skip := extractHint(selector, document.OpSkip); skip != nil {
		n := *skip
		if n < 0 {
			n = 0
		}
		if n > len(matched) {
			n = len(matched)
		}
		matched = matched[n:]
	}
	if top := extractHint(selector, document.OpTop); top != nil {
		n := *top
		if n < 0 {
			n = 0
		}
		if n < len(matched) {
			matched = matched[:n]
		}
	}

	return matched, nil
}

// Update merges updates onto every live document in the active
// collection matching selector, appending each result as a new record and
// rewriting the superseded record's status to Updated (§4.1 update).
func (e *Engine) Update(selector, updates document.Value) ([]document.Value, error) {
	return e.updateIn(e.active, selector, updates)
}

func (e *Engine) updateIn(collection string, selector, updates document.Value) ([]document.Value, error) {
	idx := e.indexFor(collection)
	candidates := idx.Candidates(selector)

	var results []document.Value
	for _, off := range candidates {
		meta, oldDoc, err := e.decodeAt(off)
		if err != nil {
			return nil, err
		}
		if meta.Status != record.Created {
			continue
		}
		if !document.Match(oldDoc, selector) {
			continue
		}

		oldID, _ := oldDoc.ID()
		newDoc := document.Merge(updates, oldDoc)
		newID, ok := newDoc.ID()
		if !ok {
			newID = oldID
			newDoc = newDoc.WithPair(document.IDKey, document.NewInt64(oldID))
		}

		if err := e.rewriteStatus(off, record.Updated); err != nil {
			return nil, yarerr.Wrap(yarerr.IoError, "rewrite status", err).With("offset", off)
		}

		newDocBytes, err := document.Encode(newDoc)
		if err != nil {
			return nil, yarerr.Wrap(yarerr.Internal, "encode document", err)
		}
		newMeta := record.Metadata{
			Status:     record.Created,
			Collection: collection,
			Timestamp:  time.Now(),
			Previous:   off,
		}
		newOffset, err := e.appendRecord(newMeta, newDocBytes)
		if err != nil {
			return nil, yarerr.Wrap(yarerr.IoError, "append record", err)
		}

		idx.DeletePrimary(oldID)
		e.removeSecondaries(idx, oldDoc, off)
		idx.Bump(newID)
		idx.InsertPrimary(newID, newOffset)
		e.indexSecondaries(idx, newDoc, newOffset)
		e.cache.Add(newOffset, cachedDoc{doc: newDoc})

		results = append(results, newDoc)
	}

	if err := e.flush(); err != nil {
		return nil, yarerr.Wrap(yarerr.IoError, "flush", err)
	}
	return results, nil
}

// Replace supersedes every live document in the active collection
// matching selector with newDoc verbatim, appending the result as a new
// record and rewriting the superseded record's status to Updated. Unlike
// Update, fields of the old document absent from newDoc are dropped —
// this is PUT's "replace if exists" semantics (§4.4.2), where Update's
// merge would instead be PATCH's semantics.
func (e *Engine) Replace(selector, newDoc document.Value) ([]document.Value, error) {
	return e.replaceIn(e.active, selector, newDoc)
}

func (e *Engine) replaceIn(collection string, selector, newDocInput document.Value) ([]document.Value, error) {
	idx := e.indexFor(collection)
	candidates := idx.Candidates(selector)

	var results []document.Value
	for _, off := range candidates {
		meta, oldDoc, err := e.decodeAt(off)
		if err != nil {
			return nil, err
		}
		if meta.Status != record.Created {
			continue
		}
		if !document.Match(oldDoc, selector) {
			continue
		}

		oldID, _ := oldDoc.ID()
		newDoc := newDocInput
		newID, ok := newDoc.ID()
		if !ok {
			newID = oldID
			newDoc = newDoc.WithPair(document.IDKey, document.NewInt64(oldID))
		}

		if err := e.rewriteStatus(off, record.Updated); err != nil {
			return nil, yarerr.Wrap(yarerr.IoError, "rewrite status", err).With("offset", off)
		}

		newDocBytes, err := document.Encode(newDoc)
		if err != nil {
			return nil, yarerr.Wrap(yarerr.Internal, "encode document", err)
		}
		newMeta := record.Metadata{
			Status:     record.Created,
			Collection: collection,
			Timestamp:  time.Now(),
			Previous:   off,
		}
		newOffset, err := e.appendRecord(newMeta, newDocBytes)
		if err != nil {
			return nil, yarerr.Wrap(yarerr.IoError, "append record", err)
		}

		idx.DeletePrimary(oldID)
		e.removeSecondaries(idx, oldDoc, off)
		idx.Bump(newID)
		idx.InsertPrimary(newID, newOffset)
		e.indexSecondaries(idx, newDoc, newOffset)
		e.cache.Add(newOffset, cachedDoc{doc: newDoc})

		results = append(results, newDoc)
	}

	if err := e.flush(); err != nil {
		return nil, yarerr.Wrap(yarerr.IoError, "flush", err)
	}
	return results, nil
}

// Destroy marks every live document matching selector Deleted, honoring
// $top (§4.1 destroy).
func (e *Engine) Destroy(selector document.Value) ([]document.Value, error) {
	return e.destroyIn(e.active, selector)
}

func (e *Engine) destroyIn(collection string, selector document.Value) ([]document.Value, error) {
	idx := e.indexFor(collection)
	candidates := idx.Candidates(selector)
	top := extractHint(selector, document.OpTop)

	var results []document.Value
	for _, off := range candidates {
		if top != nil && len(results) >= *top {
			break
		}
		meta, doc, err := e.decodeAt(off)
		if err != nil {
			return nil, err
		}
		if meta.Status != record.Created {
			continue
		}
		if !document.Match(doc, selector) {
			continue
		}

		id, _ := doc.ID()
		if err := e.rewriteStatus(off, record.Deleted); err != nil {
			return nil, yarerr.Wrap(yarerr.IoError, "rewrite status", err).With("offset", off)
		}
		idx.DeletePrimary(id)
		e.removeSecondaries(idx, doc, off)

		results = append(results, doc)
	}

	if err := e.flush(); err != nil {
		return nil, yarerr.Wrap(yarerr.IoError, "flush", err)
	}
	return results, nil
}

// History walks, newest first, the full version chain of every live
// document matching selector (§4.1 history).
func (e *Engine) History(selector document.Value) ([][]document.Value, error) {
	return e.historyIn(e.active, selector)
}

func (e *Engine) historyIn(collection string, selector document.Value) ([][]document.Value, error) {
	idx := e.indexFor(collection)
	candidates := idx.Candidates(selector)

	var chains [][]document.Value
	for _, off := range candidates {
		meta, doc, err := e.decodeAt(off)
		if err != nil {
			return nil, err
		}
		if meta.Status != record.Created {
			continue
		}
		if !document.Match(doc, selector) {
			continue
		}

		chain := []document.Value{doc}
		prev := meta.Previous
		for prev != record.NoPrevious {
			pmeta, pdoc, err := e.decodeAt(prev)
			if err != nil {
				return nil, err
			}
			chain = append(chain, pdoc)
			prev = pmeta.Previous
		}
		chains = append(chains, chain)
	}
	return chains, nil
}

// Lookup returns the metadata and document of the first live record in
// the active collection matching selector, used by the REST layer to
// build ETag (collection, _id, position) and Last-Modified (§4.4.4).
func (e *Engine) Lookup(selector document.Value) (record.Metadata, document.Value, bool, error) {
	return e.lookupIn(e.active, selector)
}

func (e *Engine) lookupIn(collection string, selector document.Value) (record.Metadata, document.Value, bool, error) {
	idx := e.indexFor(collection)
	candidates := idx.Candidates(selector)
	for _, off := range candidates {
		meta, doc, err := e.decodeAt(off)
		if err != nil {
			return record.Metadata{}, document.Value{}, false, err
		}
		if meta.Status != record.Created {
			continue
		}
		if !document.Match(doc, selector) {
			continue
		}
		return meta, doc, true, nil
	}
	return record.Metadata{}, document.Value{}, false, nil
}

// MetadataTimestamp returns the Last-Modified timestamp of the first live
// document matching selector.
func (e *Engine) MetadataTimestamp(selector document.Value) (time.Time, bool, error) {
	meta, _, found, err := e.Lookup(selector)
	return meta.Timestamp, found, err
}

// MetadataPosition returns the file position of the first live document
// matching selector, the position component of its ETag.
func (e *Engine) MetadataPosition(selector document.Value) (int64, bool, error) {
	meta, _, found, err := e.Lookup(selector)
	return meta.Position, found, err
}

// Index registers keys as secondary index fields on the active
// collection and persists that configuration into _db (§4.1 index()).
func (e *Engine) Index(keys []string) error {
	idx := e.indexFor(e.active)
	for _, k := range keys {
		idx.AddSecondaryField(k)
	}
	return e.upsertDBConfig(e.active, idx.SecondaryFields())
}

// IndexedFields returns the active collection's configured secondary
// index field names, in configuration order.
func (e *Engine) IndexedFields() []string {
	return e.indexFor(e.active).SecondaryFields()
}

// ReplaceIndex replaces the active collection's secondary index field set
// with keys, dropping any field not named, then rebuilds secondary index
// content from the file and persists the new configuration into _db
// (PUT /_db/{collection} replace semantics, as opposed to Index's
// additive PATCH semantics).
func (e *Engine) ReplaceIndex(keys []string) error {
	idx := e.indexFor(e.active)
	idx.SetSecondaryFields(keys)
	if err := e.populate(e.size); err != nil {
		return err
	}
	return e.upsertDBConfig(e.active, keys)
}

func (e *Engine) upsertDBConfig(collection string, keys []string) error {
	dbIdx := e.indexFor(dbCollectionName)

	var existingID int64
	var found bool
	for _, off := range e.allLiveOffsets(dbIdx) {
		_, doc, err := e.decodeAt(off)
		if err != nil {
			return err
		}
		name, ok := doc.Get("collection")
		if ok && name.Kind() == document.String && name.AsString() == collection {
			id, _ := doc.ID()
			existingID, found = id, true
			break
		}
	}

	keyValues := make([]document.Value, len(keys))
	for i, k := range keys {
		keyValues[i] = document.NewString(k)
	}
	cfg := document.NewObject(
		document.Pair{Key: "collection", Value: document.NewString(collection)},
		document.Pair{Key: "keys", Value: document.NewArray(keyValues...)},
	)

	if found {
		sel := document.NewObject(document.Pair{Key: document.IDKey, Value: document.NewInt64(existingID)})
		_, err := e.updateIn(dbCollectionName, sel, cfg)
		return err
	}
	_, err := e.createIn(dbCollectionName, cfg)
	return err
}

// allLiveOffsets returns every live primary offset of idx in ascending
// order, used for the small internal scans over _db (never large enough
// to need secondary indexing of its own).
func (e *Engine) allLiveOffsets(idx *index.Index) []int64 {
	return idx.Candidates(document.NewObject())
}

// Reindex rebuilds every collection's index from the file, preserving
// sequence counters and configured secondary field names (§4.1 reindex).
func (e *Engine) Reindex() error {
	for _, idx := range e.collections {
		idx.Reset()
	}
	return e.populate(e.size)
}

