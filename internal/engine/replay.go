package engine

import (
	"go.uber.org/zap"

	"yardb/internal/document"
	"yardb/internal/record"
	"yardb/internal/yarerr"
)

// dbConfigEntry is one _db configuration document's parsed content.
type dbConfigEntry struct {
	collection string
	keys       []string
}

func parseDBConfig(doc document.Value) (dbConfigEntry, bool) {
	name, ok := doc.Get("collection")
	if !ok || name.Kind() != document.String {
		return dbConfigEntry{}, false
	}
	keysVal, ok := doc.Get("keys")
	if !ok || keysVal.Kind() != document.Array {
		return dbConfigEntry{}, false
	}
	var keys []string
	for _, k := range keysVal.AsArray() {
		if k.Kind() == document.String {
			keys = append(keys, k.AsString())
		}
	}
	return dbConfigEntry{collection: name.AsString(), keys: keys}, true
}

// replay implements §4.1.1's two-pass open: a structural pass that walks
// every record (live or not) to recover each collection's sequence
// counter and every _db-registered secondary field name, then a
// population pass that inserts only live records into the now-complete
// indexes. A truncated or corrupt tail (a crash mid-write) stops replay
// at the first undecodable record rather than failing open (§4.1.2).
func (e *Engine) replay() error {
	info, err := e.file.Stat()
	if err != nil {
		return yarerr.Wrap(yarerr.IoError, "stat database file", err)
	}
	fileSize := info.Size()

	var offset int64
	var configs []dbConfigEntry

	for offset < fileSize {
		rec, err := record.ReadAt(e.file, offset)
		if err != nil {
			e.logger.Warn("replay: stopping at undecodable tail", zap.Int64("offset", offset))
			break
		}

		idx := e.indexFor(rec.Metadata.Collection)
		if doc, derr := document.Decode(rec.Doc); derr == nil {
			if id, ok := doc.ID(); ok {
				idx.Bump(id)
			}
			if rec.Metadata.Collection == dbCollectionName {
				if cfg, ok := parseDBConfig(doc); ok {
					configs = append(configs, cfg)
				}
			}
		}
		offset += rec.Length
	}
	e.size = offset

	for _, cfg := range configs {
		target := e.indexFor(cfg.collection)
		for _, k := range cfg.keys {
			target.AddSecondaryField(k)
		}
	}

	return e.populate(e.size)
}

// populate runs (or reruns) the population pass over [0, limit), inserting
// every live record's document into its collection's primary and
// secondary indexes. Shared by replay's second pass and Reindex.
func (e *Engine) populate(limit int64) error {
	var offset int64
	for offset < limit {
		rec, err := record.ReadAt(e.file, offset)
		if err != nil {
			break
		}
		if rec.Metadata.Status == record.Created {
			if doc, derr := document.Decode(rec.Doc); derr == nil {
				if id, ok := doc.ID(); ok {
					idx := e.indexFor(rec.Metadata.Collection)
					idx.InsertPrimary(id, offset)
					e.indexSecondaries(idx, doc, offset)
				}
			}
		}
		offset += rec.Length
	}
	return nil
}
