package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"yardb/internal/concurrency"
	"yardb/internal/document"
	"yardb/internal/engine"
	"yardb/internal/query"
	"yardb/internal/record"
	"yardb/internal/yarerr"
)

// api wires the REST resource layer (§4.4) onto a concurrency-guarded
// engine. It holds no state of its own beyond the guard — all per-request
// state lives on the stack of the handling goroutine.
type api struct {
	guard *concurrency.Guard
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// readBody reads exactly Content-Length bytes of the request body, or
// nil if none was declared.
func readBody(r *http.Request) ([]byte, error) {
	if r.ContentLength <= 0 {
		return nil, nil
	}
	buf := make([]byte, r.ContentLength)
	if _, err := io.ReadFull(r.Body, buf); err != nil {
		return nil, yarerr.Wrap(yarerr.BadRequest, "failed to read request body", err)
	}
	return buf, nil
}

func parseJSONBody(r *http.Request) (document.Value, error) {
	raw, err := readBody(r)
	if err != nil {
		return document.Value{}, err
	}
	doc, err := document.ParseJSON(raw)
	if err != nil {
		return document.Value{}, yarerr.Wrap(yarerr.BadRequest, "invalid JSON body", err)
	}
	return doc, nil
}

func setEntityHeaders(w http.ResponseWriter, etag string, lastModified time.Time) {
	if etag == "" {
		return
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	w.Header().Set("Last-Modified", LastModified(lastModified))
}

// handleListCollections serves `/` (§4.4.1).
func (a *api) handleListCollections(w http.ResponseWriter, r *http.Request) {
	mode, err := Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, err)
		return
	}

	var names []string
	err = a.guard.With("", func(e *engine.Engine) error {
		names = e.Collections()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}

	body := map[string]interface{}{"collections": names}
	if mode != ModeNone {
		body["@odata.context"] = "/$metadata"
	}
	writeJSON(w, http.StatusOK, body)
}

// handleReindex serves `/_reindex` (§4.4.1).
func (a *api) handleReindex(w http.ResponseWriter, r *http.Request) {
	err := a.guard.With("", func(e *engine.Engine) error { return e.Reindex() })
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reindexed": true})
}

// handleDBConfigGet serves GET /_db/{collection} (§4.4.5).
func (a *api) handleDBConfigGet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	var keys []string
	err := a.guard.With(collection, func(e *engine.Engine) error {
		keys = e.IndexedFields()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collection": collection, "keys": keys})
}

// handleDBConfigPut serves PUT /_db/{collection}: full replacement of the
// secondary index key set (§4.4.5).
func (a *api) handleDBConfigPut(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	body, err := parseJSONBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	keys, err := ParseDBConfigKeys(body)
	if err != nil {
		writeError(w, err)
		return
	}

	err = a.guard.With(collection, func(e *engine.Engine) error { return e.ReplaceIndex(keys) })
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collection": collection, "keys": keys})
}

// handleDBConfigPatch serves PATCH /_db/{collection}: union with the
// existing key set (§4.4.5).
func (a *api) handleDBConfigPatch(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	body, err := parseJSONBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	additional, err := ParseDBConfigKeys(body)
	if err != nil {
		writeError(w, err)
		return
	}

	var union []string
	err = a.guard.With(collection, func(e *engine.Engine) error {
		union = UnionKeys(e.IndexedFields(), additional)
		return e.Index(union)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collection": collection, "keys": union})
}

// handleCollectionGet serves GET/HEAD /{collection} (§4.4.2): a filtered
// list for GET, parameter validation only for HEAD.
func (a *api) handleCollectionGet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	mode, err := Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, err)
		return
	}
	params, err := query.Parse(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	var res query.Result
	err = a.guard.With(collection, func(e *engine.Engine) error {
		out, execErr := query.Execute(e, document.NewObject(), params)
		res = out
		return execErr
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}

	if res.CountOnly {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "%d", res.Count)
		return
	}

	writeJSON(w, http.StatusOK, WrapCollection(mode, collection, res.Docs))
}

// handleCollectionPost serves POST /{collection}: create (§4.4.2).
func (a *api) handleCollectionPost(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	mode, err := Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := parseJSONBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var created document.Value
	var etag string
	var lastMod time.Time
	err = a.guard.With(collection, func(e *engine.Engine) error {
		c, cerr := e.Create(body)
		if cerr != nil {
			return cerr
		}
		created = c

		id, _ := c.ID()
		meta, _, found, lerr := e.Lookup(idSelector(id))
		if lerr != nil {
			return lerr
		}
		if found {
			etag, lastMod = ETag(collection, id, meta.Position), meta.Timestamp
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	id, _ := created.ID()
	w.Header().Set("Location", fmt.Sprintf("/%s/%d", collection, id))
	setEntityHeaders(w, etag, lastMod)
	writeJSON(w, http.StatusCreated, WrapSingle(mode, collection, created))
}

// handleCollectionDelete serves DELETE /{collection}: deletes the subset
// matching $filter (or the whole collection, honoring $top, if no filter
// is given) (§4.4.1, §4.4.2).
func (a *api) handleCollectionDelete(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	params, err := query.Parse(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	var deleted []document.Value
	err = a.guard.With(collection, func(e *engine.Engine) error {
		sel := document.NewObject()
		if params.Filter != nil {
			docs, rerr := e.Read(document.NewObject())
			if rerr != nil {
				return rerr
			}
			var ids []document.Value
			for _, d := range docs {
				if query.Eval(params.Filter, d) {
					id, _ := d.ID()
					ids = append(ids, document.NewInt64(id))
				}
			}
			sel = sel.WithPair(document.IDKey, document.NewObject(document.Pair{Key: document.OpIn, Value: document.NewArray(ids...)}))
		}
		if params.Top != nil {
			sel = sel.WithPair(document.OpTop, document.NewInt64(int64(*params.Top)))
		}
		d, derr := e.Destroy(sel)
		deleted = d
		return derr
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if len(deleted) == 0 {
		writeError(w, yarerr.New(yarerr.NotFound, "no matching documents").With("collection", collection))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDocGet serves GET/HEAD /{collection}/{id} (§4.4.2, §4.4.4).
func (a *api) handleDocGet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	mode, err := Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := idFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sel := idSelector(id)

	var meta record.Metadata
	var doc document.Value
	var found bool
	err = a.guard.With(collection, func(e *engine.Engine) error {
		m, d, f, lerr := e.Lookup(sel)
		meta, doc, found = m, d, f
		return lerr
	})
	if err != nil {
		writeError(w, err)
		return
	}

	etag := ""
	if found {
		etag = ETag(collection, id, meta.Position)
	}

	if EvaluateSafe(r, found, etag, meta.Timestamp) {
		setEntityHeaders(w, etag, meta.Timestamp)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if !found {
		writeError(w, yarerr.NotFoundf(collection, id))
		return
	}

	setEntityHeaders(w, etag, meta.Timestamp)
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, WrapSingle(mode, collection, doc))
}

// handleDocPut serves PUT /{collection}/{id}: replace if it exists, else
// create with that id (§4.4.2).
func (a *api) handleDocPut(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	mode, err := Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := idFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := parseJSONBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sel := idSelector(id)

	var status int
	var result document.Value
	var etag string
	var lastMod time.Time
	err = a.guard.With(collection, func(e *engine.Engine) error {
		meta, _, found, lerr := e.Lookup(sel)
		if lerr != nil {
			return lerr
		}
		curEtag := ""
		if found {
			curEtag = ETag(collection, id, meta.Position)
		}
		if cerr := EvaluateMutating(r, found, curEtag, meta.Timestamp); cerr != nil {
			return cerr
		}

		withID := body.WithPair(document.IDKey, document.NewInt64(id))
		if found {
			replaced, uerr := e.Replace(sel, withID)
			if uerr != nil {
				return uerr
			}
			if len(replaced) == 0 {
				return yarerr.NotFoundf(collection, id)
			}
			result, status = replaced[0], http.StatusOK
		} else {
			created, cerr := e.Create(withID)
			if cerr != nil {
				return cerr
			}
			result, status = created, http.StatusCreated
		}

		m, _, f, lerr := e.Lookup(sel)
		if lerr != nil {
			return lerr
		}
		if f {
			etag, lastMod = ETag(collection, id, m.Position), m.Timestamp
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Location", fmt.Sprintf("/%s/%d", collection, id))
	if status == http.StatusCreated {
		w.Header().Set("Location", fmt.Sprintf("/%s/%d", collection, id))
	}
	setEntityHeaders(w, etag, lastMod)
	writeJSON(w, status, WrapSingle(mode, collection, result))
}

// handleDocPatch serves PATCH /{collection}/{id}: merge into the existing
// document, or create if absent (§4.4.2).
func (a *api) handleDocPatch(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	mode, err := Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := idFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := parseJSONBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sel := idSelector(id)

	var status int
	var result document.Value
	var etag string
	var lastMod time.Time
	err = a.guard.With(collection, func(e *engine.Engine) error {
		meta, _, found, lerr := e.Lookup(sel)
		if lerr != nil {
			return lerr
		}
		curEtag := ""
		if found {
			curEtag = ETag(collection, id, meta.Position)
		}
		if cerr := EvaluateMutating(r, found, curEtag, meta.Timestamp); cerr != nil {
			return cerr
		}

		if found {
			updated, uerr := e.Update(sel, body)
			if uerr != nil {
				return uerr
			}
			if len(updated) == 0 {
				return yarerr.NotFoundf(collection, id)
			}
			result, status = updated[0], http.StatusOK
		} else {
			withID := body.WithPair(document.IDKey, document.NewInt64(id))
			created, cerr := e.Create(withID)
			if cerr != nil {
				return cerr
			}
			result, status = created, http.StatusCreated
		}

		m, _, f, lerr := e.Lookup(sel)
		if lerr != nil {
			return lerr
		}
		if f {
			etag, lastMod = ETag(collection, id, m.Position), m.Timestamp
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Location", fmt.Sprintf("/%s/%d", collection, id))
	setEntityHeaders(w, etag, lastMod)
	writeJSON(w, status, WrapSingle(mode, collection, result))
}

// handleDocDelete serves DELETE /{collection}/{id} (§4.4.2, §4.4.4).
func (a *api) handleDocDelete(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id, err := idFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sel := idSelector(id)

	var destroyed []document.Value
	err = a.guard.With(collection, func(e *engine.Engine) error {
		meta, _, found, lerr := e.Lookup(sel)
		if lerr != nil {
			return lerr
		}
		curEtag := ""
		if found {
			curEtag = ETag(collection, id, meta.Position)
		}
		if cerr := EvaluateMutating(r, found, curEtag, meta.Timestamp); cerr != nil {
			return cerr
		}
		if !found {
			return yarerr.NotFoundf(collection, id)
		}
		d, derr := e.Destroy(sel)
		destroyed = d
		return derr
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(destroyed) == 0 {
		writeError(w, yarerr.NotFoundf(collection, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, yarerr.New(yarerr.NotFound, "no such route").With("path", r.URL.Path))
}

func (a *api) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, yarerr.New(yarerr.MethodNotAllowed, "method not allowed for this resource").With("method", r.Method))
}
