package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"yardb/internal/document"
	"yardb/internal/yarerr"
)

// idFromPath parses the {id} URL parameter into the decimal _id value a
// document-level route addresses.
func idFromPath(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, yarerr.New(yarerr.BadRequest, "id must be a decimal integer").With("id", raw)
	}
	return id, nil
}

// idSelector builds the single-document selector {_id: id} that every
// document-level route (§4.4.1) resolves against.
func idSelector(id int64) document.Value {
	return document.NewObject(document.Pair{Key: document.IDKey, Value: document.NewInt64(id)})
}
