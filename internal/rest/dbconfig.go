package rest

import (
	"strings"

	"yardb/internal/document"
	"yardb/internal/yarerr"
)

// reservedIndexKeys names the fields §4.4.5 forbids as secondary index
// keys: the primary key and the metadata fields WrapSingle/WrapCollection
// synthesize, none of which a client can meaningfully range over.
var reservedIndexKeys = map[string]bool{
	document.IDKey:    true,
	"@odata.context":  true,
	"@odata.id":       true,
	"@odata.editLink": true,
}

// ParseDBConfigKeys validates a PUT/PATCH /_db/{collection} body per
// §4.4.5 and returns the requested keys in request order.
func ParseDBConfigKeys(body document.Value) ([]string, error) {
	if body.Kind() != document.Object {
		return nil, yarerr.New(yarerr.BadRequest, "index configuration body must be an object")
	}
	keysVal, ok := body.Get("keys")
	if !ok {
		return nil, yarerr.New(yarerr.BadRequest, `index configuration body requires "keys"`)
	}
	if keysVal.Kind() != document.Array {
		return nil, yarerr.New(yarerr.BadRequest, `"keys" must be an array`)
	}
	items := keysVal.AsArray()
	if len(items) == 0 {
		return nil, yarerr.New(yarerr.BadRequest, `"keys" must not be empty`)
	}

	keys := make([]string, 0, len(items))
	for _, item := range items {
		if item.Kind() != document.String {
			return nil, yarerr.New(yarerr.BadRequest, `"keys" elements must be strings`)
		}
		k := item.AsString()
		if reservedIndexKeys[k] || strings.HasPrefix(k, "$") {
			return nil, yarerr.New(yarerr.BadRequest, "reserved field cannot be indexed").With("key", k)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// UnionKeys computes existing ∪ additional, preserving existing order and
// appending unseen additional names in request order — PATCH's
// union-with-existing-order semantics (§4.4.5), as opposed to PUT's
// full-replacement semantics.
func UnionKeys(existing, additional []string) []string {
	seen := make(map[string]bool, len(existing)+len(additional))
	out := make([]string, 0, len(existing)+len(additional))
	for _, k := range existing {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range additional {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
