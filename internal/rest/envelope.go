package rest

import (
	"fmt"

	"yardb/internal/document"
)

// itemJSON renders one document as an order-preserving JSON object, adding
// @odata.id/@odata.editLink for fullmetadata (§4.4.3).
func itemJSON(d document.Value, mode MetadataMode, collection string) document.JSONObject {
	obj := document.ToJSONObject(d)
	if mode == ModeFull {
		id, _ := d.ID()
		link := fmt.Sprintf("/%s/%d", collection, id)
		obj.Set("@odata.id", link)
		obj.Set("@odata.editLink", link)
	}
	return obj
}

// WrapCollection wraps a list of documents in the OData envelope selected
// by mode (§4.4.3).
func WrapCollection(mode MetadataMode, collection string, docs []document.Value) interface{} {
	items := make([]interface{}, len(docs))
	for i, d := range docs {
		items[i] = itemJSON(d, mode, collection)
	}
	if mode == ModeNone {
		if items == nil {
			items = []interface{}{}
		}
		return items
	}
	return map[string]interface{}{
		"@odata.context": "/$metadata#" + collection,
		"value":          items,
	}
}

// WrapSingle wraps a single document for a non-collection response.
func WrapSingle(mode MetadataMode, collection string, d document.Value) interface{} {
	obj := itemJSON(d, mode, collection)
	if mode == ModeNone {
		return obj
	}
	obj.Set("@odata.context", "/$metadata#"+collection+"/$entity")
	return obj
}
