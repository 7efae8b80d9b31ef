package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ToJSON converts v into plain Go values (JSONObject, []interface{},
// string, float64/int64/int32, bool, nil) suitable for encoding/json.Marshal
// — the HTTP wire format (§6.2), kept separate from the BSON-grounded
// on-disk codec (codec.go). Object values become a JSONObject rather than
// a map[string]interface{} so field order survives encoding (§3).
func ToJSON(v Value) interface{} {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Int32:
		return v.i32
	case Int64:
		return v.i64
	case Double:
		return v.f64
	case String:
		return v.str
	case Date:
		return v.date.Format(time.RFC3339Nano)
	case Array:
		out := make([]interface{}, len(v.items))
		for i, it := range v.items {
			out[i] = ToJSON(it)
		}
		return out
	case Object:
		return ToJSONObject(v)
	default:
		return nil
	}
}

// jsonField is one key/value pair of a JSONObject; Val is already in
// ToJSON's plain-Go-value form.
type jsonField struct {
	Key string
	Val interface{}
}

// JSONObject is an order-preserving stand-in for map[string]interface{}:
// encoding/json sorts map keys alphabetically, which would silently
// reorder every document field on the wire. It implements
// json.Marshaler so it serializes correctly wherever encoding/json
// encounters it, including nested inside arrays or other objects.
type JSONObject struct {
	fields []jsonField
}

// ToJSONObject converts an Object Value's pairs into a JSONObject,
// preserving their order. Non-Object values produce an empty JSONObject.
func ToJSONObject(v Value) JSONObject {
	if v.kind != Object {
		return JSONObject{}
	}
	fields := make([]jsonField, len(v.pairs))
	for i, p := range v.pairs {
		fields[i] = jsonField{Key: p.Key, Val: ToJSON(p.Value)}
	}
	return JSONObject{fields: fields}
}

// Set overwrites key's value if already present, otherwise appends it —
// used to add synthetic metadata fields (e.g. @odata.id) after a
// document's own fields without disturbing their order.
func (o *JSONObject) Set(key string, val interface{}) {
	for i := range o.fields {
		if o.fields[i].Key == key {
			o.fields[i].Val = val
			return
		}
	}
	o.fields = append(o.fields, jsonField{Key: key, Val: val})
}

func (o JSONObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(f.Val)
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseJSON decodes raw JSON bytes into a Value, reading the token stream
// directly rather than via map[string]interface{} so object field order
// is preserved (encoding/json's map decoding is unordered).
func ParseJSON(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("document: parse json: %w", err)
	}
	if dec.More() {
		return Value{}, fmt.Errorf("document: trailing data after json value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var pairs []Pair
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				pairs = append(pairs, Pair{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return Value{}, err
			}
			return NewObject(pairs...), nil
		case '[':
			var items []Value
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return Value{}, err
			}
			return NewArray(items...), nil
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewInt64(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid json number %q", t.String())
		}
		return NewDouble(f), nil
	case string:
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case nil:
		return NewNull(), nil
	}
	return Value{}, fmt.Errorf("document: unexpected json token %v", tok)
}
