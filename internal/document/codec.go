package document

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Encode serializes a document to its binary form. The document codec is
// grounded on BSON (go.mongodb.org/mongo-driver/bson): BSON's type system
// already distinguishes int32/int64/double/string/datetime/bool/null/
// embedded-document/array, which is exactly the value model §3 specifies,
// and bson.D preserves field order the way the spec requires.
func Encode(v Value) ([]byte, error) {
	if v.Kind() != Object {
		return nil, fmt.Errorf("document: top-level value must be an object, got %s", v.Kind())
	}
	return bson.Marshal(toBSON(v))
}

// Decode parses bytes previously produced by Encode back into a Value.
func Decode(data []byte) (Value, error) {
	var raw bson.D
	if err := bson.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("document: decode: %w", err)
	}
	return fromBSOND(raw), nil
}

func toBSON(v Value) interface{} {
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
		return primitive.NewDateTimeFromTime(v.date)
	case Object:
		d := make(bson.D, 0, len(v.pairs))
		for _, p := range v.pairs {
			d = append(d, bson.E{Key: p.Key, Value: toBSON(p.Value)})
		}
		return d
	case Array:
		a := make(bson.A, 0, len(v.items))
		for _, it := range v.items {
			a = append(a, toBSON(it))
		}
		return a
	default:
		return nil
	}
}

func fromBSOND(d bson.D) Value {
	pairs := make([]Pair, len(d))
	for i, e := range d {
		pairs[i] = Pair{Key: e.Key, Value: fromBSON(e.Value)}
	}
	return Value{kind: Object, pairs: pairs}
}

func fromBSON(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBool(x)
	case int32:
		return NewInt32(x)
	case int64:
		return NewInt64(x)
	case int:
		return NewInt64(int64(x))
	case float64:
		return NewDouble(x)
	case string:
		return NewString(x)
	case primitive.DateTime:
		return NewDate(x.Time())
	case bson.D:
		return fromBSOND(x)
	case bson.A:
		items := make([]Value, len(x))
		for i, it := range x {
			items[i] = fromBSON(it)
		}
		return Value{kind: Array, items: items}
	default:
		return NewNull()
	}
}
