package codec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/autom8ter/gamedb/model"
	"go.mongodb.org/mongo-driver/bson"
)

// IDField is the reserved document field holding the record id in mongo. It's never part of a decoded document.
const IDField = "_id"

const (
	escapedDot    = "．"
	escapedDollar = "＄"
)

// EscapeField makes a field name safe for use as a mongo key: every '.' is replaced with U+FF0E and a leading '$'
// with U+FF04
func EscapeField(name string) string {
	name = strings.ReplaceAll(name, ".", escapedDot)
	if strings.HasPrefix(name, "$") {
		name = escapedDollar + strings.TrimPrefix(name, "$")
	}
	return name
}

// UnescapeField reverses EscapeField
func UnescapeField(name string) string {
	name = strings.ReplaceAll(name, escapedDot, ".")
	if strings.HasPrefix(name, escapedDollar) {
		name = "$" + strings.TrimPrefix(name, escapedDollar)
	}
	return name
}

// ToBSON converts a document into a bson.D with sorted keys. If escape is true every field name, at every depth, is
// passed through EscapeField.
func ToBSON(doc model.Document, escape bool) bson.D {
	out := make(bson.D, 0, len(doc))
	for _, k := range doc.Keys() {
		name := k
		if escape {
			name = EscapeField(k)
		}
		out = append(out, bson.E{Key: name, Value: bsonValue(doc[k], escape)})
	}
	return out
}

func bsonValue(v model.Value, escape bool) any {
	switch v.Kind() {
	case model.IntKind:
		return v.Int()
	case model.FloatKind:
		return v.Float()
	case model.BoolKind:
		return v.Bool()
	case model.StringKind:
		return v.Str()
	case model.ArrayKind:
		items := v.Items()
		arr := make(bson.A, len(items))
		for i, item := range items {
			arr[i] = bsonValue(item, escape)
		}
		return arr
	case model.DictKind:
		return ToBSON(model.Document(v.Fields()), escape)
	default:
		return nil
	}
}

// FromBSON converts a decoded bson document (bson.D, bson.M or map[string]any) into a Document. The top level
// _id field is skipped. If unescape is true every field name is passed through UnescapeField.
func FromBSON(raw any, unescape bool) (model.Document, error) {
	fields, err := bsonFields(raw, unescape)
	if err != nil {
		return nil, err
	}
	delete(fields, IDField)
	return fields, nil
}

func bsonFields(raw any, unescape bool) (map[string]model.Value, error) {
	var pairs bson.D
	switch x := raw.(type) {
	case bson.D:
		pairs = x
	case bson.M:
		pairs = mapPairs(x)
	case map[string]any:
		pairs = mapPairs(x)
	default:
		return nil, fmt.Errorf("unsupported bson document type %T", raw)
	}
	fields := make(map[string]model.Value, len(pairs))
	for _, e := range pairs {
		name := e.Key
		if unescape {
			name = UnescapeField(name)
		}
		val, err := fromBSONValue(e.Value, unescape)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		fields[name] = val
	}
	return fields, nil
}

func mapPairs(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(m))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: m[k]})
	}
	return out
}

func fromBSONValue(raw any, unescape bool) (model.Value, error) {
	switch x := raw.(type) {
	case int64:
		return model.Int(x), nil
	case int32:
		return model.Int(int64(x)), nil
	case int:
		return model.Int(int64(x)), nil
	case float64:
		return model.Float(x), nil
	case bool:
		return model.Bool(x), nil
	case string:
		return model.String(x), nil
	case bson.A:
		return fromBSONArray(x, unescape)
	case []any:
		return fromBSONArray(x, unescape)
	case bson.D, bson.M, map[string]any:
		fields, err := bsonFields(x, unescape)
		if err != nil {
			return model.Value{}, err
		}
		return model.Dict(fields), nil
	default:
		return model.Value{}, fmt.Errorf("unsupported bson value %T", raw)
	}
}

func fromBSONArray(arr []any, unescape bool) (model.Value, error) {
	items := make([]model.Value, len(arr))
	for i, item := range arr {
		val, err := fromBSONValue(item, unescape)
		if err != nil {
			return model.Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		items[i] = val
	}
	return model.Array(items...), nil
}

// MarshalExtJSON renders a document as canonical extended json indented by four spaces
func MarshalExtJSON(doc model.Document) ([]byte, error) {
	return bson.MarshalExtJSONIndent(ToBSON(doc, false), true, false, "", "    ")
}

// UnmarshalExtJSON parses canonical (or relaxed) extended json into a document
func UnmarshalExtJSON(bits []byte) (model.Document, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(bits, true, &d); err != nil {
		return nil, err
	}
	return FromBSON(d, false)
}
