package model

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseValue parses a json value. Integer literals become Int values and all other numbers Float values,
// so `2` and `2.0` parse to different kinds. null is rejected.
func ParseValue(bits []byte) (Value, error) {
	if !gjson.ValidBytes(bits) {
		return Value{}, fmt.Errorf("invalid json: %s", string(bits))
	}
	return fromResult(gjson.ParseBytes(bits))
}

// ParseDocument parses a json object into a Document
func ParseDocument(bits []byte) (Document, error) {
	val, err := ParseValue(bits)
	if err != nil {
		return nil, err
	}
	if val.Kind() != DictKind {
		return nil, fmt.Errorf("json document must be an object, got %s", val.Kind())
	}
	return Document(val.dict), nil
}

func fromResult(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.True:
		return Bool(true), nil
	case gjson.False:
		return Bool(false), nil
	case gjson.String:
		return String(r.Str), nil
	case gjson.Number:
		if isIntegerLiteral(r.Raw) {
			return Int(r.Int()), nil
		}
		return Float(r.Float()), nil
	case gjson.JSON:
		if r.IsArray() {
			var (
				items []Value
				err   error
			)
			r.ForEach(func(_, item gjson.Result) bool {
				var val Value
				val, err = fromResult(item)
				if err != nil {
					return false
				}
				items = append(items, val)
				return true
			})
			if err != nil {
				return Value{}, err
			}
			if items == nil {
				items = []Value{}
			}
			return Value{kind: ArrayKind, arr: items}, nil
		}
		var (
			fields = map[string]Value{}
			err    error
		)
		r.ForEach(func(key, item gjson.Result) bool {
			var val Value
			val, err = fromResult(item)
			if err != nil {
				err = fmt.Errorf("%s: %w", key.Str, err)
				return false
			}
			fields[key.Str] = val
			return true
		})
		if err != nil {
			return Value{}, err
		}
		return Value{kind: DictKind, dict: fields}, nil
	default:
		return Value{}, fmt.Errorf("unsupported json value: %s", r.Raw)
	}
}

func isIntegerLiteral(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	return !strings.ContainsAny(raw, ".eE")
}
