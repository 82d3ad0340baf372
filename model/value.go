package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Kind is the type tag of a Value
type Kind uint8

const (
	// InvalidKind is the kind of the zero Value
	InvalidKind Kind = iota
	IntKind
	FloatKind
	BoolKind
	StringKind
	ArrayKind
	DictKind
)

func (k Kind) String() string {
	switch k {
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case BoolKind:
		return "bool"
	case StringKind:
		return "string"
	case ArrayKind:
		return "array"
	case DictKind:
		return "dict"
	default:
		return "invalid"
	}
}

// Value is an immutable scalar or structured value stored in a Document.
// Arrays and dicts are deep-copied on the way in and on the way out, so a Value never aliases
// memory owned by another Value and can never contain a cycle.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	arr  []Value
	dict map[string]Value
}

// Int returns an Int64 value
func Int(i int64) Value {
	return Value{kind: IntKind, i: i}
}

// Float returns a Float64 value
func Float(f float64) Value {
	return Value{kind: FloatKind, f: f}
}

// Bool returns a Bool value
func Bool(b bool) Value {
	return Value{kind: BoolKind, b: b}
}

// String returns a String value
func String(s string) Value {
	return Value{kind: StringKind, s: s}
}

// Array returns an Array value holding copies of the given items
func Array(items ...Value) Value {
	arr := make([]Value, len(items))
	for i, item := range items {
		arr[i] = item.Clone()
	}
	return Value{kind: ArrayKind, arr: arr}
}

// Dict returns a Dict value holding copies of the given fields
func Dict(fields map[string]Value) Value {
	dict := make(map[string]Value, len(fields))
	for k, v := range fields {
		dict[k] = v.Clone()
	}
	return Value{kind: DictKind, dict: dict}
}

// Kind returns the type tag of the value
func (v Value) Kind() Kind {
	return v.kind
}

// Valid returns false for the zero Value or any container holding an invalid Value
func (v Value) Valid() bool {
	switch v.kind {
	case IntKind, FloatKind, BoolKind, StringKind:
		return true
	case ArrayKind:
		for _, item := range v.arr {
			if !item.Valid() {
				return false
			}
		}
		return true
	case DictKind:
		for _, item := range v.dict {
			if !item.Valid() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Int returns the value as an int64, or 0 if the value isn't an Int
func (v Value) Int() int64 {
	return v.i
}

// Float returns the value as a float64, or 0 if the value isn't a Float
func (v Value) Float() float64 {
	return v.f
}

// Bool returns the value as a bool, or false if the value isn't a Bool
func (v Value) Bool() bool {
	return v.b
}

// Str returns the value as a string, or "" if the value isn't a String
func (v Value) Str() string {
	return v.s
}

// Len returns the number of items in an Array or fields in a Dict
func (v Value) Len() int {
	switch v.kind {
	case ArrayKind:
		return len(v.arr)
	case DictKind:
		return len(v.dict)
	default:
		return 0
	}
}

// Items returns a copy of the items of an Array
func (v Value) Items() []Value {
	if v.kind != ArrayKind {
		return nil
	}
	items := make([]Value, len(v.arr))
	for i, item := range v.arr {
		items[i] = item.Clone()
	}
	return items
}

// Index returns the item at position i of an Array
func (v Value) Index(i int) (Value, bool) {
	if v.kind != ArrayKind || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i].Clone(), true
}

// Fields returns a copy of the fields of a Dict
func (v Value) Fields() map[string]Value {
	if v.kind != DictKind {
		return nil
	}
	fields := make(map[string]Value, len(v.dict))
	for k, item := range v.dict {
		fields[k] = item.Clone()
	}
	return fields
}

// Field returns a field of a Dict
func (v Value) Field(name string) (Value, bool) {
	if v.kind != DictKind {
		return Value{}, false
	}
	item, ok := v.dict[name]
	if !ok {
		return Value{}, false
	}
	return item.Clone(), true
}

// Keys returns the sorted field names of a Dict
func (v Value) Keys() []string {
	if v.kind != DictKind {
		return nil
	}
	keys := lo.Keys(v.dict)
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the value
func (v Value) Clone() Value {
	switch v.kind {
	case ArrayKind:
		arr := make([]Value, len(v.arr))
		for i, item := range v.arr {
			arr[i] = item.Clone()
		}
		return Value{kind: ArrayKind, arr: arr}
	case DictKind:
		dict := make(map[string]Value, len(v.dict))
		for k, item := range v.dict {
			dict[k] = item.Clone()
		}
		return Value{kind: DictKind, dict: dict}
	default:
		return v
	}
}

// Equal reports whether two values have the same kind and contents. NaN floats are equal to each other.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case IntKind:
		return v.i == other.i
	case FloatKind:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	case BoolKind:
		return v.b == other.b
	case StringKind:
		return v.s == other.s
	case ArrayKind:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case DictKind:
		if len(v.dict) != len(other.dict) {
			return false
		}
		for k, item := range v.dict {
			o, ok := other.dict[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Native returns the value as plain go types: int64, float64, bool, string, []any or map[string]any
func (v Value) Native() any {
	switch v.kind {
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case BoolKind:
		return v.b
	case StringKind:
		return v.s
	case ArrayKind:
		arr := make([]any, len(v.arr))
		for i, item := range v.arr {
			arr[i] = item.Native()
		}
		return arr
	case DictKind:
		dict := make(map[string]any, len(v.dict))
		for k, item := range v.dict {
			dict[k] = item.Native()
		}
		return dict
	default:
		return nil
	}
}

// GoString renders the value for debugging
func (v Value) GoString() string {
	return fmt.Sprintf("model.Value{%s: %v}", v.kind, v.Native())
}

// MarshalJSON renders the value as plain json. Int and Float kinds are indistinguishable in the output.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid value")
	}
	return json.Marshal(v.Native())
}

// UnmarshalJSON parses json into the value. Integer literals become Int values, other numbers become Float values.
func (v *Value) UnmarshalJSON(bits []byte) error {
	parsed, err := ParseValue(bits)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts plain go values (integers, floats, bools, strings, slices, string keyed maps and Values)
// into a Value
func ValueOf(input any) (Value, error) {
	switch x := input.(type) {
	case Value:
		if !x.Valid() {
			return Value{}, fmt.Errorf("invalid value")
		}
		return x.Clone(), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		i, err := cast.ToInt64E(x)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case uint:
		return Int(int64(x)), nil
	case uint64:
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case []Value:
		return ValueOf(lo.Map(x, func(item Value, _ int) any { return item }))
	case []any:
		arr := make([]Value, len(x))
		for i, item := range x {
			val, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = val
		}
		return Value{kind: ArrayKind, arr: arr}, nil
	case []string:
		return ValueOf(lo.Map(x, func(item string, _ int) any { return item }))
	case []int64:
		return ValueOf(lo.Map(x, func(item int64, _ int) any { return item }))
	case []float64:
		return ValueOf(lo.Map(x, func(item float64, _ int) any { return item }))
	case map[string]Value:
		for k, item := range x {
			if !item.Valid() {
				return Value{}, fmt.Errorf("%s: invalid value", k)
			}
		}
		return Dict(x), nil
	case map[string]any:
		dict := make(map[string]Value, len(x))
		for k, item := range x {
			val, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			dict[k] = val
		}
		return Value{kind: DictKind, dict: dict}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", input)
	}
}

// MustValueOf is like ValueOf but panics on unsupported input
func MustValueOf(input any) Value {
	v, err := ValueOf(input)
	if err != nil {
		panic(err)
	}
	return v
}
