package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/autom8ter/gamedb/util"
	"github.com/samber/lo"
)

// Document is the logical content of one record: a mapping of field name to Value.
// An empty Document means "record absent"; it is never a valid stored state.
type Document map[string]Value

// NewDocument converts a map of plain go values into a Document
func NewDocument(fields map[string]any) (Document, error) {
	doc := make(Document, len(fields))
	for k, v := range fields {
		val, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		doc[k] = val
	}
	return doc, nil
}

// MustDocument is like NewDocument but panics on unsupported values
func MustDocument(fields map[string]any) Document {
	doc, err := NewDocument(fields)
	if err != nil {
		panic(err)
	}
	return doc
}

// Empty returns true if the document has no fields
func (d Document) Empty() bool {
	return len(d) == 0
}

// Valid returns an error naming the first field holding an invalid value
func (d Document) Valid() error {
	for _, k := range d.Keys() {
		if k == "" {
			return fmt.Errorf("empty field name")
		}
		if !d[k].Valid() {
			return fmt.Errorf("field %s: invalid value", k)
		}
	}
	return nil
}

// Keys returns the sorted field names
func (d Document) Keys() []string {
	keys := lo.Keys(d)
	sort.Strings(keys)
	return keys
}

// Get returns a field
func (d Document) Get(field string) (Value, bool) {
	v, ok := d[field]
	if !ok {
		return Value{}, false
	}
	return v.Clone(), true
}

// Clone returns a deep copy of the document. Cloning a nil document returns an empty one.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// Merge copies every field of changes onto the document, overwriting existing fields
func (d Document) Merge(changes Document) {
	for k, v := range changes {
		d[k] = v.Clone()
	}
}

// Equal reports whether both documents hold the same fields and values
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Native returns the document as a map of plain go values
func (d Document) Native() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v.Native()
	}
	return out
}

// Decode decodes the document into the given struct pointer based on json tags
func (d Document) Decode(output any) error {
	return util.Decode(d.Native(), output)
}

// DocumentFrom encodes a struct (or map) into a Document based on json tags
func DocumentFrom(input any) (Document, error) {
	bits, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to json encode value: %w", err)
	}
	return ParseDocument(bits)
}
