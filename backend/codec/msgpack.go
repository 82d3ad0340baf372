package codec

import (
	"bytes"
	"fmt"

	"github.com/autom8ter/gamedb/model"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Marshal encodes a document as msgpack. Ints are always written as 64 bit ints and floats as 64 bit floats
// so the kind of every value survives a round trip. Map keys are written in sorted order.
func Marshal(doc model.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(&buf)
	if err := enc.EncodeMapLen(len(doc)); err != nil {
		return nil, err
	}
	for _, k := range doc.Keys() {
		if err := enc.EncodeString(k); err != nil {
			return nil, err
		}
		if err := encodeValue(enc, doc[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeValue(enc *msgpack.Encoder, v model.Value) error {
	switch v.Kind() {
	case model.IntKind:
		return enc.EncodeInt64(v.Int())
	case model.FloatKind:
		return enc.EncodeFloat64(v.Float())
	case model.BoolKind:
		return enc.EncodeBool(v.Bool())
	case model.StringKind:
		return enc.EncodeString(v.Str())
	case model.ArrayKind:
		items := v.Items()
		if err := enc.EncodeArrayLen(len(items)); err != nil {
			return err
		}
		for i, item := range items {
			if err := encodeValue(enc, item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	case model.DictKind:
		fields := v.Fields()
		if err := enc.EncodeMapLen(len(fields)); err != nil {
			return err
		}
		for _, k := range v.Keys() {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := encodeValue(enc, fields[k]); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("cannot encode invalid value")
	}
}

// Unmarshal decodes a msgpack encoded document
func Unmarshal(bits []byte) (model.Document, error) {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(bytes.NewReader(bits))
	val, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if val.Kind() != model.DictKind {
		return nil, fmt.Errorf("msgpack record is a %s, not a document", val.Kind())
	}
	return model.Document(val.Fields()), nil
}

func decodeValue(dec *msgpack.Decoder) (model.Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return model.Value{}, err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return model.Value{}, err
		}
		fields := make(map[string]model.Value, n)
		for i := 0; i < n; i++ {
			k, err := dec.DecodeString()
			if err != nil {
				return model.Value{}, err
			}
			val, err := decodeValue(dec)
			if err != nil {
				return model.Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = val
		}
		return model.Dict(fields), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return model.Value{}, err
		}
		items := make([]model.Value, 0, n)
		for i := 0; i < n; i++ {
			val, err := decodeValue(dec)
			if err != nil {
				return model.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, val)
		}
		return model.Array(items...), nil
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return model.Value{}, err
		}
		return model.Float(f), nil
	}
	raw, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return model.Value{}, err
	}
	switch x := raw.(type) {
	case int64:
		return model.Int(x), nil
	case uint64:
		return model.Int(int64(x)), nil
	case bool:
		return model.Bool(x), nil
	case string:
		return model.String(x), nil
	case []byte:
		return model.String(string(x)), nil
	default:
		return model.Value{}, fmt.Errorf("unsupported msgpack value %T", raw)
	}
}
