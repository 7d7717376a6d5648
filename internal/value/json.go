package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ParseJSON decodes a JSON document into a value tree. Unlike decoding into
// map[string]any, object key order is preserved.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("object key %q: %w", key, err)
				}
				obj.put(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			l := NewList()
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("array index %d: %w", len(l.items), err)
				}
				l.items = append(l.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return l, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		return FromGo(t)
	}
}

// MarshalJSON encodes the object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return MarshalValue(o)
}

// MarshalJSON encodes the list; holes encode as null.
func (l *List) MarshalJSON() ([]byte, error) {
	return MarshalValue(l)
}

// MarshalValue encodes any value as JSON. Null, Absent and callables encode
// as null. Cyclic trees are rejected.
func MarshalValue(v Value) ([]byte, error) {
	return marshalValue(v, map[Value]bool{})
}

func marshalValue(v Value, onPath map[Value]bool) ([]byte, error) {
	v = Unwrap(orNull(v))
	switch val := v.(type) {
	case Null, Absent, *Func:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case *Object, *List:
		if onPath[val] {
			return nil, fmt.Errorf("cyclic value")
		}
		onPath[val] = true
		defer delete(onPath, val)
		return marshalContainer(val, onPath)
	default:
		return nil, fmt.Errorf("unknown value type: %T", v)
	}
}

func marshalContainer(v Value, onPath map[Value]bool) ([]byte, error) {
	var buf bytes.Buffer
	switch c := v.(type) {
	case *Object:
		buf.WriteByte('{')
		for i, k := range c.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := marshalValue(c.fields[k], onPath)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
	case *List:
		buf.WriteByte('[')
		for i, item := range c.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			itemBytes, err := marshalValue(item, onPath)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			buf.Write(itemBytes)
		}
		buf.WriteByte(']')
	}
	return buf.Bytes(), nil
}
