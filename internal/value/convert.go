package value

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// FromGo converts decoded Go data (as produced by encoding/json, yaml.v3 or
// mapstructure) into a value tree. Map keys are sorted so the result does not
// depend on Go map iteration order. Values already of type Value pass through.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Float(f), nil
	case func() Value:
		return NewFunc("", val), nil
	case []any:
		l := &List{items: make([]Value, len(val))}
		for i, elem := range val {
			item, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l.items[i] = item
		}
		return l, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		obj := NewObject()
		for _, k := range keys {
			item, err := FromGo(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj.put(k, item)
		}
		return obj, nil
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, elem := range val {
			m[fmt.Sprint(k)] = elem
		}
		return FromGo(m)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFromGo is FromGo for literals in tests and examples.
func MustFromGo(v any) Value {
	out, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return out
}

// ToGo converts a value tree back into plain Go data: map[string]any,
// []any, string, int64, float64, bool and nil. Absent and Null become nil;
// callables are not invoked and also become nil. Cycles are cut with nil.
func ToGo(v Value) any {
	return toGo(v, map[Value]bool{})
}

func toGo(v Value, onPath map[Value]bool) any {
	v = Unwrap(orNull(v))
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case *Object:
		if onPath[val] {
			return nil
		}
		onPath[val] = true
		defer delete(onPath, val)
		m := make(map[string]any, len(val.keys))
		for _, k := range val.keys {
			m[k] = toGo(val.fields[k], onPath)
		}
		return m
	case *List:
		if onPath[val] {
			return nil
		}
		onPath[val] = true
		defer delete(onPath, val)
		out := make([]any, len(val.items))
		for i, item := range val.items {
			out[i] = toGo(item, onPath)
		}
		return out
	default:
		return nil
	}
}

// Clone deep-copies containers, preserving sharing and cycles inside the
// copied tree. Copies are never frozen. Leaves and callables are shared.
func Clone(v Value) Value {
	return clone(Unwrap(orNull(v)), map[Value]Value{})
}

func clone(v Value, seen map[Value]Value) Value {
	switch val := v.(type) {
	case *Object:
		if c, ok := seen[val]; ok {
			return c
		}
		c := &Object{keys: make([]string, 0, len(val.keys)), fields: make(map[string]Value, len(val.keys))}
		seen[val] = c
		for _, k := range val.keys {
			c.put(k, clone(Unwrap(val.fields[k]), seen))
		}
		return c
	case *List:
		if c, ok := seen[val]; ok {
			return c
		}
		c := &List{items: make([]Value, len(val.items))}
		seen[val] = c
		for i, item := range val.items {
			c.items[i] = clone(Unwrap(item), seen)
		}
		return c
	default:
		return v
	}
}

// FindFrozen walks every container reachable from v and returns the key
// path of the first frozen one. An empty path with found=true means v itself
// is frozen.
func FindFrozen(v Value) (keys []string, found bool) {
	return findFrozen(Unwrap(orNull(v)), nil, map[Value]bool{})
}

func findFrozen(v Value, keys []string, visited map[Value]bool) ([]string, bool) {
	if !IsContainer(v) || visited[v] {
		return nil, false
	}
	visited[v] = true
	if frozen(v) {
		return slices.Clone(keys), true
	}
	c := v.(Container)
	for _, k := range c.Keys() {
		child, _ := c.Child(k)
		if at, ok := findFrozen(Unwrap(orNull(child)), append(keys, k), visited); ok {
			return at, true
		}
	}
	return nil, false
}

// Format renders v compactly for logs and error messages.
func Format(v Value) string {
	v = Unwrap(orNull(v))
	switch val := v.(type) {
	case Absent:
		return "<absent>"
	case *Func:
		if val.name != "" {
			return fmt.Sprintf("<func %s>", val.name)
		}
		return "<func>"
	}
	data, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%s>", v.Kind())
	}
	return strings.TrimSpace(string(data))
}
