package value

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrFrozen is returned when a write targets a frozen container.
var ErrFrozen = errors.New("container is frozen")

// Kind classifies a value. It is decided once per value and never changes.
type Kind int

const (
	// KindLeaf covers scalars, Null and Absent.
	KindLeaf Kind = iota
	// KindMap is an *Object.
	KindMap
	// KindList is a *List.
	KindList
	// KindCallable is a *Func.
	KindCallable
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindCallable:
		return "callable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is any node of a value tree.
//
// Types outside this package may implement Value to stand in for a
// container (the reactive wrappers do); such types should also implement
// Unwrapper so helpers in this package can reach the underlying data.
type Value interface {
	Kind() Kind
}

// Container is implemented by values whose children are addressed by key.
// List keys are decimal indices.
type Container interface {
	Value
	Child(key string) (Value, bool)
	Keys() []string
	Len() int
}

// Mutable is a Container that accepts writes.
type Mutable interface {
	Container
	SetChild(key string, v Value) error
	DeleteChild(key string) error
}

// Invoker is implemented by containers that run their own accessors, so
// the result can be adapted (wrapped, tracked) before it is returned.
type Invoker interface {
	Invoke(key string, f *Func) Value
}

// Unwrapper is implemented by values that wrap another value.
type Unwrapper interface {
	Unwrap() Value
}

// Unwrap follows Unwrapper until it reaches a value that wraps nothing.
func Unwrap(v Value) Value {
	for {
		u, ok := v.(Unwrapper)
		if !ok {
			return v
		}
		next := u.Unwrap()
		if next == nil {
			return v
		}
		v = next
	}
}

// IsContainer reports whether v is map-like or list-like.
func IsContainer(v Value) bool {
	if v == nil {
		return false
	}
	k := v.Kind()
	return k == KindMap || k == KindList
}

// IsAbsent reports whether v is missing (nil or Absent).
func IsAbsent(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Absent)
	return ok
}

// Equal is the engine's change test: identity for containers and callables,
// value equality for leaves. Wrappers are unwrapped first.
func Equal(a, b Value) bool {
	if a == nil {
		a = Absent{}
	}
	if b == nil {
		b = Absent{}
	}
	return Unwrap(a) == Unwrap(b)
}

// Null represents an explicit null.
type Null struct{}

func (Null) Kind() Kind { return KindLeaf }

// Absent marks a missing key or a list hole.
type Absent struct{}

func (Absent) Kind() Kind { return KindLeaf }

// String is a string leaf.
type String string

func (String) Kind() Kind { return KindLeaf }

// Int is an integer leaf.
type Int int64

func (Int) Kind() Kind { return KindLeaf }

// Float is a floating point leaf.
type Float float64

func (Float) Kind() Kind { return KindLeaf }

// Bool is a boolean leaf.
type Bool bool

func (Bool) Kind() Kind { return KindLeaf }

// Func is a zero-argument accessor. Paths reach its result through an
// invoked segment such as "user.fullName()".
type Func struct {
	name string
	fn   func() Value
}

// NewFunc creates a callable value. A nil fn yields Absent when called.
func NewFunc(name string, fn func() Value) *Func {
	return &Func{name: name, fn: fn}
}

func (*Func) Kind() Kind { return KindCallable }

// Name returns the name the callable was created with.
func (f *Func) Name() string { return f.name }

// Call invokes the accessor.
func (f *Func) Call() Value {
	if f == nil || f.fn == nil {
		return Absent{}
	}
	if v := f.fn(); v != nil {
		return v
	}
	return Absent{}
}

// Pair is a key/value pair for ordered Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is shorthand for Pair.
// Example: NewObject(O("name", String("cart")), O("count", Int(5)))
func O(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// Object is an insertion-ordered map container.
type Object struct {
	keys   []string
	fields map[string]Value
	frozen bool
}

// NewObject creates an Object from pairs. Later duplicates overwrite
// earlier ones without moving the key.
func NewObject(pairs ...Pair) *Object {
	obj := &Object{fields: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		obj.put(p.Key, p.Value)
	}
	return obj
}

func (*Object) Kind() Kind { return KindMap }

func (o *Object) put(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Child implements Container.
func (o *Object) Child(key string) (Value, bool) { return o.Get(key) }

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Set stores v under key, appending key if it is new.
func (o *Object) Set(key string, v Value) error {
	if o.frozen {
		return ErrFrozen
	}
	o.put(key, v)
	return nil
}

// SetChild implements Mutable.
func (o *Object) SetChild(key string, v Value) error { return o.Set(key, v) }

// Delete removes key. Missing keys are not an error.
func (o *Object) Delete(key string) error {
	if o.frozen {
		return ErrFrozen
	}
	if _, ok := o.fields[key]; !ok {
		return nil
	}
	delete(o.fields, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteChild implements Mutable.
func (o *Object) DeleteChild(key string) error { return o.Delete(key) }

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Freeze makes the object reject writes.
func (o *Object) Freeze() *Object {
	o.frozen = true
	return o
}

// Frozen reports whether the object rejects writes.
func (o *Object) Frozen() bool { return o.frozen }

// List is a list container. Slots past a write beyond the end are
// filled with Absent.
type List struct {
	items  []Value
	frozen bool
}

// NewList creates a List holding items.
func NewList(items ...Value) *List {
	l := &List{items: make([]Value, len(items))}
	for i, v := range items {
		l.items[i] = orNull(v)
	}
	return l
}

func (*List) Kind() Kind { return KindList }

// Len returns the number of slots, holes included.
func (l *List) Len() int { return len(l.items) }

// At returns the value at i, or Absent when out of range.
func (l *List) At(i int) Value {
	if i < 0 || i >= len(l.items) {
		return Absent{}
	}
	return l.items[i]
}

// Child implements Container.
func (l *List) Child(key string) (Value, bool) {
	i, ok := ParseIndex(key)
	if !ok || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// Keys returns the decimal indices of the list.
func (l *List) Keys() []string {
	out := make([]string, len(l.items))
	for i := range l.items {
		out[i] = strconv.Itoa(i)
	}
	return out
}

// SetAt stores v at i, growing the list with holes when i is past the end.
func (l *List) SetAt(i int, v Value) error {
	if err := l.mutable(); err != nil {
		return err
	}
	if i < 0 {
		return fmt.Errorf("index %d out of range", i)
	}
	for len(l.items) <= i {
		l.items = append(l.items, Absent{})
	}
	l.items[i] = orNull(v)
	return nil
}

// SetChild implements Mutable.
func (l *List) SetChild(key string, v Value) error {
	i, ok := ParseIndex(key)
	if !ok {
		return fmt.Errorf("key %q is not a list index", key)
	}
	return l.SetAt(i, v)
}

// DeleteChild leaves a hole at the index instead of shortening the list.
func (l *List) DeleteChild(key string) error {
	i, ok := ParseIndex(key)
	if !ok {
		return fmt.Errorf("key %q is not a list index", key)
	}
	if err := l.mutable(); err != nil {
		return err
	}
	if i < len(l.items) {
		l.items[i] = Absent{}
	}
	return nil
}

// Items returns a shallow copy of the slots.
func (l *List) Items() []Value {
	out := make([]Value, len(l.items))
	copy(out, l.items)
	return out
}

// Freeze makes the list reject writes.
func (l *List) Freeze() *List {
	l.frozen = true
	return l
}

// Frozen reports whether the list rejects writes.
func (l *List) Frozen() bool { return l.frozen }

func (l *List) mutable() error {
	if l.frozen {
		return ErrFrozen
	}
	return nil
}

// ParseIndex parses a non-negative decimal list index.
func ParseIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return i, true
}

func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

// frozen reports whether a container rejects writes.
func frozen(v Value) bool {
	switch c := v.(type) {
	case *Object:
		return c.frozen
	case *List:
		return c.frozen
	}
	return false
}
