package path

import (
	"fmt"
	"strings"

	"github.com/roach88/rstate/internal/value"
)

// SegmentKind distinguishes plain property access from accessor invocation.
type SegmentKind int

const (
	// Plain reads the property as stored.
	Plain SegmentKind = iota
	// Invoked calls the stored accessor and continues with its result.
	Invoked
)

func (k SegmentKind) String() string {
	if k == Invoked {
		return "invoked"
	}
	return "plain"
}

// Segment is one step of a Path. Segments are plain values; two segments
// with the same Name and Kind are equal.
type Segment struct {
	Name string
	Kind SegmentKind
}

// ParseSegment builds a segment from a raw token. Surrounding whitespace is
// trimmed and a trailing "()" marks the segment Invoked.
func ParseSegment(token string) (Segment, error) {
	name := strings.TrimSpace(token)
	kind := Plain
	if strings.HasSuffix(name, "()") {
		kind = Invoked
		name = strings.TrimSpace(strings.TrimSuffix(name, "()"))
	}
	if name == "" {
		return Segment{}, &PathError{Op: "segment", Input: token, Reason: "empty segment name"}
	}
	return Segment{Name: name, Kind: kind}, nil
}

// Index returns a plain segment addressing list slot i.
func Index(i int) Segment {
	return Segment{Name: fmt.Sprint(i)}
}

// IsIndex reports whether the segment names a list slot.
func (s Segment) IsIndex() bool {
	_, ok := value.ParseIndex(s.Name)
	return ok
}

// String renders the segment as it appears in a canonical key. Names that
// the dotted form cannot carry (containing '.', '[' or ']', or ending in
// "()") are bracketed; an Invoked segment adds "()" after the name or
// bracket, so a plain "f()" key and an invoked f never share a key.
func (s Segment) String() string {
	name := s.Name
	if strings.ContainsAny(name, ".[]") || strings.HasSuffix(name, "()") {
		name = "[" + name + "]"
	}
	if s.Kind == Invoked {
		name += "()"
	}
	return name
}

// Read returns the segment's value inside container. It yields Absent when
// container is not a container or lacks the key.
//
// An Invoked segment calls a callable value and returns its result; a nil
// or null result yields the callable itself. Containers implementing
// value.Invoker run the call, so a reactive container hands back an
// observed wrapper. Other values under an Invoked segment are returned as
// stored.
func (s Segment) Read(container value.Value) value.Value {
	c, ok := container.(value.Container)
	if !ok || !value.IsContainer(container) {
		return value.Absent{}
	}
	v, ok := c.Child(s.Name)
	if !ok || v == nil {
		return value.Absent{}
	}
	if s.Kind != Invoked {
		return v
	}
	f, ok := value.Unwrap(v).(*value.Func)
	if !ok {
		return v
	}
	var r value.Value
	if inv, ok := c.(value.Invoker); ok {
		r = inv.Invoke(s.Name, f)
	} else {
		r = f.Call()
	}
	if _, null := r.(value.Null); null || r == nil || value.IsAbsent(r) {
		return v
	}
	return r
}

// EnsureOptions controls Ensure.
type EnsureOptions struct {
	// Value, when non-nil, is assigned to the key.
	Value value.Value

	// Unset removes the key instead.
	Unset bool

	// Next is the segment that will be applied after this one. It decides
	// the shape of a default child: a list when Next is an index.
	Next *Segment
}

// Ensure makes the segment's key exist in container. With Unset the key is
// removed; with a Value it is assigned. Otherwise a missing key receives a
// default child: a callable placeholder for an Invoked segment, a list when
// opts.Next is an index, an object otherwise. Existing keys are untouched.
func (s Segment) Ensure(container value.Value, opts EnsureOptions) error {
	c, ok := container.(value.Mutable)
	if !ok || !value.IsContainer(container) {
		return &PathError{Op: "set", Input: s.String(), Reason: "parent is not a container"}
	}
	if opts.Unset {
		return c.DeleteChild(s.Name)
	}
	if opts.Value != nil {
		return c.SetChild(s.Name, opts.Value)
	}
	if existing, ok := c.Child(s.Name); ok && !value.IsAbsent(existing) {
		return nil
	}
	return c.SetChild(s.Name, s.defaultChild(opts.Next))
}

func (s Segment) defaultChild(next *Segment) value.Value {
	var child value.Value
	if next != nil && next.IsIndex() {
		child = value.NewList()
	} else {
		child = value.NewObject()
	}
	if s.Kind == Invoked {
		return value.NewFunc(s.Name, func() value.Value { return child })
	}
	return child
}
