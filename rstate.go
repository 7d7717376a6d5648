// Package rstate is a reactive state container: a tree of maps and lists
// addressed by paths, where change observers may veto or rewrite a
// mutation before it lands and notify observers hear about every affected
// path after it does.
//
//	s, err := rstate.New(rstate.MustFromGo(map[string]any{
//		"user": map[string]any{"name": "Ann"},
//	}))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	s.OnNotify("user", func(p *rstate.Path) { ... })
//	s.Set("user.name", rstate.String("Bob"))
package rstate

import (
	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/reactive"
	"github.com/roach88/rstate/internal/value"
)

type (
	// State is the reactive container.
	State = reactive.State
	// Node is the live wrapper returned for containers inside a State.
	Node = reactive.Node
	// ListNode adds the bulk list operations to a list Node.
	ListNode = reactive.ListNode
	// Change is a pending mutation handed to change observers.
	Change = reactive.Change
	// ChangeFunc and NotifyFunc are the observer callbacks.
	ChangeFunc = reactive.ChangeFunc
	NotifyFunc = reactive.NotifyFunc
	// Subscription identifies one observer registration.
	Subscription = reactive.Subscription
	// Option configures New.
	Option = reactive.Option
	// Scheduler runs the periodic flush.
	Scheduler = reactive.Scheduler
	// Metrics holds the Prometheus collectors.
	Metrics = reactive.Metrics
	// StateError is the error type of State operations.
	StateError = reactive.StateError

	// Path is an interned, canonical path.
	Path = path.Path
	// PathError reports an unparseable path.
	PathError = path.PathError

	// Value is any node of a state tree.
	Value = value.Value
	// Object is an insertion-ordered map.
	Object = value.Object
	// List is an ordered sequence.
	List = value.List
	// String, Int, Float, Bool and Null are the leaf values.
	String = value.String
	Int    = value.Int
	Float  = value.Float
	Bool   = value.Bool
	Null   = value.Null
)

// Options.
var (
	WithFlushInterval = reactive.WithFlushInterval
	WithScheduler     = reactive.WithScheduler
	WithLogger        = reactive.WithLogger
	WithMetrics       = reactive.WithMetrics
	NewMetrics        = reactive.NewMetrics
)

// New creates a State from an initial map or list.
func New(initial Value, opts ...Option) (*State, error) {
	return reactive.New(initial, opts...)
}

// FromGo converts decoded Go data (maps, slices, scalars) to a Value.
func FromGo(v any) (Value, error) {
	return value.FromGo(v)
}

// MustFromGo is FromGo for literals; it panics on unsupported input.
func MustFromGo(v any) Value {
	return value.MustFromGo(v)
}

// ParsePath parses a path string, a list of segments, or a *Path.
func ParsePath(spec any) (*Path, error) {
	return path.Parse(spec)
}
