package reactive

import (
	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/value"
)

// Node is the intercepting wrapper around one container of the state.
// Reads return wrapped children; writes go through the mutation pipeline.
//
// A Node implements value.Mutable, so path operations work on it exactly as
// they do on a raw tree. There is one Node per container per State, so two
// reads of the same container (even through different paths or a cycle)
// return the same *Node.
type Node struct {
	st   *State
	id   NodeID
	raw  value.Mutable
	path *path.Path
}

// Kind implements value.Value.
func (n *Node) Kind() value.Kind { return n.raw.Kind() }

// Unwrap returns the underlying container.
func (n *Node) Unwrap() value.Value { return n.raw }

// ID returns the node's arena id.
func (n *Node) ID() NodeID { return n.id }

// Path returns the path the container was first reached by.
func (n *Node) Path() *path.Path { return n.path }

// Child returns the wrapped child under key.
func (n *Node) Child(key string) (value.Value, bool) {
	return n.st.child(n, key)
}

// Get returns the wrapped child under key, or Absent.
func (n *Node) Get(key string) value.Value {
	if v, ok := n.st.child(n, key); ok {
		return v
	}
	return value.Absent{}
}

// Invoke implements value.Invoker. f runs without the state lock; a
// container result comes back as its Node, addressed under the invoked
// segment, so writes through "f().x" are observed.
func (n *Node) Invoke(key string, f *value.Func) value.Value {
	r := f.Call()
	return n.st.wrapInvoked(n, key, r)
}

// Keys returns the container's keys; list keys are decimal indices.
func (n *Node) Keys() []string {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	return n.raw.Keys()
}

// Len returns the number of keys or slots.
func (n *Node) Len() int {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	return n.raw.Len()
}

// Set writes v under key through the mutation pipeline. A canceled write
// returns nil.
func (n *Node) Set(key string, v value.Value) error {
	return n.st.set(n, key, v)
}

// Delete removes key through the mutation pipeline. In a list the slot
// becomes a hole.
func (n *Node) Delete(key string) error {
	return n.st.remove(n, key)
}

// SetChild implements value.Mutable.
func (n *Node) SetChild(key string, v value.Value) error { return n.Set(key, v) }

// DeleteChild implements value.Mutable.
func (n *Node) DeleteChild(key string) error { return n.Delete(key) }

// Snapshot returns a deep, unobserved copy of the container.
func (n *Node) Snapshot() value.Value {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	return value.Clone(n.raw)
}

// AsList returns the list view of the node, if it wraps a list.
func (n *Node) AsList() (*ListNode, bool) {
	if _, ok := n.raw.(*value.List); !ok {
		return nil, false
	}
	return &ListNode{Node: n}, true
}

// ListNode exposes the bulk list operations of a wrapped list. Each
// operation raises one cancelable Change (Op == OpCall) on the list path.
// A canceled operation returns its zero result and a nil error: 0 for
// Push, Unshift and InsertAt, Absent for Pop, Shift and RemoveAt, nil for
// Splice.
type ListNode struct {
	*Node
}

// Push appends items and returns the new length.
func (l *ListNode) Push(items ...value.Value) (int, error) {
	items = unwrapAll(items)
	var n int
	err := l.st.call(l.Node, "push", items, func(raw *value.List) (err error) {
		n, err = raw.Push(items...)
		return err
	})
	return n, err
}

// Pop removes and returns the last slot.
func (l *ListNode) Pop() (value.Value, error) {
	var out value.Value = value.Absent{}
	err := l.st.call(l.Node, "pop", nil, func(raw *value.List) (err error) {
		out, err = raw.Pop()
		return err
	})
	return out, err
}

// Shift removes and returns the first slot.
func (l *ListNode) Shift() (value.Value, error) {
	var out value.Value = value.Absent{}
	err := l.st.call(l.Node, "shift", nil, func(raw *value.List) (err error) {
		out, err = raw.Shift()
		return err
	})
	return out, err
}

// Unshift prepends items and returns the new length.
func (l *ListNode) Unshift(items ...value.Value) (int, error) {
	items = unwrapAll(items)
	var n int
	err := l.st.call(l.Node, "unshift", items, func(raw *value.List) (err error) {
		n, err = raw.Unshift(items...)
		return err
	})
	return n, err
}

// Splice removes deleteCount slots at start, inserts items and returns the
// removed slots.
func (l *ListNode) Splice(start, deleteCount int, items ...value.Value) ([]value.Value, error) {
	items = unwrapAll(items)
	args := append([]value.Value{value.Int(start), value.Int(deleteCount)}, items...)
	var removed []value.Value
	err := l.st.call(l.Node, "splice", args, func(raw *value.List) (err error) {
		removed, err = raw.Splice(start, deleteCount, items...)
		return err
	})
	return removed, err
}

// InsertAt inserts v before index i and returns the new length.
func (l *ListNode) InsertAt(i int, v value.Value) (int, error) {
	v = value.Unwrap(orNull(v))
	var n int
	err := l.st.call(l.Node, "insertAt", []value.Value{value.Int(i), v}, func(raw *value.List) error {
		if _, err := raw.Splice(i, 0, v); err != nil {
			return err
		}
		n = raw.Len()
		return nil
	})
	return n, err
}

// RemoveAt removes the slot at index i and returns it, or Absent when i is
// out of range.
func (l *ListNode) RemoveAt(i int) (value.Value, error) {
	var out value.Value = value.Absent{}
	err := l.st.call(l.Node, "removeAt", []value.Value{value.Int(i)}, func(raw *value.List) error {
		removed, err := raw.Splice(i, 1)
		if err != nil {
			return err
		}
		if len(removed) == 1 {
			out = removed[0]
		}
		return nil
	})
	return out, err
}

// Sort sorts the list stably with cmp, or value.Compare when cmp is nil.
func (l *ListNode) Sort(cmp func(a, b value.Value) int) error {
	return l.st.call(l.Node, "sort", nil, func(raw *value.List) error {
		return raw.Sort(cmp)
	})
}

// Reverse reverses the list in place.
func (l *ListNode) Reverse() error {
	return l.st.call(l.Node, "reverse", nil, func(raw *value.List) error {
		return raw.Reverse()
	})
}

// Fill writes v into slots [start, end).
func (l *ListNode) Fill(v value.Value, start, end int) error {
	v = value.Unwrap(orNull(v))
	args := []value.Value{v, value.Int(start), value.Int(end)}
	return l.st.call(l.Node, "fill", args, func(raw *value.List) error {
		return raw.Fill(v, start, end)
	})
}

// CopyWithin copies slots [start, end) over the slots starting at target.
func (l *ListNode) CopyWithin(target, start, end int) error {
	args := []value.Value{value.Int(target), value.Int(start), value.Int(end)}
	return l.st.call(l.Node, "copyWithin", args, func(raw *value.List) error {
		return raw.CopyWithin(target, start, end)
	})
}

func unwrapAll(items []value.Value) []value.Value {
	out := make([]value.Value, len(items))
	for i, v := range items {
		out[i] = value.Unwrap(orNull(v))
	}
	return out
}

func orNull(v value.Value) value.Value {
	if v == nil {
		return value.Null{}
	}
	return v
}
