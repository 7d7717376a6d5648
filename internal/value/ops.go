package value

import (
	"cmp"
	"slices"
	"strings"
)

// Native list operations. They mutate the list in place and follow the
// index conventions of their JavaScript namesakes: negative positions count
// from the end and out-of-range positions are clamped.

// Push appends items and returns the new length.
func (l *List) Push(items ...Value) (int, error) {
	if err := l.mutable(); err != nil {
		return 0, err
	}
	for _, v := range items {
		l.items = append(l.items, orNull(v))
	}
	return len(l.items), nil
}

// Pop removes and returns the last slot, or Absent when empty.
func (l *List) Pop() (Value, error) {
	if err := l.mutable(); err != nil {
		return Absent{}, err
	}
	if len(l.items) == 0 {
		return Absent{}, nil
	}
	last := l.items[len(l.items)-1]
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]
	return last, nil
}

// Shift removes and returns the first slot, or Absent when empty.
func (l *List) Shift() (Value, error) {
	if err := l.mutable(); err != nil {
		return Absent{}, err
	}
	if len(l.items) == 0 {
		return Absent{}, nil
	}
	first := l.items[0]
	l.items = slices.Delete(l.items, 0, 1)
	return first, nil
}

// Unshift prepends items and returns the new length.
func (l *List) Unshift(items ...Value) (int, error) {
	if err := l.mutable(); err != nil {
		return 0, err
	}
	head := make([]Value, len(items))
	for i, v := range items {
		head[i] = orNull(v)
	}
	l.items = slices.Insert(l.items, 0, head...)
	return len(l.items), nil
}

// Splice removes deleteCount slots at start, inserts items there and
// returns the removed slots.
func (l *List) Splice(start, deleteCount int, items ...Value) ([]Value, error) {
	if err := l.mutable(); err != nil {
		return nil, err
	}
	n := len(l.items)
	start = relIndex(start, n)
	if deleteCount < 0 {
		deleteCount = 0
	}
	if deleteCount > n-start {
		deleteCount = n - start
	}

	removed := make([]Value, deleteCount)
	copy(removed, l.items[start:start+deleteCount])

	ins := make([]Value, len(items))
	for i, v := range items {
		ins[i] = orNull(v)
	}
	l.items = slices.Replace(l.items, start, start+deleteCount, ins...)
	return removed, nil
}

// Reverse reverses the list in place.
func (l *List) Reverse() error {
	if err := l.mutable(); err != nil {
		return err
	}
	slices.Reverse(l.items)
	return nil
}

// Sort sorts the list stably. A nil cmp uses Compare. Holes always sort
// to the end.
func (l *List) Sort(cmpFn func(a, b Value) int) error {
	if err := l.mutable(); err != nil {
		return err
	}
	if cmpFn == nil {
		cmpFn = Compare
	}
	slices.SortStableFunc(l.items, func(a, b Value) int {
		aa, ba := IsAbsent(a), IsAbsent(b)
		switch {
		case aa && ba:
			return 0
		case aa:
			return 1
		case ba:
			return -1
		}
		return cmpFn(a, b)
	})
	return nil
}

// Fill writes v into slots [start, end).
func (l *List) Fill(v Value, start, end int) error {
	if err := l.mutable(); err != nil {
		return err
	}
	n := len(l.items)
	start, end = relIndex(start, n), relIndex(end, n)
	for i := start; i < end; i++ {
		l.items[i] = orNull(v)
	}
	return nil
}

// CopyWithin copies slots [start, end) over the slots beginning at target,
// without changing the length.
func (l *List) CopyWithin(target, start, end int) error {
	if err := l.mutable(); err != nil {
		return err
	}
	n := len(l.items)
	target, start, end = relIndex(target, n), relIndex(start, n), relIndex(end, n)
	count := min(end-start, n-target)
	if count <= 0 {
		return nil
	}
	copy(l.items[target:target+count], l.items[start:start+count])
	return nil
}

func relIndex(i, n int) int {
	if i < 0 {
		return max(n+i, 0)
	}
	return min(i, n)
}

// Compare orders values for Sort: numbers numerically, then strings,
// then booleans, then everything else by its canonical text.
func Compare(a, b Value) int {
	a, b = Unwrap(orNull(a)), Unwrap(orNull(b))
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 0:
		return cmp.Compare(number(a), number(b))
	case 1:
		return strings.Compare(string(a.(String)), string(b.(String)))
	case 2:
		ab, bb := bool(a.(Bool)), bool(b.(Bool))
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(Format(a), Format(b))
}

func rank(v Value) int {
	switch v.(type) {
	case Int, Float:
		return 0
	case String:
		return 1
	case Bool:
		return 2
	case Null:
		return 3
	default:
		return 4
	}
}

func number(v Value) float64 {
	switch n := v.(type) {
	case Int:
		return float64(n)
	case Float:
		return float64(n)
	}
	return 0
}
