package reactive

import (
	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/value"
)

// Diff returns the paths under base whose resolved value differs between
// old and new, in depth-first pre-order.
//
//   - identical values contribute nothing
//   - two distinct containers contribute base, then every differing key
//     (old's keys first, then keys only new has)
//   - a container replaced by a leaf, or the reverse, contributes every
//     path of the container side
//   - two different leaves contribute base
//
// Containers are compared by identity, so a copied subtree with equal
// contents is still reported. A container reachable under several keys is
// reported under each of them. Cycles are cut at a container (or pair of
// containers) already on the current ancestor chain.
func Diff(old, new value.Value, base *path.Path) []*path.Path {
	return diff(old, new, base)
}

func diff(old, new value.Value, base *path.Path) []*path.Path {
	d := &differ{
		pairs:  make(map[[2]value.Value]bool),
		single: make(map[value.Value]bool),
	}
	d.walk(old, new, base)
	return d.out
}

type differ struct {
	out []*path.Path

	// Containers on the chain from the diff root to the current path.
	pairs  map[[2]value.Value]bool
	single map[value.Value]bool
}

func (d *differ) walk(a, b value.Value, base *path.Path) {
	a, b = unwrapOrAbsent(a), unwrapOrAbsent(b)
	if value.Equal(a, b) {
		return
	}
	ac, bc := value.IsContainer(a), value.IsContainer(b)
	switch {
	case ac && bc:
		pair := [2]value.Value{a, b}
		if d.pairs[pair] {
			return
		}
		d.pairs[pair] = true
		defer delete(d.pairs, pair)
		d.out = append(d.out, base)
		for _, k := range unionKeys(a.(value.Container), b.(value.Container)) {
			d.walk(childOf(a, k), childOf(b, k), base.Child(path.Segment{Name: k}))
		}
	case ac:
		d.all(a, base)
	case bc:
		d.all(b, base)
	default:
		d.out = append(d.out, base)
	}
}

// all emits base and every path below container c.
func (d *differ) all(c value.Value, base *path.Path) {
	if d.single[c] {
		return
	}
	d.single[c] = true
	defer delete(d.single, c)
	d.out = append(d.out, base)
	for _, k := range c.(value.Container).Keys() {
		child := unwrapOrAbsent(childOf(c, k))
		p := base.Child(path.Segment{Name: k})
		if value.IsContainer(child) {
			d.all(child, p)
			continue
		}
		d.out = append(d.out, p)
	}
}

// unionKeys returns a's keys followed by the keys only b has.
func unionKeys(a, b value.Container) []string {
	keys := a.Keys()
	have := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		have[k] = struct{}{}
	}
	for _, k := range b.Keys() {
		if _, ok := have[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func childOf(v value.Value, key string) value.Value {
	c, ok := v.(value.Container)
	if !ok {
		return value.Absent{}
	}
	return rawChild(c, key)
}

func unwrapOrAbsent(v value.Value) value.Value {
	if v == nil {
		return value.Absent{}
	}
	return value.Unwrap(v)
}
