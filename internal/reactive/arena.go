package reactive

import (
	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/value"
)

// NodeID identifies a wrapped container within one State. IDs start at 1
// and are never reused until the State is closed.
type NodeID uint32

// arena is the wrapper cache: underlying container -> NodeID -> *Node.
// Guarded by State.mu.
type arena struct {
	ids   map[value.Value]NodeID
	nodes []*Node // nodes[id-1]
}

func newArena() *arena {
	return &arena{ids: make(map[value.Value]NodeID)}
}

// node returns the wrapper for raw, creating it on first sight. The path of
// the first sighting sticks. raw must be an unwrapped container.
func (a *arena) node(st *State, raw value.Mutable, p *path.Path) *Node {
	if id, ok := a.ids[raw]; ok {
		return a.nodes[id-1]
	}
	n := &Node{st: st, id: NodeID(len(a.nodes) + 1), raw: raw, path: p}
	a.nodes = append(a.nodes, n)
	a.ids[raw] = n.id
	return n
}

func (a *arena) len() int {
	return len(a.nodes)
}

func (a *arena) reset() {
	clear(a.ids)
	clear(a.nodes)
	a.nodes = a.nodes[:0]
}
