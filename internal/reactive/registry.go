package reactive

import (
	"fmt"
	"slices"

	"github.com/roach88/rstate/internal/path"
)

// ObserverKind selects one of the two subscription tables.
type ObserverKind int

const (
	// ChangeObserver is called before a mutation and may cancel it.
	ChangeObserver ObserverKind = iota + 1
	// NotifyObserver is called after a mutation, batched per flush.
	NotifyObserver
)

func (k ObserverKind) String() string {
	switch k {
	case ChangeObserver:
		return "change"
	case NotifyObserver:
		return "notify"
	default:
		return fmt.Sprintf("observer(%d)", int(k))
	}
}

// ParseObserverKind maps "change" and "notify" to their kinds.
func ParseObserverKind(s string) (ObserverKind, error) {
	switch s {
	case "change":
		return ChangeObserver, nil
	case "notify":
		return NotifyObserver, nil
	default:
		return 0, fmt.Errorf("unknown observer kind %q (want change or notify)", s)
	}
}

// ChangeFunc receives a pending mutation. It may call Cancel or replace
// Proposed.
type ChangeFunc func(*Change)

// NotifyFunc receives the canonical path that changed. The current value is
// read back through State.Get.
type NotifyFunc func(p *path.Path)

// Subscription is the handle for one registration. Pass it to Unobserve.
type Subscription struct {
	id     uint64
	kind   ObserverKind
	path   *path.Path
	change ChangeFunc
	notify NotifyFunc
}

// Kind returns the table the subscription lives in.
func (s *Subscription) Kind() ObserverKind { return s.kind }

// Path returns the canonical path observed.
func (s *Subscription) Path() *path.Path { return s.path }

// ID returns the registration number, unique within a State.
func (s *Subscription) ID() uint64 { return s.id }

// registry holds both subscription tables. Entries per path are kept in
// registration order. Guarded by State.mu.
type registry struct {
	nextID uint64
	tables map[ObserverKind]map[*path.Path][]*Subscription
}

func newRegistry() *registry {
	return &registry{
		tables: map[ObserverKind]map[*path.Path][]*Subscription{
			ChangeObserver: {},
			NotifyObserver: {},
		},
	}
}

func (r *registry) add(sub *Subscription) {
	r.nextID++
	sub.id = r.nextID
	table := r.tables[sub.kind]
	table[sub.path] = append(table[sub.path], sub)
}

// remove drops sub. A path whose last subscription goes away is removed
// from its table.
func (r *registry) remove(sub *Subscription) bool {
	table, ok := r.tables[sub.kind]
	if !ok {
		return false
	}
	subs := table[sub.path]
	i := slices.Index(subs, sub)
	if i < 0 {
		return false
	}
	subs = slices.Delete(subs, i, i+1)
	if len(subs) == 0 {
		delete(table, sub.path)
	} else {
		table[sub.path] = subs
	}
	return true
}

// lookup returns a copy of the subscriptions on p so callers can invoke
// them without holding the lock.
func (r *registry) lookup(kind ObserverKind, p *path.Path) []*Subscription {
	return slices.Clone(r.tables[kind][p])
}

func (r *registry) count(kind ObserverKind) int {
	n := 0
	for _, subs := range r.tables[kind] {
		n += len(subs)
	}
	return n
}
