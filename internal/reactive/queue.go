package reactive

import (
	"github.com/roach88/rstate/internal/path"
)

// notifyQueue is an insertion-ordered set of paths waiting for delivery.
// A path enqueued again before the next drain keeps its first position.
//
// The queue is guarded by State.mu.
type notifyQueue struct {
	paths []*path.Path
	seen  map[*path.Path]struct{}
}

func newNotifyQueue() *notifyQueue {
	return &notifyQueue{
		paths: make([]*path.Path, 0, 16),
		seen:  make(map[*path.Path]struct{}),
	}
}

// push appends the paths not already pending and returns how many were
// added. Interned paths make pointer identity path equality.
func (q *notifyQueue) push(paths ...*path.Path) int {
	added := 0
	for _, p := range paths {
		if _, ok := q.seen[p]; ok {
			continue
		}
		q.seen[p] = struct{}{}
		q.paths = append(q.paths, p)
		added++
	}
	return added
}

// drain removes and returns every pending path in enqueue order.
func (q *notifyQueue) drain() []*path.Path {
	if len(q.paths) == 0 {
		return nil
	}
	batch := q.paths
	q.paths = make([]*path.Path, 0, cap(batch))
	clear(q.seen)
	return batch
}

func (q *notifyQueue) len() int {
	return len(q.paths)
}
