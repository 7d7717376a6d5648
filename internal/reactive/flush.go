package reactive

import (
	"time"

	"github.com/roach88/rstate/internal/path"
)

type delivery struct {
	path *path.Path
	sub  *Subscription
}

// Flush drains the notify queue and delivers every pending path to the
// notify observers registered on it: paths in enqueue order, observers in
// registration order.
//
// Observers run without the lock. Mutations they make are enqueued and
// delivered by this same loop, which runs until the queue stays empty. A
// Flush that starts while another is delivering returns at once and leaves
// the work to the running loop. A panicking observer is logged and counted;
// delivery continues with the next one. After the State's round limit the
// loop stops and logs, leaving the queue for the next Flush.
func (s *State) Flush() {
	s.mu.Lock()
	if s.flushing || s.closed {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
	}()

	quota := newFlushQuota(s.maxRounds)
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if s.queue.len() > 0 {
			if err := quota.check(); err != nil {
				pending := s.queue.len()
				s.mu.Unlock()
				s.logger.Error("flush round limit reached",
					"error", err,
					"pending", pending,
				)
				return
			}
		}
		batch := s.queue.drain()
		if len(batch) == 0 {
			s.mu.Unlock()
			return
		}
		// Under the lock, so a concurrent enqueue is never zeroed.
		s.metrics.drained()
		var deliveries []delivery
		for _, p := range batch {
			for _, sub := range s.registry.lookup(NotifyObserver, p) {
				deliveries = append(deliveries, delivery{path: p, sub: sub})
			}
		}
		s.mu.Unlock()

		start := time.Now()
		seq := s.clock.Next()
		for _, d := range deliveries {
			s.invokeNotify(d)
		}
		s.metrics.flush(time.Since(start).Seconds())
		s.logger.Debug("flush delivered",
			"seq", seq,
			"paths", len(batch),
			"deliveries", len(deliveries),
		)
	}
}

func (s *State) invokeNotify(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.observerPanicked(d.sub, d.path, r)
		}
	}()
	d.sub.notify(d.path)
	s.metrics.deliver()
}
