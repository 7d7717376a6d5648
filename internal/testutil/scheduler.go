package testutil

import (
	"sync"
	"time"
)

// ManualScheduler is a scheduler driven by the test instead of a clock.
//
// Tasks registered with Every run only when Tick is called, so periodic
// flushes happen exactly where a test (or scenario step) says they do.
// The interval is recorded but never waited on.
//
// Thread-safety: all methods are safe for concurrent use. Tick runs tasks
// without holding the internal lock, so a task may register or stop tasks.
type ManualScheduler struct {
	mu     sync.Mutex
	nextID int
	tasks  []*manualTask
	ticks  int64
}

type manualTask struct {
	id       int
	interval time.Duration
	run      func()
}

// NewManualScheduler creates a scheduler with no tasks.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Every registers task. The returned stop removes it and is idempotent.
func (s *ManualScheduler) Every(interval time.Duration, task func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.tasks = append(s.tasks, &manualTask{id: id, interval: interval, run: task})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, t := range s.tasks {
			if t.id == id {
				s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
				return
			}
		}
	}
}

// Tick runs every registered task once, in registration order, and
// returns the total number of ticks so far.
func (s *ManualScheduler) Tick() int64 {
	s.mu.Lock()
	s.ticks++
	n := s.ticks
	tasks := make([]*manualTask, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	for _, t := range tasks {
		t.run()
	}
	return n
}

// Advance calls Tick n times.
func (s *ManualScheduler) Advance(n int) {
	for range n {
		s.Tick()
	}
}

// Ticks returns the number of Tick calls so far.
func (s *ManualScheduler) Ticks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Tasks returns the number of registered tasks.
func (s *ManualScheduler) Tasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Intervals returns the interval of each registered task.
func (s *ManualScheduler) Intervals() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.interval
	}
	return out
}

// Reset drops every task and sets the tick count back to 0.
func (s *ManualScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.ticks = 0
}
