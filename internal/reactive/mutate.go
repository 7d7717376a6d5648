package reactive

import (
	"errors"
	"fmt"

	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/value"
)

// set is the write pipeline for n[key] = v.
func (s *State) set(n *Node, key string, v value.Value) error {
	v = value.Unwrap(orNull(v))
	p := n.path.Child(path.Segment{Name: key})

	old, err := s.read(n, key)
	if err != nil {
		return err
	}
	if value.Equal(old, v) {
		return nil
	}

	ch := &Change{Seq: s.clock.Next(), Path: p, Op: OpSet, Old: old, Proposed: v}
	if !s.dispatchChange(ch) {
		s.metrics.cancel(OpSet)
		s.logger.Debug("write canceled", "seq", ch.Seq, "path", p.String())
		return nil
	}
	v = value.Unwrap(orNull(ch.Proposed))
	if keys, found := value.FindFrozen(v); found {
		return newFrozenError(p.Join(keysPath(keys)).String())
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newClosedError()
	}
	// Observers ran unlocked; diff against what is there now.
	old = rawChild(n.raw, key)
	if value.Equal(old, v) {
		s.mu.Unlock()
		return nil
	}
	if err := n.raw.SetChild(key, v); err != nil {
		s.mu.Unlock()
		return s.applyError(err, p)
	}
	paths := append([]*path.Path{p}, diff(old, v, p)...)
	added := s.enqueueLocked(append(paths, ancestors(p)...))
	s.mu.Unlock()

	s.metrics.mutation(OpSet)
	s.logger.Debug("write applied", "seq", ch.Seq, "path", p.String(), "enqueued", added)
	s.flushIfSync()
	return nil
}

// remove is the delete pipeline for n[key]. Missing keys are a no-op.
func (s *State) remove(n *Node, key string) error {
	p := n.path.Child(path.Segment{Name: key})

	old, err := s.read(n, key)
	if err != nil {
		return err
	}
	if value.IsAbsent(old) {
		return nil
	}

	ch := &Change{Seq: s.clock.Next(), Path: p, Op: OpDelete, Old: old, Proposed: value.Absent{}}
	if !s.dispatchChange(ch) {
		s.metrics.cancel(OpDelete)
		s.logger.Debug("delete canceled", "seq", ch.Seq, "path", p.String())
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newClosedError()
	}
	old = rawChild(n.raw, key)
	if value.IsAbsent(old) {
		s.mu.Unlock()
		return nil
	}
	if err := n.raw.DeleteChild(key); err != nil {
		s.mu.Unlock()
		return s.applyError(err, p)
	}
	paths := append([]*path.Path{p}, diff(old, value.Absent{}, p)...)
	added := s.enqueueLocked(append(paths, ancestors(p)...))
	s.mu.Unlock()

	s.metrics.mutation(OpDelete)
	s.logger.Debug("delete applied", "seq", ch.Seq, "path", p.String(), "enqueued", added)
	s.flushIfSync()
	return nil
}

// call is the pipeline for bulk list operations. apply runs the native
// operation on the underlying list under the lock.
func (s *State) call(n *Node, method string, args []value.Value, apply func(*value.List) error) error {
	list, ok := n.raw.(*value.List)
	if !ok {
		return newNotListError(n.path.String(), n.raw.Kind().String())
	}
	for _, a := range args {
		if keys, found := value.FindFrozen(a); found {
			return newFrozenError(n.path.Join(keysPath(keys)).String())
		}
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	ch := &Change{Seq: s.clock.Next(), Path: n.path, Op: OpCall, Method: method, Args: args, Old: n}
	if !s.dispatchChange(ch) {
		s.metrics.cancel(OpCall)
		s.logger.Debug("call canceled", "seq", ch.Seq, "path", n.path.String(), "method", method)
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newClosedError()
	}
	snapshot := value.NewList(list.Items()...)
	if err := apply(list); err != nil {
		s.mu.Unlock()
		return s.applyError(err, n.path)
	}
	paths := append([]*path.Path{n.path}, diff(snapshot, list, n.path)...)
	added := s.enqueueLocked(append(paths, ancestors(n.path)...))
	s.mu.Unlock()

	s.metrics.mutation(OpCall)
	s.logger.Debug("call applied",
		"seq", ch.Seq,
		"path", n.path.String(),
		"method", method,
		"enqueued", added,
	)
	s.flushIfSync()
	return nil
}

// read returns the current raw child of n, or Absent.
func (s *State) read(n *Node, key string) (value.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, newClosedError()
	}
	return rawChild(n.raw, key), nil
}

func rawChild(c value.Container, key string) value.Value {
	v, ok := c.Child(key)
	if !ok || v == nil {
		return value.Absent{}
	}
	return v
}

// dispatchChange calls every change observer on ch.Path, unlocked and in
// registration order. It reports whether the mutation may proceed.
func (s *State) dispatchChange(ch *Change) bool {
	s.mu.Lock()
	subs := s.registry.lookup(ChangeObserver, ch.Path)
	s.mu.Unlock()

	for _, sub := range subs {
		s.invokeChange(sub, ch)
	}
	return !ch.canceled
}

func (s *State) invokeChange(sub *Subscription, ch *Change) {
	defer func() {
		if r := recover(); r != nil {
			s.observerPanicked(sub, ch.Path, r)
		}
	}()
	sub.change(ch)
}

func (s *State) observerPanicked(sub *Subscription, p *path.Path, r any) {
	s.metrics.panicked(sub.kind)
	s.logger.Error("observer panicked",
		"code", ErrCodeObserverPanic,
		"kind", sub.kind.String(),
		"subscription", sub.id,
		"path", p.String(),
		"panic", fmt.Sprint(r),
	)
}

// enqueueLocked adds paths to the notify queue. Caller holds s.mu.
func (s *State) enqueueLocked(paths []*path.Path) int {
	added := s.queue.push(paths...)
	s.metrics.enqueue(added, s.queue.len())
	return added
}

func (s *State) flushIfSync() {
	if s.interval <= 0 {
		s.Flush()
	}
}

func (s *State) applyError(err error, p *path.Path) error {
	if errors.Is(err, value.ErrFrozen) {
		return newFrozenError(p.String())
	}
	return fmt.Errorf("apply %s: %w", p.String(), err)
}

// ancestors returns the proper ancestors of p, nearest first, ending with
// the root path.
func ancestors(p *path.Path) []*path.Path {
	if p.IsRoot() {
		return nil
	}
	out := make([]*path.Path, 0, p.Len())
	for q := p.Parent(); ; q = q.Parent() {
		out = append(out, q)
		if q.IsRoot() {
			return out
		}
	}
}
