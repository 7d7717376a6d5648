package reactive

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/value"
)

// State is a reactive wrapper around one value tree.
//
// Thread-safety model:
//   - all methods are safe to call from any goroutine
//   - observers run without the lock held and may call back into the State
//   - mutations are applied one at a time in lock order
type State struct {
	mu       sync.Mutex
	root     *Node
	arena    *arena
	registry *registry
	queue    *notifyQueue
	closed   bool
	flushing bool

	clock     *Clock
	interval  time.Duration
	maxRounds int
	scheduler Scheduler
	stop      func()
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures a State.
type Option func(*State)

// WithFlushInterval sets the notification schedule. Zero or negative (the
// default) delivers synchronously after every mutation. A positive interval
// drains the queue on a recurring task, so notifications for all mutations
// made within one interval arrive together.
func WithFlushInterval(d time.Duration) Option {
	return func(s *State) {
		s.interval = d
	}
}

// WithMaxFlushRounds bounds the delivery rounds of one Flush. Each round
// drains the paths queued so far, including those queued by observers of
// the previous round. Zero or negative removes the bound. Default:
// DefaultMaxFlushRounds.
func WithMaxFlushRounds(n int) Option {
	return func(s *State) {
		s.maxRounds = n
	}
}

// WithScheduler replaces the TickerScheduler used for periodic flushes.
func WithScheduler(sched Scheduler) Option {
	return func(s *State) {
		if sched != nil {
			s.scheduler = sched
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records engine activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *State) {
		s.metrics = m
	}
}

// WithClock shares a logical clock with the caller, so the caller's own
// events interleave with Change.Seq values.
func WithClock(c *Clock) Option {
	return func(s *State) {
		if c != nil {
			s.clock = c
		}
	}
}

// New wraps initial, which must be a container. Every container reachable
// from initial is checked; a frozen one fails construction with an error
// naming its path.
func New(initial value.Value, opts ...Option) (*State, error) {
	raw, ok := value.Unwrap(orNull(initial)).(value.Mutable)
	if !ok || !value.IsContainer(raw) {
		return nil, newNotContainerError("", orNull(initial).Kind().String())
	}
	if keys, found := value.FindFrozen(raw); found {
		return nil, newConstructionError(keysPath(keys).String())
	}

	s := &State{
		arena:     newArena(),
		registry:  newRegistry(),
		queue:     newNotifyQueue(),
		clock:     NewClock(),
		maxRounds: DefaultMaxFlushRounds,
		scheduler: TickerScheduler{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.root = s.arena.node(s, raw, path.Root())

	if s.interval > 0 {
		s.stop = s.scheduler.Every(s.interval, s.Flush)
	}
	s.logger.Debug("state created",
		"root_kind", raw.Kind().String(),
		"flush_interval", s.interval,
	)
	return s, nil
}

// Root returns the wrapper of the root container.
func (s *State) Root() *Node {
	return s.root
}

// Clock returns the logical clock stamping changes.
func (s *State) Clock() *Clock {
	return s.clock
}

// Get resolves spec against the root. Containers come back wrapped;
// missing steps yield Absent.
func (s *State) Get(spec any) (value.Value, error) {
	p, err := path.Parse(spec)
	if err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return p.Resolve(s.root), nil
}

// Set writes v at spec, creating missing intermediate containers. Each
// created container is itself a write and is observed as such.
func (s *State) Set(spec any, v value.Value) error {
	p, err := path.Parse(spec)
	if err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	return p.Set(s.root, v)
}

// Delete removes the value at spec. Missing keys are a no-op.
func (s *State) Delete(spec any) error {
	p, err := path.Parse(spec)
	if err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	return p.Delete(s.root)
}

// List returns the list at spec for bulk operations.
func (s *State) List(spec any) (*ListNode, error) {
	v, err := s.Get(spec)
	if err != nil {
		return nil, err
	}
	if n, ok := v.(*Node); ok {
		if l, ok := n.AsList(); ok {
			return l, nil
		}
	}
	p, _ := path.Parse(spec)
	return nil, newNotListError(p.String(), v.Kind().String())
}

// OnChange registers fn for pending mutations at exactly spec.
func (s *State) OnChange(spec any, fn ChangeFunc) (*Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("nil change observer")
	}
	return s.subscribe(&Subscription{kind: ChangeObserver, change: fn}, spec)
}

// OnNotify registers fn for applied mutations at or below spec. Writes to
// descendants bubble up, so an observer on "user" sees "user.name" changes.
func (s *State) OnNotify(spec any, fn NotifyFunc) (*Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("nil notify observer")
	}
	return s.subscribe(&Subscription{kind: NotifyObserver, notify: fn}, spec)
}

// Observe registers fn in the table selected by kind. fn must be a
// ChangeFunc (or func(*Change)) for ChangeObserver and a NotifyFunc (or
// func(*path.Path)) for NotifyObserver.
func (s *State) Observe(kind ObserverKind, spec any, fn any) (*Subscription, error) {
	switch kind {
	case ChangeObserver:
		switch f := fn.(type) {
		case ChangeFunc:
			return s.OnChange(spec, f)
		case func(*Change):
			return s.OnChange(spec, f)
		}
	case NotifyObserver:
		switch f := fn.(type) {
		case NotifyFunc:
			return s.OnNotify(spec, f)
		case func(*path.Path):
			return s.OnNotify(spec, f)
		}
	default:
		return nil, fmt.Errorf("unknown observer kind %v", kind)
	}
	return nil, fmt.Errorf("%s observer: unsupported callback type %T", kind, fn)
}

func (s *State) subscribe(sub *Subscription, spec any) (*Subscription, error) {
	p, err := path.Parse(spec)
	if err != nil {
		return nil, err
	}
	sub.path = p

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, newClosedError()
	}
	s.registry.add(sub)
	return sub, nil
}

// Unobserve removes one registration. It reports whether sub was
// registered.
func (s *State) Unobserve(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.registry.remove(sub)
}

// Observers returns the number of registrations of kind.
func (s *State) Observers(kind ObserverKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.count(kind)
}

// Pending returns the number of paths waiting for delivery.
func (s *State) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

// Nodes returns the number of containers wrapped so far.
func (s *State) Nodes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arena.len()
}

// Close stops the periodic flush and drops the wrapper cache, observers
// and pending notifications. Later operations fail with a closed error.
// Close is idempotent.
func (s *State) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stop
	s.stop = nil
	s.arena.reset()
	s.registry = newRegistry()
	dropped := len(s.queue.drain())
	s.metrics.drained()
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.logger.Debug("state closed", "dropped_notifications", dropped)
	return nil
}

func (s *State) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return newClosedError()
	}
	return nil
}

// child reads key from n and wraps container results.
func (s *State) child(n *Node, key string) (value.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	v, ok := n.raw.Child(key)
	if !ok {
		return nil, false
	}
	return s.wrapLocked(v, n.path.Child(path.Segment{Name: key})), true
}

func (s *State) wrapInvoked(n *Node, key string, v value.Value) value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return value.Absent{}
	}
	return s.wrapLocked(v, n.path.Child(path.Segment{Name: key, Kind: path.Invoked}))
}

// wrapLocked returns the Node for a container and v itself otherwise.
// Caller holds s.mu.
func (s *State) wrapLocked(v value.Value, p *path.Path) value.Value {
	raw, ok := value.Unwrap(orNull(v)).(value.Mutable)
	if !ok || !value.IsContainer(raw) {
		return v
	}
	return s.arena.node(s, raw, p)
}

func keysPath(keys []string) *path.Path {
	segs := make([]path.Segment, len(keys))
	for i, k := range keys {
		segs[i] = path.Segment{Name: k}
	}
	return path.New(segs...)
}
