package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/rstate/internal/loader"
	"github.com/roach88/rstate/internal/logging"
	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/reactive"
	"github.com/roach88/rstate/internal/store"
	"github.com/roach88/rstate/internal/testutil"
	"github.com/roach88/rstate/internal/value"
)

// Option configures Run.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	metrics *reactive.Metrics
	journal *store.Store
	ids     store.RunIDGenerator
}

// WithLogger passes logger to the State. Default: logging.NewNop().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records the run's engine activity on m.
func WithMetrics(m *reactive.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithJournal writes the run and its trace to j when it finishes.
func WithJournal(j *store.Store) Option {
	return func(c *config) {
		c.journal = j
	}
}

// WithRunIDGenerator supplies run ids for scenarios without run_id.
func WithRunIDGenerator(g store.RunIDGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.ids = g
		}
	}
}

// Harness executes one scenario against a fresh State.
type Harness struct {
	state     *reactive.State
	clock     *reactive.Clock
	scheduler *testutil.ManualScheduler

	// mu guards result: notify observers of a batched flush run on the
	// scheduler's caller, change observers on the mutating goroutine.
	mu     sync.Mutex
	result *Result
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the initial state (inline or state_file)
//  2. Create a State on a manual scheduler and a fresh clock
//  3. Register observers in declaration order
//  4. Execute steps, recording failures without stopping
//  5. Evaluate assertions, snapshot the final state, close the State
//  6. Write the run to the journal, if one is configured
//
// An error is returned only when the scenario cannot start or the journal
// write fails; step and assertion failures are reported in Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ids == nil {
		cfg.ids = testutil.NewFixedRunIDGenerator(scenario.RunID)
	}

	initial, err := scenario.InitialState()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	result := NewResult()
	result.RunID = scenario.RunID
	if result.RunID == "" {
		result.RunID = cfg.ids.Generate()
	}
	if result.StateHash, err = value.Hash(initial); err != nil {
		return nil, fmt.Errorf("failed to hash state: %w", err)
	}

	h := &Harness{
		clock:     reactive.NewClock(),
		scheduler: testutil.NewManualScheduler(),
		result:    result,
	}
	h.state, err = reactive.New(initial,
		reactive.WithClock(h.clock),
		reactive.WithScheduler(h.scheduler),
		reactive.WithFlushInterval(time.Duration(scenario.FlushIntervalMS)*time.Millisecond),
		reactive.WithLogger(cfg.logger),
		reactive.WithMetrics(cfg.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create state: %w", err)
	}
	defer h.state.Close()

	if err := h.registerObservers(scenario.Observers); err != nil {
		return nil, fmt.Errorf("failed to register observers: %w", err)
	}

	for i, step := range scenario.Steps {
		h.executeStep(i, step)
	}

	actx := &AssertionContext{State: h.state}
	for _, msg := range EvaluateAssertions(h.trace(), scenario.Assertions, actx) {
		h.addError(msg)
	}

	root, err := h.state.Get(path.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Final = value.Clone(root)

	if result.TraceHash, err = TraceHash(scenario.Name, result.Trace); err != nil {
		return nil, fmt.Errorf("failed to hash trace: %w", err)
	}

	if cfg.journal != nil {
		if err := writeJournal(context.Background(), cfg.journal, cfg.logger, scenario.Name, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// InitialState decodes the inline state or loads state_file.
func (s *Scenario) InitialState() (value.Value, error) {
	if s.State.Kind != 0 {
		return loader.FromYAMLNode(&s.State)
	}
	return loader.Load(s.statePath())
}

func (h *Harness) registerObservers(specs []ObserverSpec) error {
	for i, o := range specs {
		kind, err := reactive.ParseObserverKind(o.Kind)
		if err != nil {
			return fmt.Errorf("observers[%d]: %w", i, err)
		}

		if kind == reactive.NotifyObserver {
			_, err = h.state.OnNotify(o.Path, h.recordNotify)
		} else {
			var replace value.Value
			if o.Replace.Kind != 0 {
				if replace, err = loader.FromYAMLNode(&o.Replace); err != nil {
					return fmt.Errorf("observers[%d].replace: %w", i, err)
				}
			}
			_, err = h.state.OnChange(o.Path, h.changeObserver(o.Cancel, replace))
		}
		if err != nil {
			return fmt.Errorf("observers[%d]: %w", i, err)
		}
	}
	return nil
}

func (h *Harness) changeObserver(cancel bool, replace value.Value) reactive.ChangeFunc {
	return func(c *reactive.Change) {
		if replace != nil && c.Op == reactive.OpSet {
			c.Proposed = replace
		}
		ev := TraceEvent{
			Seq:    c.Seq,
			Type:   EventChange,
			Path:   c.Path.String(),
			Op:     c.Op.String(),
			Method: c.Method,
			Value:  value.Clone(c.Proposed),
		}
		if c.Op == reactive.OpCall {
			ev.Value = value.Clone(value.NewList(c.Args...))
		}
		if cancel {
			c.Cancel()
			ev.Type = EventCanceled
		}
		h.record(ev)
	}
}

func (h *Harness) recordNotify(p *path.Path) {
	v, err := h.state.Get(p)
	if err != nil {
		h.addError(fmt.Sprintf("notify %s: %v", p, err))
		return
	}
	h.record(TraceEvent{
		Seq:   h.clock.Current(),
		Type:  EventNotify,
		Path:  p.String(),
		Value: value.Clone(v),
	})
}

func (h *Harness) executeStep(i int, step Step) {
	var err error
	switch {
	case step.Set != "":
		var v value.Value
		if v, err = loader.FromYAMLNode(&step.Value); err == nil {
			err = h.state.Set(step.Set, v)
		}
	case step.Delete != "":
		err = h.state.Delete(step.Delete)
	case step.Call != "":
		err = h.call(step)
	case step.Tick > 0:
		h.scheduler.Advance(step.Tick)
	case step.Flush:
		h.state.Flush()
	}

	switch {
	case step.ExpectError == "" && err != nil:
		h.addError(fmt.Sprintf("steps[%d]: %v", i, err))
	case step.ExpectError != "" && err == nil:
		h.addError(fmt.Sprintf("steps[%d]: expected error containing %q, got none", i, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		h.addError(fmt.Sprintf("steps[%d]: expected error containing %q, got %v", i, step.ExpectError, err))
	}
}

func (h *Harness) call(step Step) error {
	m, ok := listMethods[step.Method]
	if !ok {
		return fmt.Errorf("unknown list method %q", step.Method)
	}
	args := m.args()
	if err := decodeArgs(step.Args, args); err != nil {
		return fmt.Errorf("%s args: %w", step.Method, err)
	}
	l, err := h.state.List(step.Call)
	if err != nil {
		return err
	}
	return m.call(l, args)
}

func (h *Harness) record(ev TraceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.addEvent(ev)
}

func (h *Harness) addError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.AddError(msg)
}

func (h *Harness) trace() []TraceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TraceEvent(nil), h.result.Trace...)
}

// writeJournal records the run and its trace. A run id already in the
// journal keeps its first recording.
func writeJournal(ctx context.Context, j *store.Store, logger *slog.Logger, scenario string, r *Result) error {
	_, err := j.ReadRun(ctx, r.RunID)
	if err == nil {
		logger.Warn("run already journaled, skipping", "run_id", r.RunID, "scenario", scenario)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("journal: %w", err)
	}

	run := store.Run{
		ID:        r.RunID,
		Scenario:  scenario,
		StateHash: r.StateHash,
		TraceHash: r.TraceHash,
		Passed:    r.Pass,
		Failures:  r.Errors,
	}
	if err := j.WriteRun(ctx, run); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	events := make([]store.Event, len(r.Trace))
	for i, ev := range r.Trace {
		events[i] = store.Event{
			Seq:    ev.Seq,
			Type:   ev.Type,
			Path:   ev.Path,
			Op:     ev.Op,
			Method: ev.Method,
			Value:  ev.Value,
		}
	}
	if err := j.WriteEvents(ctx, r.RunID, events); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
