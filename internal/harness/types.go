package harness

import "github.com/roach88/rstate/internal/value"

// Trace event types.
const (
	EventChange   = "change"
	EventCanceled = "canceled"
	EventNotify   = "notify"
)

// TraceEvent is one observer call seen during a run.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Type   string `json:"type"`
	Path   string `json:"path"`
	Op     string `json:"op,omitempty"`
	Method string `json:"method,omitempty"`

	// Value is the proposed value (change, canceled) or the value read
	// back at delivery (notify). For a list call it is the argument list.
	Value value.Value `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved and every assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	RunID     string `json:"run_id"`
	StateHash string `json:"state_hash"`
	TraceHash string `json:"trace_hash"`

	// Final is a detached copy of the state after the last step.
	Final value.Value `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
