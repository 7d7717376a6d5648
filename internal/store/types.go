package store

import "github.com/roach88/rstate/internal/value"

// Run is one execution of a scenario.
type Run struct {
	ID        string
	Scenario  string
	StateHash string // value.Hash of the initial state
	TraceHash string // hash of the canonical trace snapshot
	Passed    bool
	Failures  []string

	// EventCount is filled by reads.
	EventCount int
}

// Event is one trace entry of a run.
type Event struct {
	Seq    int64
	Type   string // "change", "canceled" or "notify"
	Path   string
	Op     string
	Method string
	Value  value.Value
}
