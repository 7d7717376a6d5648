package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/reactive"
)

// Scenario describes one run of the engine: an initial state, the
// observers to register, the mutations to apply and what to check.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// State is the inline initial state. Exactly one of State and
	// StateFile is set.
	State     yaml.Node `yaml:"state,omitempty"`
	StateFile string    `yaml:"state_file,omitempty"`

	// FlushIntervalMS > 0 batches notifications until a tick step.
	FlushIntervalMS int `yaml:"flush_interval_ms,omitempty"`

	Observers  []ObserverSpec `yaml:"observers,omitempty"`
	Steps      []Step         `yaml:"steps"`
	Assertions []Assertion    `yaml:"assertions"`

	// RunID is a fixed journal run id. If empty, a generator supplies one
	// (the fixed "test-run-default" unless the caller passes another).
	RunID string `yaml:"run_id,omitempty"`

	// dir is the scenario file's directory, for state_file.
	dir string
}

// ObserverSpec registers one observer before the steps run.
type ObserverSpec struct {
	Kind string `yaml:"kind"` // "change" or "notify"
	Path string `yaml:"path"`

	// Cancel and Replace apply to change observers only.
	Cancel  bool      `yaml:"cancel,omitempty"`
	Replace yaml.Node `yaml:"replace,omitempty"`
}

// Step is one action. Exactly one of Set, Delete, Call, Tick and Flush is
// given.
type Step struct {
	Set   string    `yaml:"set,omitempty"`
	Value yaml.Node `yaml:"value,omitempty"`

	Delete string `yaml:"delete,omitempty"`

	Call   string         `yaml:"call,omitempty"`
	Method string         `yaml:"method,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`

	Tick  int  `yaml:"tick,omitempty"`
	Flush bool `yaml:"flush,omitempty"`

	// ExpectError makes the step pass only if it fails with an error
	// containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Path is used by notified, not_notified, canceled and final_value.
	Path string `yaml:"path,omitempty"`

	// Count is the exact number of notify deliveries (notified). Omitted
	// means at least one.
	Count *int `yaml:"count,omitempty"`

	// Expect is the value final_value compares against.
	Expect yaml.Node `yaml:"expect,omitempty"`

	// Paths is the expected first-delivery order (notify_order).
	Paths []string `yaml:"paths,omitempty"`
}

// Assertion type constants.
const (
	AssertNotified    = "notified"
	AssertNotNotified = "not_notified"
	AssertCanceled    = "canceled"
	AssertFinalValue  = "final_value"
	AssertNotifyOrder = "notify_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(file string) (*Scenario, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(file))
}

// ParseScenario parses scenario YAML. dir resolves a relative state_file.
func ParseScenario(data []byte, dir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = dir

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// statePath returns StateFile resolved against the scenario directory.
func (s *Scenario) statePath() string {
	if filepath.IsAbs(s.StateFile) || s.dir == "" {
		return s.StateFile
	}
	return filepath.Join(s.dir, s.StateFile)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	hasState := s.State.Kind != 0
	switch {
	case hasState && s.StateFile != "":
		return fmt.Errorf("state and state_file are mutually exclusive")
	case !hasState && s.StateFile == "":
		return fmt.Errorf("state or state_file is required")
	case s.StateFile != "":
		if _, err := os.Stat(s.statePath()); os.IsNotExist(err) {
			return fmt.Errorf("state file not found: %s", s.statePath())
		}
	}

	if s.FlushIntervalMS < 0 {
		return fmt.Errorf("flush_interval_ms must be non-negative")
	}

	for i, o := range s.Observers {
		if err := validateObserver(i, &o); err != nil {
			return err
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateObserver(index int, o *ObserverSpec) error {
	kind, err := reactive.ParseObserverKind(o.Kind)
	if err != nil {
		return fmt.Errorf("observers[%d]: %w", index, err)
	}
	if _, err := path.Parse(o.Path); err != nil {
		return fmt.Errorf("observers[%d]: %w", index, err)
	}
	if kind == reactive.NotifyObserver && (o.Cancel || o.Replace.Kind != 0) {
		return fmt.Errorf("observers[%d]: cancel and replace apply to change observers only", index)
	}
	return nil
}

func validateStep(index int, s *Step) error {
	actions := 0
	if s.Set != "" {
		actions++
		if s.Value.Kind == 0 {
			return fmt.Errorf("steps[%d]: value is required for set", index)
		}
	}
	if s.Delete != "" {
		actions++
	}
	if s.Call != "" {
		actions++
		m, ok := listMethods[s.Method]
		if !ok {
			return fmt.Errorf("steps[%d]: unknown list method %q", index, s.Method)
		}
		if err := decodeArgs(s.Args, m.args()); err != nil {
			return fmt.Errorf("steps[%d]: %s args: %w", index, s.Method, err)
		}
	} else if s.Method != "" || s.Args != nil {
		return fmt.Errorf("steps[%d]: method and args require call", index)
	}
	if s.Tick != 0 {
		actions++
		if s.Tick < 0 {
			return fmt.Errorf("steps[%d]: tick must be positive", index)
		}
	}
	if s.Flush {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of set, delete, call, tick, flush is required", index)
	}

	for _, spec := range []string{s.Set, s.Delete, s.Call} {
		if spec == "" {
			continue
		}
		if _, err := path.Parse(spec); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNotified, AssertNotNotified, AssertCanceled:
		if a.Count != nil && a.Type != AssertNotified {
			return fmt.Errorf("assertions[%d]: count is only valid for notified", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notified", index)
		}
	case AssertFinalValue:
		if a.Expect.Kind == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_value", index)
		}
	case AssertNotifyOrder:
		if len(a.Paths) == 0 {
			return fmt.Errorf("assertions[%d]: paths list is required for notify_order", index)
		}
		for _, p := range a.Paths {
			if _, err := path.Parse(p); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if _, err := path.Parse(a.Path); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}
	return nil
}
