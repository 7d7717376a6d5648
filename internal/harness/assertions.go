package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/rstate/internal/loader"
	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/reactive"
	"github.com/roach88/rstate/internal/value"
)

// AssertionContext gives assertions access to the live State.
type AssertionContext struct {
	State *reactive.State
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] seq=%d %s %s", i+1, event.Seq, event.Type, displayPath(event.Path))
			if event.Method != "" {
				fmt.Fprintf(&buf, " %s", event.Method)
			}
			fmt.Fprintf(&buf, " %s\n", value.Format(event.Value))
		}
	}

	return buf.String()
}

// displayPath shows the root path as "<root>" instead of nothing.
func displayPath(p string) string {
	if p == "" {
		return "<root>"
	}
	return p
}

// canonical returns the canonical text of spec. Specs were validated when
// the scenario loaded.
func canonical(spec string) string {
	p, err := path.Parse(spec)
	if err != nil {
		return spec
	}
	return p.String()
}

func countEvents(trace []TraceEvent, typ, p string) int {
	n := 0
	for _, ev := range trace {
		if ev.Type == typ && ev.Path == p {
			n++
		}
	}
	return n
}

// assertNotified checks notify deliveries at the path: exactly Count, or
// at least one when Count is omitted.
func assertNotified(trace []TraceEvent, a Assertion) error {
	p := canonical(a.Path)
	n := countEvents(trace, EventNotify, p)

	if a.Count == nil {
		if n > 0 {
			return nil
		}
		return &AssertionError{
			Type:     AssertNotified,
			Expected: fmt.Sprintf("%s notified at least once", displayPath(p)),
			Actual:   "never notified",
			Trace:    trace,
		}
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertNotified,
			Expected: fmt.Sprintf("%s notified %d time(s)", displayPath(p), *a.Count),
			Actual:   fmt.Sprintf("notified %d time(s)", n),
			Trace:    trace,
		}
	}
	return nil
}

func assertNotNotified(trace []TraceEvent, a Assertion) error {
	p := canonical(a.Path)
	if n := countEvents(trace, EventNotify, p); n > 0 {
		return &AssertionError{
			Type:     AssertNotNotified,
			Expected: fmt.Sprintf("%s never notified", displayPath(p)),
			Actual:   fmt.Sprintf("notified %d time(s)", n),
			Trace:    trace,
		}
	}
	return nil
}

func assertCanceled(trace []TraceEvent, a Assertion) error {
	p := canonical(a.Path)
	if countEvents(trace, EventCanceled, p) > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertCanceled,
		Expected: fmt.Sprintf("a mutation at %s canceled", displayPath(p)),
		Actual:   "no canceled event",
		Trace:    trace,
	}
}

// assertNotifyOrder checks that the paths were first notified in the
// given order. Other deliveries may come in between.
func assertNotifyOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if ev.Type != EventNotify {
			continue
		}
		if _, seen := positions[ev.Path]; !seen {
			positions[ev.Path] = i + 1 // 1-indexed for readability
		}
	}

	want := make([]string, len(a.Paths))
	for i, spec := range a.Paths {
		want[i] = canonical(spec)
		if positions[want[i]] == 0 {
			return &AssertionError{
				Type:     AssertNotifyOrder,
				Expected: fmt.Sprintf("all paths notified: %q", want[:i+1]),
				Actual:   fmt.Sprintf("missing path: %s", displayPath(want[i])),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(want); i++ {
		prev, curr := want[i-1], want[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertNotifyOrder,
				Expected: fmt.Sprintf("paths in order: %q", want),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					displayPath(prev), positions[prev], displayPath(curr), positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertFinalValue reads the path from the State and compares it, as plain
// Go data, with the expected value.
func assertFinalValue(s *reactive.State, a Assertion) error {
	want, err := loader.FromYAMLNode(&a.Expect)
	if err != nil {
		return fmt.Errorf("final_value %s: expect: %w", a.Path, err)
	}
	got, err := s.Get(a.Path)
	if err != nil {
		return fmt.Errorf("final_value %s: %w", a.Path, err)
	}

	if diff := cmp.Diff(value.ToGo(want), value.ToGo(got)); diff != "" {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %s", displayPath(canonical(a.Path)), value.Format(want)),
			Actual:   fmt.Sprintf("%s (-want +got):\n%s", value.Format(got), diff),
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(trace []TraceEvent, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertNotified:
			err = assertNotified(trace, assertion)
		case AssertNotNotified:
			err = assertNotNotified(trace, assertion)
		case AssertCanceled:
			err = assertCanceled(trace, assertion)
		case AssertNotifyOrder:
			err = assertNotifyOrder(trace, assertion)
		case AssertFinalValue:
			if actx == nil || actx.State == nil {
				err = fmt.Errorf("assertion[%d]: final_value requires a state", i)
			} else {
				err = assertFinalValue(actx.State, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
