package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rstate/internal/value"
)

// goldenDir holds the fixtures compared by AssertGolden, relative to the
// calling test's package.
const goldenDir = "testdata/golden"

// Snapshot renders a trace as the canonical JSON stored in golden files:
//
//	{"scenario_name":..., "trace":[{"seq":..,"type":..,"path":..,"value":..}, ...]}
//
// op and method appear only on events that carry them. Equal traces give
// equal bytes.
func Snapshot(scenarioName string, trace []TraceEvent) ([]byte, error) {
	return value.MarshalCanonical(snapshotDoc(scenarioName, trace))
}

// TraceHash is the DomainScenario hash of the Snapshot document.
func TraceHash(scenarioName string, trace []TraceEvent) (string, error) {
	v, err := value.FromGo(snapshotDoc(scenarioName, trace))
	if err != nil {
		return "", err
	}
	return value.HashDomain(value.DomainScenario, v)
}

func snapshotDoc(scenarioName string, trace []TraceEvent) map[string]any {
	events := make([]any, 0, len(trace))
	for _, e := range trace {
		events = append(events, eventDoc(e))
	}
	return map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	}
}

func eventDoc(e TraceEvent) map[string]any {
	var v value.Value = value.Absent{}
	if e.Value != nil {
		v = e.Value
	}
	doc := map[string]any{
		"seq":   e.Seq,
		"type":  e.Type,
		"path":  e.Path,
		"value": v,
	}
	if e.Op != "" {
		doc["op"] = e.Op
	}
	if e.Method != "" {
		doc["method"] = e.Method
	}
	return doc
}

// RunWithGolden runs scenario and checks its trace against
// testdata/golden/<name>.golden. Regenerate fixtures with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()
	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden fails t when result's snapshot differs from the fixture
// named scenarioName. The error reports a trace that could not be rendered.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	got, err := Snapshot(scenarioName, result.Trace)
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, got)
	return nil
}
