package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/batched-flush.yaml")
	require.NoError(t, err)

	assert.Equal(t, "batched-flush", s.Name)
	assert.Equal(t, 50, s.FlushIntervalMS)
	assert.Len(t, s.Observers, 3)
	require.Len(t, s.Steps, 6)
	assert.Equal(t, "splice", s.Steps[0].Method)
	assert.Equal(t, map[string]any{"start": 1, "delete_count": 1, "items": []any{99}}, s.Steps[0].Args)
	assert.Equal(t, 1, s.Steps[3].Tick)
	assert.True(t, s.Steps[5].Flush)
}

func TestLoadScenario_ResolvesStateFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/cart-from-cue.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "states", "cart.cue"), s.statePath())
}

func TestLoadScenario_InvalidFiles(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"unknown-field.yaml", "field step not found"},
		{"two-actions.yaml", "exactly one of set, delete, call, tick, flush"},
		{"bad-args.yaml", "count"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "invalid", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Validation(t *testing.T) {
	const head = "name: n\ndescription: d\n"
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing name", "description: d\nstate: {}\nsteps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "name is required"},
		{"missing description", "name: n\nstate: {}\nsteps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "description is required"},
		{"no state", head + "steps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "state or state_file is required"},
		{"both states", head + "state: {}\nstate_file: x.json\nsteps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "mutually exclusive"},
		{"missing state file", head + "state_file: nowhere.json\nsteps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "state file not found"},
		{"negative interval", head + "state: {}\nflush_interval_ms: -1\nsteps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "flush_interval_ms"},
		{"bad observer kind", head + "state: {}\nobservers: [{kind: after, path: x}]\nsteps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "unknown observer kind"},
		{"cancel on notify", head + "state: {}\nobservers: [{kind: notify, path: x, cancel: true}]\nsteps: [{flush: true}]\nassertions: [{type: notified, path: x}]\n", "change observers only"},
		{"no steps", head + "state: {}\nassertions: [{type: notified, path: x}]\n", "steps list is required"},
		{"set without value", head + "state: {}\nsteps: [{set: x}]\nassertions: [{type: notified, path: x}]\n", "value is required for set"},
		{"unknown method", head + "state: {}\nsteps: [{call: x, method: shuffle}]\nassertions: [{type: notified, path: x}]\n", "unknown list method"},
		{"args without call", head + "state: {}\nsteps: [{flush: true, method: pop}]\nassertions: [{type: notified, path: x}]\n", "require call"},
		{"bad path", head + "state: {}\nsteps: [{delete: \"a[\"}]\nassertions: [{type: notified, path: x}]\n", "steps[0]"},
		{"no assertions", head + "state: {}\nsteps: [{flush: true}]\n", "assertions list is required"},
		{"unknown assertion", head + "state: {}\nsteps: [{flush: true}]\nassertions: [{type: eventually, path: x}]\n", "unknown assertion type"},
		{"count on canceled", head + "state: {}\nsteps: [{flush: true}]\nassertions: [{type: canceled, path: x, count: 1}]\n", "only valid for notified"},
		{"final_value without expect", head + "state: {}\nsteps: [{flush: true}]\nassertions: [{type: final_value, path: x}]\n", "expect is required"},
		{"empty order", head + "state: {}\nsteps: [{flush: true}]\nassertions: [{type: notify_order}]\n", "paths list is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
