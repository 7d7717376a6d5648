package harness

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rstate/internal/reactive"
	"github.com/roach88/rstate/internal/store"
	"github.com/roach88/rstate/internal/value"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src), "testdata/scenarios")
	require.NoError(t, err)
	return s
}

func TestRun_GoldenScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/batched-flush.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.TraceHash, second.TraceHash)
	assert.Equal(t, first.StateHash, second.StateHash)
	assert.Equal(t, "test-run-default", first.RunID)
	assert.Len(t, first.TraceHash, 64)
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	scenario := mustParse(t, `
name: failing
description: every assertion here is wrong
state: {user: {name: John, age: 30}}
observers:
  - {kind: notify, path: user.name}
  - {kind: notify, path: user}
steps:
  - {set: user.name, value: Jane}
assertions:
  - {type: notified, path: user.age}
  - {type: notified, path: user.name, count: 2}
  - {type: not_notified, path: user}
  - {type: canceled, path: user.name}
  - {type: notify_order, paths: [user, user.name]}
  - {type: final_value, path: user.name, expect: John}
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "never notified")
	assert.Contains(t, result.Errors[1], "notified 1 time(s)")
	assert.Contains(t, result.Errors[2], "Assertion failed: not_notified")
	assert.Contains(t, result.Errors[3], "no canceled event")
	assert.Contains(t, result.Errors[4], "should be before")
	assert.Contains(t, result.Errors[5], "-want +got")
}

func TestRun_StepErrors(t *testing.T) {
	scenario := mustParse(t, `
name: step-errors
description: unexpected failures and missing expected failures both fail the run
state: {n: 1, items: [1]}
steps:
  - {call: n, method: push, args: {items: [1]}}
  - {set: n, value: 2, expect_error: FROZEN}
  - {call: items, method: sort, args: {order: sideways}}
assertions:
  - {type: final_value, path: n, expect: 2}
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "steps[0]")
	assert.Contains(t, result.Errors[0], "NOT_LIST")
	assert.Contains(t, result.Errors[1], `expected error containing "FROZEN", got none`)
	assert.Contains(t, result.Errors[2], "sideways")
}

func TestRun_ListMethods(t *testing.T) {
	tests := []struct {
		method string
		args   string
		want   []any
	}{
		{"push", "{items: [4, 5]}", []any{int64(1), int64(2), int64(3), int64(4), int64(5)}},
		{"pop", "{}", []any{int64(1), int64(2)}},
		{"shift", "{}", []any{int64(2), int64(3)}},
		{"unshift", "{items: [0]}", []any{int64(0), int64(1), int64(2), int64(3)}},
		{"splice", "{start: 0, delete_count: 2}", []any{int64(3)}},
		{"insertAt", "{index: 1, item: 9}", []any{int64(1), int64(9), int64(2), int64(3)}},
		{"removeAt", "{index: -1}", []any{int64(1), int64(2)}},
		{"reverse", "{}", []any{int64(3), int64(2), int64(1)}},
		{"sort", "{order: desc}", []any{int64(3), int64(2), int64(1)}},
		{"fill", "{value: 0, start: 1}", []any{int64(1), int64(0), int64(0)}},
		{"copyWithin", "{target: 0, start: 1, end: 2}", []any{int64(2), int64(2), int64(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			scenario := mustParse(t, `
name: `+tt.method+`
description: list method
state: {items: [1, 2, 3]}
steps:
  - {call: items, method: `+tt.method+`, args: `+tt.args+`}
assertions:
  - {type: not_notified, path: elsewhere}
`)
			result, err := Run(scenario)
			require.NoError(t, err)
			require.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, tt.want, value.ToGo(result.Final).(map[string]any)["items"])
		})
	}
}

func TestRun_ChangeEventsCarryCallArgs(t *testing.T) {
	scenario := mustParse(t, `
name: call-args
description: a change observer on a list sees the method and its arguments
state: {items: [1, 2, 3]}
observers:
  - {kind: change, path: items}
steps:
  - {call: items, method: splice, args: {start: 1, delete_count: 1, items: [99]}}
assertions:
  - {type: final_value, path: items, expect: [1, 99, 3]}
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)

	ev := result.Trace[0]
	assert.Equal(t, EventChange, ev.Type)
	assert.Equal(t, "call", ev.Op)
	assert.Equal(t, "splice", ev.Method)
	assert.Equal(t, []any{int64(1), int64(1), int64(99)}, value.ToGo(ev.Value))
}

func TestRun_Journal(t *testing.T) {
	j, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	scenario, err := LoadScenario("testdata/scenarios/observer-bubbling.yaml")
	require.NoError(t, err)

	result, err := Run(scenario, WithJournal(j), WithRunIDGenerator(store.UUIDv7Generator{}))
	require.NoError(t, err)
	assert.Len(t, result.RunID, 36)

	ctx := context.Background()
	run, err := j.ReadRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, "observer-bubbling", run.Scenario)
	assert.True(t, run.Passed)
	assert.Equal(t, result.StateHash, run.StateHash)
	assert.Equal(t, result.TraceHash, run.TraceHash)
	assert.Equal(t, len(result.Trace), run.EventCount)

	events, err := j.ReadEvents(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, events, len(result.Trace))
	for i, ev := range events {
		assert.Equal(t, result.Trace[i].Path, ev.Path)
		assert.Equal(t, value.ToGo(result.Trace[i].Value), value.ToGo(ev.Value))
	}
}

func TestRun_JournalKeepsFirstRecording(t *testing.T) {
	j, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	scenario, err := LoadScenario("testdata/scenarios/observer-bubbling.yaml")
	require.NoError(t, err)

	first, err := Run(scenario, WithJournal(j))
	require.NoError(t, err)
	_, err = Run(scenario, WithJournal(j))
	require.NoError(t, err)

	events, err := j.ReadEvents(context.Background(), first.RunID)
	require.NoError(t, err)
	assert.Len(t, events, len(first.Trace))
}

func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	scenario, err := LoadScenario("testdata/scenarios/cancel-and-replace.yaml")
	require.NoError(t, err)

	_, err = Run(scenario, WithMetrics(reactive.NewMetrics(reg)))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				got[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, got["rstate_mutations_total"])
	assert.Equal(t, 2.0, got["rstate_mutations_canceled_total"])
}

func TestRun_StateErrors(t *testing.T) {
	scenario := mustParse(t, `
name: scalar-root
description: the root must be a container
state: 5
steps:
  - {flush: true}
assertions:
  - {type: notified, path: x}
`)
	_, err := Run(scenario)
	require.Error(t, err)

	var se *reactive.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, reactive.ErrCodeNotContainer, se.Code)
}
