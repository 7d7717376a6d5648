package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rstate/internal/value"
)

func sampleEvents() []Event {
	return []Event{
		{Seq: 1, Type: "change", Path: "user.name", Op: "set", Value: value.String("Jane")},
		{Seq: 2, Type: "notify", Path: "user.name", Value: value.String("Jane")},
		{Seq: 2, Type: "notify", Path: "user", Value: value.MustFromGo(map[string]any{"name": "Jane", "age": 30})},
		{Seq: 3, Type: "canceled", Path: "items", Op: "call", Method: "pop"},
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", "bubbling")
	require.NoError(t, s.WriteRun(ctx, run))

	run.Scenario = "changed"
	require.NoError(t, s.WriteRun(ctx, run), "duplicate ids are ignored")

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "bubbling", got.Scenario)
	assert.True(t, got.Passed)
	assert.Empty(t, got.Failures)
}

func TestWriteRun_RejectsEmptyID(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.WriteRun(context.Background(), Run{Scenario: "x"}))
}

func TestWriteEvents_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "bubbling")))

	events := sampleEvents()
	require.NoError(t, s.WriteEvents(ctx, "run-1", events))

	got, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, len(events))

	for i, want := range events {
		assert.Equal(t, want.Seq, got[i].Seq)
		assert.Equal(t, want.Type, got[i].Type)
		assert.Equal(t, want.Path, got[i].Path)
		assert.Equal(t, want.Op, got[i].Op)
		assert.Equal(t, want.Method, got[i].Method)
		assert.Equal(t, value.ToGo(want.Value), value.ToGo(got[i].Value), "event %d value", i)
	}
}

func TestWriteEvents_AppendsAfterExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "s")))

	require.NoError(t, s.WriteEvents(ctx, "run-1", sampleEvents()[:2]))
	require.NoError(t, s.WriteEvents(ctx, "run-1", sampleEvents()[2:]))

	got, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	var types []string
	for _, ev := range got {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"change", "notify", "notify", "canceled"}, types)
}

func TestWriteEvents_UnknownRunFails(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteEvents(context.Background(), "missing", sampleEvents())
	assert.Error(t, err, "foreign key should reject events without a run")
}

func TestWriteEvents_InvalidTypeRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "s")))

	events := sampleEvents()
	events[3].Type = "bogus"
	require.Error(t, s.WriteEvents(ctx, "run-1", events))

	got, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got, "a failed batch leaves nothing behind")
}

func TestReadEvents_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)
	got, err := s.ReadEvents(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadEventsForPath(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, createTestRun("run-1", "s")))
	require.NoError(t, s.WriteEvents(ctx, "run-1", sampleEvents()))

	got, err := s.ReadEventsForPath(ctx, "run-1", "user.name")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "change", got[0].Type)
	assert.Equal(t, "notify", got[1].Type)
}

func TestReadRuns_OrderAndCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	gen := UUIDv7Generator{}
	first, second := gen.Generate(), gen.Generate()
	require.NoError(t, s.WriteRun(ctx, createTestRun(second, "b")))
	failed := createTestRun(first, "a")
	failed.Passed = false
	failed.Failures = []string{"notified user.age: expected 0 calls, got 1"}
	require.NoError(t, s.WriteRun(ctx, failed))
	require.NoError(t, s.WriteEvents(ctx, first, sampleEvents()))

	runs, err := s.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
	assert.Equal(t, 4, runs[0].EventCount)
	assert.Equal(t, 0, runs[1].EventCount)
	assert.False(t, runs[0].Passed)
	assert.Equal(t, failed.Failures, runs[0].Failures)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ReadRun(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, err = s.LatestRun(ctx)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	runs, err := s.ReadRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestMarshalValue(t *testing.T) {
	got, err := marshalValue(value.MustFromGo(map[string]any{"b": 1, "a": "<x>"}))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1}`, got)

	got, err = marshalValue(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", got)

	got, err = marshalValue(value.Absent{})
	require.NoError(t, err)
	assert.Equal(t, "null", got)

	v, err := unmarshalValue("")
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, v)

	_, err = unmarshalValue("{")
	assert.Error(t, err)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 ids sort by creation")
}
