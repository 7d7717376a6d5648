package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `
	r.id, r.scenario, r.state_hash, r.trace_hash, r.passed, r.failures,
	(SELECT COUNT(*) FROM events e WHERE e.run_id = r.id)
`

// ReadRuns returns every run, oldest first. UUIDv7 ids sort by creation,
// so the order is ORDER BY id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		WHERE r.id = ?
	`, id)
	return scanRun(row)
}

// LatestRun returns the most recently created run.
// Returns sql.ErrNoRows if the journal is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		ORDER BY r.id COLLATE BINARY DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// ReadEvents returns a run's events in the order they were recorded.
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, type, path, op, method, value
		FROM events
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
}

// ReadEventsForPath returns the run's events recorded at one canonical path.
func (s *Store) ReadEventsForPath(ctx context.Context, runID, path string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, type, path, op, method, value
		FROM events
		WHERE run_id = ? AND path = ?
		ORDER BY idx ASC
	`, runID, path)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev   Event
			data string
		)
		if err := rows.Scan(&ev.Seq, &ev.Type, &ev.Path, &ev.Op, &ev.Method, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Value, err = unmarshalValue(data); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		failures string
	)
	err := row.Scan(&run.ID, &run.Scenario, &run.StateHash, &run.TraceHash, &run.Passed, &failures, &run.EventCount)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.Failures, err = unmarshalFailures(failures); err != nil {
		return Run{}, err
	}
	return run, nil
}
