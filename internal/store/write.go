package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run record. Uses ON CONFLICT(id) DO NOTHING, so
// writing the same run twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: empty run id")
	}
	failures, err := marshalFailures(run.Failures)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, state_hash, trace_hash, passed, failures)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.StateHash,
		run.TraceHash,
		run.Passed,
		failures,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvents appends events to a run in one transaction. Positions
// continue after the run's last stored event. The run must exist.
func (s *Store) WriteEvents(ctx context.Context, runID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var next int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(idx) + 1, 0) FROM events WHERE run_id = ?
	`, runID).Scan(&next); err != nil {
		return fmt.Errorf("write events: next index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (run_id, idx, seq, type, path, op, method, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		data, err := marshalValue(ev.Value)
		if err != nil {
			return fmt.Errorf("write events: event %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID,
			next+int64(i),
			ev.Seq,
			ev.Type,
			ev.Path,
			ev.Op,
			ev.Method,
			data,
		); err != nil {
			return fmt.Errorf("write events: event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}
