package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a journal in a temp dir, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun returns a passing run with minimal required fields.
func createTestRun(id, scenario string) Run {
	return Run{
		ID:        id,
		Scenario:  scenario,
		StateHash: "test-hash",
		Passed:    true,
	}
}
