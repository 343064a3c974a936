package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var t0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	var opts []Option
	if len(ids) > 0 {
		opts = append(opts, WithIDGenerator(NewFixedGenerator(ids...)))
	}
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// recordRun writes a finished run whose results pass or fail per outcomes,
// keyed by scenario name.
func recordRun(t *testing.T, s *Store, started time.Time, outcomes map[string]bool, order ...string) string {
	t.Helper()
	ctx := context.Background()

	id, err := s.BeginRun(ctx, started, "cases", "../build")
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	for i, name := range order {
		rec := Record{RunID: id, Seq: int64(i + 1), Name: name, Pass: outcomes[name], Duration: 15 * time.Millisecond}
		if !rec.Pass {
			rec.Kind = "mismatch"
			rec.Message = "output: content mismatch"
		}
		if err := s.RecordResult(ctx, rec); err != nil {
			t.Fatalf("RecordResult(%s) failed: %v", name, err)
		}
	}
	if err := s.FinishRun(ctx, id, started.Add(time.Second)); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}
	return id
}
