package store

import (
	"context"
	"fmt"
	"time"
)

// BeginRun inserts a new run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, startedAt time.Time, casesDir, buildDir string) (string, error) {
	id := s.ids.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, cases_dir, build_dir)
		VALUES (?, ?, ?, ?)
	`, id, formatTime(startedAt), casesDir, buildDir)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordResult stores the outcome of one scenario.
// Uses ON CONFLICT DO NOTHING for idempotency: a (run_id, seq) pair is
// written at most once.
//
// Note: The run referenced by rec.RunID must exist (foreign key constraint).
func (s *Store) RecordResult(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results
		(run_id, seq, name, digest, pass, kind, message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.RunID,
		rec.Seq,
		rec.Name,
		rec.Digest,
		rec.Pass,
		rec.Kind,
		rec.Message,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record result %s: %w", rec.Name, err)
	}
	return nil
}

// FinishRun stamps the run's end time and totals computed from its
// recorded results.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?,
			passed = (SELECT COUNT(*) FROM results WHERE run_id = runs.id AND pass = 1),
			failed = (SELECT COUNT(*) FROM results WHERE run_id = runs.id AND pass = 0),
			total  = (SELECT COUNT(*) FROM results WHERE run_id = runs.id)
		WHERE id = ?
	`, formatTime(finishedAt), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}
