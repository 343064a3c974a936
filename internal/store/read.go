package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, cases_dir, build_dir, passed, failed, total
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
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

// GetRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, cases_dir, build_dir, passed, failed, total
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// RunResults returns the results of a run in discovery order.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) RunResults(ctx context.Context, runID string) ([]Record, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, name, digest, pass, kind, message, duration_ms
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return records, nil
}

// LastStatus returns the named scenario's result from the most recent
// finished run that included it.
// Returns sql.ErrNoRows if the scenario was never recorded.
func (s *Store) LastStatus(ctx context.Context, name string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.run_id, r.seq, r.name, r.digest, r.pass, r.kind, r.message, r.duration_ms
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE r.name = ? AND runs.finished_at IS NOT NULL
		ORDER BY runs.started_at DESC, runs.id COLLATE BINARY DESC
		LIMIT 1
	`, name)
	return scanRecord(row)
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	err := row.Scan(&run.ID, &started, &finished, &run.CasesDir, &run.BuildDir, &run.Passed, &run.Failed, &run.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("run %s: started_at: %w", run.ID, err)
	}
	if finished.Valid {
		if run.FinishedAt, err = parseTime(finished.String); err != nil {
			return Run{}, fmt.Errorf("run %s: finished_at: %w", run.ID, err)
		}
	}
	return run, nil
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec Record
		ms  int64
	)
	err := row.Scan(&rec.RunID, &rec.Seq, &rec.Name, &rec.Digest, &rec.Pass, &rec.Kind, &rec.Message, &ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan result: %w", err)
	}
	rec.Duration = time.Duration(ms) * time.Millisecond
	return rec, nil
}
