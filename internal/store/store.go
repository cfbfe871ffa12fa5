// Package store handles SQLite persistence of submission runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lpchscp/rhadron/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// Store wraps SQLite access for the submission ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			sample_csv TEXT NOT NULL,
			output_url TEXT NOT NULL,
			max_events INTEGER NOT NULL,
			dry_run INTEGER NOT NULL,
			job_count INTEGER NOT NULL DEFAULT 0,
			failed_jobs INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS jobs (
			run_id INTEGER NOT NULL,
			mass_point TEXT NOT NULL,
			events INTEGER NOT NULL,
			job_index INTEGER NOT NULL,
			jdl_path TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL,
			PRIMARY KEY (run_id, mass_point, job_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a new run and returns it with its row id. A UUID is assigned when empty.
func (s *Store) InsertRun(ctx context.Context, run model.SubmissionRun) (model.SubmissionRun, error) {
	if run.UUID == "" {
		run.UUID = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (uuid, started_at, sample_csv, output_url, max_events, dry_run, job_count, failed_jobs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.UUID,
		run.StartedAt.Format(time.RFC3339Nano),
		run.SampleCSV,
		run.OutputURL,
		run.MaxEvents,
		run.DryRun,
		run.JobCount,
		run.FailedJobs,
	)
	if err != nil {
		return run, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return run, err
	}
	run.ID = id
	return run, nil
}

// InsertJob records the outcome of one chunk.
func (s *Store) InsertJob(ctx context.Context, job model.SubmittedJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs (run_id, mass_point, events, job_index, jdl_path, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.RunID, job.MassPoint, job.Events, job.Index, job.JDLPath, string(job.Status), job.Error)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// FinishRun stores the final job counts of a run.
func (s *Store) FinishRun(ctx context.Context, runID int64, jobCount, failedJobs int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET job_count = ?, failed_jobs = ? WHERE id = ?`, jobCount, failedJobs, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	return nil
}

// AbortRun marks a run that stopped before its jobs were handled.
func (s *Store) AbortRun(ctx context.Context, runID int64, reason string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET error = ? WHERE id = ?`, reason, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs in chronological order. last <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, last int) ([]model.SubmissionRun, error) {
	limit := last
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uuid, started_at, sample_csv, output_url, max_events, dry_run, job_count, failed_jobs, error
		 FROM (SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)
		 ORDER BY started_at ASC, id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.SubmissionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun looks up a run by its UUID.
func (s *Store) GetRun(ctx context.Context, id string) (model.SubmissionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, uuid, started_at, sample_csv, output_url, max_events, dry_run, job_count, failed_jobs, error
		 FROM runs WHERE uuid = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SubmissionRun{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListJobs returns the jobs of a run ordered by mass point and index.
func (s *Store) ListJobs(ctx context.Context, runID int64) ([]model.SubmittedJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, mass_point, events, job_index, jdl_path, status, error
		 FROM jobs WHERE run_id = ?
		 ORDER BY mass_point ASC, job_index ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var jobs []model.SubmittedJob
	for rows.Next() {
		var job model.SubmittedJob
		var status string
		if err := rows.Scan(&job.RunID, &job.MassPoint, &job.Events, &job.Index, &job.JDLPath, &status, &job.Error); err != nil {
			return nil, err
		}
		job.Status = model.JobStatus(status)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.SubmissionRun, error) {
	var run model.SubmissionRun
	var startedAt string
	if err := row.Scan(&run.ID, &run.UUID, &startedAt, &run.SampleCSV, &run.OutputURL,
		&run.MaxEvents, &run.DryRun, &run.JobCount, &run.FailedJobs, &run.Error); err != nil {
		return run, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return run, err
	}
	run.StartedAt = parsed
	return run, nil
}
