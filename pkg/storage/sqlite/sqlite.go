package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/axdrive/axdrive/pkg/workflow"
)

// ErrRunNotFound indicates the requested run id has no stored report.
var ErrRunNotFound = errors.New("sqlite: run not found")

// Store owns the SQLite run-history database for a profile.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = DELETE;",
		"PRAGMA synchronous = FULL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			state TEXT NOT NULL CHECK (state IN ('succeeded','failed')),
			failed_step TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			estimated INTEGER NOT NULL DEFAULT 0,
			extracted TEXT,
			error TEXT,
			PRIMARY KEY (run_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// SaveReport persists a finished run report and its step results.
func (s *Store) SaveReport(ctx context.Context, report *workflow.Report) error {
	if report == nil {
		return errors.New("nil report")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var failedStep sql.NullString
	if report.FailedStep != "" {
		failedStep = sql.NullString{String: report.FailedStep, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs(id, query, state, failed_step, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Query, string(report.State), failedStep,
		report.StartedAt.UnixMilli(), report.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for idx, step := range report.Steps {
		var extracted sql.NullString
		if step.Extracted != nil {
			raw, err := json.Marshal(step.Extracted)
			if err != nil {
				return fmt.Errorf("encode step %s: %w", step.StepName, err)
			}
			extracted = sql.NullString{String: string(raw), Valid: true}
		}
		var stepErr sql.NullString
		if step.Error != "" {
			stepErr = sql.NullString{String: step.Error, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_steps(run_id, idx, name, succeeded, estimated, extracted, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, idx, step.StepName, boolInt(step.Succeeded), boolInt(step.Estimated),
			extracted, stepErr)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", step.StepName, err)
		}
	}
	return tx.Commit()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID      string
	Query      string
	State      workflow.State
	FailedStep string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, state, failed_step, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			summary    RunSummary
			state      string
			failedStep sql.NullString
			started    int64
			finished   int64
		)
		if err := rows.Scan(&summary.RunID, &summary.Query, &state, &failedStep, &started, &finished); err != nil {
			return nil, err
		}
		summary.State = workflow.State(state)
		summary.FailedStep = failedStep.String
		summary.StartedAt = time.UnixMilli(started)
		summary.FinishedAt = time.UnixMilli(finished)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// LoadReport reconstructs a stored run report.
func (s *Store) LoadReport(ctx context.Context, runID string) (*workflow.Report, error) {
	var (
		report     workflow.Report
		state      string
		failedStep sql.NullString
		started    int64
		finished   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, state, failed_step, started_at, finished_at FROM runs WHERE id = ?`,
		runID).Scan(&report.RunID, &report.Query, &state, &failedStep, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	report.State = workflow.State(state)
	report.FailedStep = failedStep.String
	report.StartedAt = time.UnixMilli(started)
	report.FinishedAt = time.UnixMilli(finished)

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, succeeded, estimated, extracted, error
		 FROM run_steps WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			step      workflow.StepResult
			succeeded int
			estimated int
			extracted sql.NullString
			stepErr   sql.NullString
		)
		if err := rows.Scan(&step.StepName, &succeeded, &estimated, &extracted, &stepErr); err != nil {
			return nil, err
		}
		step.Succeeded = succeeded != 0
		step.Estimated = estimated != 0
		step.Error = stepErr.String
		if extracted.Valid {
			if err := json.Unmarshal([]byte(extracted.String), &step.Extracted); err != nil {
				return nil, fmt.Errorf("decode step %s: %w", step.StepName, err)
			}
		}
		report.Steps = append(report.Steps, step)
	}
	return &report, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
