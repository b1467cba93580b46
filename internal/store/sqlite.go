package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS grading_runs (
    run_id        INTEGER PRIMARY KEY,
    session_id    TEXT NOT NULL,
    framework     TEXT NOT NULL,
    pattern       TEXT NOT NULL,
    status        TEXT NOT NULL,
    passed        INTEGER NOT NULL,
    total         INTEGER NOT NULL,
    error         TEXT NOT NULL DEFAULT '',
    learner_error TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL,
    created_at    DATETIME NOT NULL,
    finished_at   DATETIME
)`

const createRunsIndex = `
CREATE INDEX IF NOT EXISTS idx_grading_runs_exercise
    ON grading_runs (framework, pattern)`

const runColumns = `run_id, session_id, framework, pattern, status, passed, total,
	error, learner_error, duration_ms, created_at, finished_at`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	for _, stmt := range []struct{ name, sql string }{
		{"set WAL mode", "PRAGMA journal_mode=WAL"},
		{"set busy timeout", "PRAGMA busy_timeout = 5000"},
		{"create grading_runs table", createRunsTable},
		{"create grading_runs index", createRunsIndex},
	} {
		if _, err := db.Exec(stmt.sql); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", stmt.name, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts a finished run. Recording the same run twice keeps the
// latest copy.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *types.GradingRun) error {
	r := fromRun(run)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO grading_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.SessionID, string(r.Framework), r.Pattern, string(r.Status), r.Passed, r.Total,
		r.Error, r.LearnerError, r.DurationMS, r.CreatedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM grading_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first, along with the total count.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM grading_runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+runColumns+` FROM grading_runs ORDER BY run_id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}

// ExerciseDurations returns one sample per recorded run of an exercise.
func (s *SQLiteStore) ExerciseDurations(ctx context.Context, framework types.FrameworkID, pattern string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, passed, total, duration_ms FROM grading_runs
		WHERE framework = ? AND pattern = ? ORDER BY run_id`,
		string(framework), pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("query durations: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			sample Sample
			status string
		)
		if err := rows.Scan(&status, &sample.Passed, &sample.Total, &sample.DurationMS); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.Status = types.RunStatus(status)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r                 Run
		framework, status string
	)
	if err := row.Scan(
		&r.RunID, &r.SessionID, &framework, &r.Pattern, &status, &r.Passed, &r.Total,
		&r.Error, &r.LearnerError, &r.DurationMS, &r.CreatedAt, &r.FinishedAt,
	); err != nil {
		return nil, err
	}
	r.Framework = types.FrameworkID(framework)
	r.Status = types.RunStatus(status)
	return &r, nil
}
