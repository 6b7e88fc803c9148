// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite.
// ABOUTME: Provides run/run-log persistence with automatic schema creation.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// defaultListLimit bounds ListRuns and GetRunLogs when callers pass <= 0.
const defaultListLimit = 50

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The schema
// is automatically created if it doesn't exist. Parent directories are
// created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// createSchema creates the runs and run_logs tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		agent_key   TEXT NOT NULL,
		task_title  TEXT NOT NULL DEFAULT '',
		confidence  REAL NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT 'running',
		details     TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_agent_key ON runs(agent_key, created_at);

	CREATE TABLE IF NOT EXISTS run_logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		message    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_logs_run_id ON run_logs(run_id, id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	status := run.Status
	if status == "" {
		status = RunStatusRunning
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, agent_key, task_title, confidence, status, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.AgentKey, run.TaskTitle, run.Confidence, status, run.Details, createdAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateRun
		}
		return fmt.Errorf("inserting run: %w", err)
	}

	s.logger.Debug("run created", "run_id", run.ID, "agent", run.AgentKey)
	return nil
}

// AppendRunLog adds a log line to an existing run.
func (s *SQLiteStore) AppendRunLog(ctx context.Context, runID, message string) error {
	if err := s.runExists(ctx, runID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs (run_id, message, created_at) VALUES (?, ?, ?)`,
		runID, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting run log: %w", err)
	}
	return nil
}

// FinishRun marks a run as completed or failed.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status, details string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, details = ?, finished_at = ? WHERE id = ?`,
		status, details, time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("run finished", "run_id", runID, "status", status)
	return nil
}

// GetRun fetches a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent_key, task_title, confidence, status, details, created_at, finished_at
		 FROM runs WHERE id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, agentKey string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, agent_key, task_title, confidence, status, details, created_at, finished_at
		 FROM runs`
	args := []any{}
	if agentKey != "" {
		query += ` WHERE agent_key = ?`
		args = append(args, agentKey)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunLogs returns a run's log lines in append order.
func (s *SQLiteStore) GetRunLogs(ctx context.Context, runID string, limit int) ([]*RunLogLine, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, message, created_at FROM run_logs
		 WHERE run_id = ? ORDER BY id ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run logs: %w", err)
	}
	defer rows.Close()

	var lines []*RunLogLine
	for rows.Next() {
		var line RunLogLine
		if err := rows.Scan(&line.ID, &line.RunID, &line.Message, &line.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run log: %w", err)
		}
		lines = append(lines, &line)
	}
	return lines, rows.Err()
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runExists returns ErrNotFound when the run ID is absent.
func (s *SQLiteStore) runExists(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanRun.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one run row.
func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var finishedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.AgentKey, &run.TaskTitle, &run.Confidence,
		&run.Status, &run.Details, &run.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}
