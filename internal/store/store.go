// ABOUTME: Store interface and data types for dispatch run-log persistence.
// ABOUTME: Defines Run and RunLogLine records and the Store interface.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateRun is returned when creating a run whose ID already exists.
var ErrDuplicateRun = errors.New("run already exists")

// Run status constants.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run records one routed task: which agent was selected and with what
// confidence.
type Run struct {
	ID         string
	AgentKey   string
	TaskTitle  string
	Confidence float64
	Status     string // running, completed, failed
	Details    string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// RunLogLine is one appended log message belonging to a run.
type RunLogLine struct {
	ID        int64
	RunID     string
	Message   string
	CreatedAt time.Time
}

// Store persists routing runs and their log lines.
type Store interface {
	// CreateRun inserts a new run record. Returns ErrDuplicateRun when the
	// run ID is already present.
	CreateRun(ctx context.Context, run *Run) error

	// AppendRunLog adds a log line to an existing run. Returns ErrNotFound
	// when the run does not exist.
	AppendRunLog(ctx context.Context, runID, message string) error

	// FinishRun marks a run as completed or failed and stamps FinishedAt.
	// Returns ErrNotFound when the run does not exist.
	FinishRun(ctx context.Context, runID, status, details string) error

	// GetRun fetches a run by ID. Returns ErrNotFound when absent.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns the most recent runs, newest first, optionally
	// filtered by agent key. limit <= 0 selects a default page size.
	ListRuns(ctx context.Context, agentKey string, limit int) ([]*Run, error)

	// GetRunLogs returns a run's log lines in append order.
	GetRunLogs(ctx context.Context, runID string, limit int) ([]*RunLogLine, error)

	// Close releases database resources.
	Close() error
}
