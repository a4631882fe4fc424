// Package jobs runs backup, restore, scan and dedup work as tracked jobs with
// observable state and logs.
package jobs

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"usbb-go/internal/usbb"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Done reports whether the status is terminal.
func (s Status) Done() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Func is a job body. Everything it logs through log is kept with the job.
type Func func(ctx context.Context, log usbb.Logger) error

// Job is a unit of work submitted to the Scheduler.
type Job struct {
	ID          string
	Name        string
	Description string

	// Context holds the job's parameters for display.
	Context json.RawMessage

	// Concurrent jobs start immediately instead of waiting for their turn.
	Concurrent bool

	Run Func
}

// State is the observable projection of a tracked job.
type State struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
	Status      Status          `json:"status,omitempty"`
	Active      bool            `json:"active"` // pending or running
	Error       string          `json:"error,omitempty"`
	ErrorCount  int             `json:"errorCount"`
	Completed   bool            `json:"completed"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	FinishedAt  *time.Time      `json:"finishedAt,omitempty"`

	// Deleted is set for ids that are no longer tracked.
	Deleted bool `json:"deleted,omitempty"`
}

// LogEntry is one line of a job's log. Index counts from 1 within a job.
type LogEntry struct {
	Index   int             `json:"index"`
	Time    time.Time       `json:"time"`
	Level   string          `json:"level"`
	Message string          `json:"message"`
	Context json.RawMessage `json:"context,omitempty"`
}
