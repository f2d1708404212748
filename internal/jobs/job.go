// Package jobs implements the Postgres-backed background job queue:
// SKIP LOCKED dequeue, priorities, retries with exponential backoff, a
// worker pool and the report-schedule ticker.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Job type names handled by the worker pool.
const (
	TypeNotificationFanout = "notification.fanout"
	TypeReportGenerate     = "report.generate"
	TypeVoiceTranscribe    = "voice.transcribe"
	TypeQuickBooksSync     = "quickbooks.sync"
)

// DefaultQueue is the single queue all Beamline jobs run on.
const DefaultQueue = "default"

// Status represents the current state of a job
type Status string

const (
	// StatusPending indicates the job is waiting to be processed
	StatusPending Status = "pending"
	// StatusRunning indicates the job is currently being processed
	StatusRunning Status = "running"
	// StatusCompleted indicates the job finished successfully
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job failed after all retries
	StatusFailed Status = "failed"
	// StatusCancelled indicates the job was cancelled
	StatusCancelled Status = "cancelled"
)

// Priority represents the priority level of a job
type Priority int

const (
	// PriorityLow is for non-urgent background tasks
	PriorityLow Priority = 0
	// PriorityNormal is the default priority
	PriorityNormal Priority = 50
	// PriorityHigh is for important tasks
	PriorityHigh Priority = 75
)

// Job represents a background job with all its metadata
type Job struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Queue       string         `db:"queue" json:"queue"`
	Type        string         `db:"type" json:"type"`
	Payload     map[string]any `db:"payload" json:"payload"`
	Status      Status         `db:"status" json:"status"`
	Priority    Priority       `db:"priority" json:"priority"`
	Attempts    int            `db:"attempts" json:"attempts"`
	MaxAttempts int            `db:"max_attempts" json:"max_attempts"`
	Error       *string        `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	RunAt       time.Time      `db:"run_at" json:"run_at"`
	StartedAt   *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	LockedBy    *string        `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt    *time.Time     `db:"locked_at" json:"locked_at,omitempty"`
}

// New creates a job with default values, ready to enqueue.
func New(jobType string, payload map[string]any) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.New(),
		Queue:       DefaultQueue,
		Type:        jobType,
		Payload:     payload,
		Status:      StatusPending,
		Priority:    PriorityNormal,
		Attempts:    0,
		MaxAttempts: 3,
		CreatedAt:   now,
		RunAt:       now,
	}
}

// IsRetryable reports whether the job has attempts left.
func (j *Job) IsRetryable() bool {
	return j.Attempts < j.MaxAttempts
}
