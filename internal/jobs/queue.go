package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoJobs is returned by Dequeue when nothing is ready to run.
	ErrNoJobs = errors.New("no jobs available")

	// ErrJobNotFound is returned when a state change targets a missing job.
	ErrJobNotFound = errors.New("job not found")
)

const (
	enqueueSQL = `
		INSERT INTO jobs (
			id, queue, type, payload, status, priority,
			attempts, max_attempts, created_at, run_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	// The inner SELECT claims one ready job under SKIP LOCKED so
	// concurrent workers never double-claim.
	dequeueSQL = `
		UPDATE jobs
		SET status = $1, locked_by = $2, locked_at = $3, started_at = $4, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $5
				AND queue = $6
				AND run_at <= $7
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, queue, type, payload, status, priority, attempts, max_attempts,
		          error, created_at, run_at, started_at, completed_at, locked_by, locked_at`

	completeSQL = `
		UPDATE jobs
		SET status = $1, completed_at = $2, locked_by = NULL, locked_at = NULL
		WHERE id = $3`

	failSQL = `
		UPDATE jobs
		SET status = $1, error = $2, completed_at = $3, locked_by = NULL, locked_at = NULL
		WHERE id = $4`

	// Backoff doubles per attempt, capped at 2^10 minutes. The attempts
	// guard runs inside the UPDATE so a racing failer cannot over-retry.
	retrySQL = `
		WITH job_data AS (
			SELECT attempts, max_attempts FROM jobs WHERE id = $1
		)
		UPDATE jobs
		SET status = $2,
			run_at = $3 + (INTERVAL '1 minute' * (1 << LEAST(attempts - 1, 10))),
			locked_by = NULL,
			locked_at = NULL,
			error = NULL
		FROM job_data
		WHERE jobs.id = $1
		  AND job_data.attempts < job_data.max_attempts
		RETURNING attempts, max_attempts`

	cancelSQL = `
		UPDATE jobs
		SET status = $1, completed_at = $2, locked_by = NULL, locked_at = NULL
		WHERE id = $3 AND status IN ($4, $5)`
)

// Queue is the Postgres-backed job queue. Work for notification fanout,
// report generation, voice transcription and the QuickBooks sync all
// flows through it.
type Queue struct {
	db *sql.DB
}

func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue inserts a job in its current state.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.db.ExecContext(ctx, enqueueSQL,
		job.ID, job.Queue, job.Type, payloadJSON, job.Status, job.Priority,
		job.Attempts, job.MaxAttempts, job.CreatedAt, job.RunAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Schedule enqueues a job to run no earlier than runAt.
func (q *Queue) Schedule(ctx context.Context, job *Job, runAt time.Time) error {
	job.RunAt = runAt
	return q.Enqueue(ctx, job)
}

// Dequeue claims the next ready job on the queue for workerID, or returns
// ErrNoJobs.
func (q *Queue) Dequeue(ctx context.Context, workerID string, queueName string) (*Job, error) {
	now := time.Now()
	var job Job
	var payloadJSON []byte

	err := q.db.QueryRowContext(ctx, dequeueSQL,
		StatusRunning, workerID, now, now,
		StatusPending, queueName, now,
	).Scan(
		&job.ID, &job.Queue, &job.Type, &payloadJSON, &job.Status, &job.Priority,
		&job.Attempts, &job.MaxAttempts, &job.Error, &job.CreatedAt, &job.RunAt,
		&job.StartedAt, &job.CompletedAt, &job.LockedBy, &job.LockedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoJobs
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &job, nil
}

// Complete marks a job done and releases its lock.
func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID) error {
	result, err := q.db.ExecContext(ctx, completeSQL, StatusCompleted, time.Now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return oneRow(result, jobID)
}

// Fail records the error and releases the job's lock.
func (q *Queue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	result, err := q.db.ExecContext(ctx, failSQL, StatusFailed, errMsg, time.Now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return oneRow(result, jobID)
}

// Retry reschedules a failed job with exponential backoff, or errors when
// the job is missing or out of attempts.
func (q *Queue) Retry(ctx context.Context, jobID uuid.UUID) error {
	var attempts, maxAttempts int
	err := q.db.QueryRowContext(ctx, retrySQL, jobID, StatusPending, time.Now()).
		Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w or exceeded max attempts: %s", ErrJobNotFound, jobID)
	}
	return err
}

// Cancel stops a pending or running job. Finished jobs are left alone.
func (q *Queue) Cancel(ctx context.Context, jobID uuid.UUID) error {
	result, err := q.db.ExecContext(ctx, cancelSQL,
		StatusCancelled, time.Now(), jobID, StatusPending, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	return oneRow(result, jobID)
}

func oneRow(result sql.Result, jobID uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return nil
}
