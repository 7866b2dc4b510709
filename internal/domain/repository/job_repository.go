package repository

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobHealth is the scheduler backlog summary consumed by alerting.
type JobHealth struct {
	TenantID               *uuid.UUID `json:"tenant_id"`
	CheckedAt              time.Time  `json:"checked_at"`
	Queued                 int64      `json:"queued_count"`
	Running                int64      `json:"running_count"`
	Succeeded              int64      `json:"succeeded_count"`
	DeadLetter             int64      `json:"dead_letter_count"`
	DueQueued              int64      `json:"due_queued_count"`
	StaleRunning           int64      `json:"stale_running_count"`
	OldestQueuedAgeSeconds int64      `json:"oldest_queued_age_seconds"`
}

// JobFilter narrows List results; zero values mean "any".
type JobFilter struct {
	TenantID *uuid.UUID
	Queue    string
	Status   string
	Limit    int
}

type JobRepository interface {
	Enqueue(ctx context.Context, job *entity.BackgroundJob) error
	// Claim atomically transitions up to limit due queued jobs to running for
	// workerID, incrementing attempts. FIFO within eligibility: ordered by
	// (run_after, created_at, id). Concurrent workers never claim the same row.
	Claim(ctx context.Context, workerID, queue string, limit int) ([]entity.BackgroundJob, error)
	// Complete marks a running job succeeded and stores its result.
	Complete(ctx context.Context, id uuid.UUID, result datatypes.JSON) error
	// Fail records the error and either re-queues the job with exponential
	// backoff or dead-letters it once attempts reached max_attempts.
	Fail(ctx context.Context, id uuid.UUID, errMsg string) (entity.BackgroundJob, error)
	// RetryDeadLetter resets a dead_letter job to queued with attempts zeroed.
	RetryDeadLetter(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error)
	// Cancel moves a queued job to canceled; any other status is rejected.
	Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error)
	// Cleanup deletes terminal jobs in the given statuses past the cutoff.
	// Statuses defaults to {succeeded, dead_letter, canceled}.
	Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThan time.Duration, statuses []string) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (entity.BackgroundJob, error)
	List(ctx context.Context, filter JobFilter) ([]entity.BackgroundJob, error)
	Health(ctx context.Context, tenantID *uuid.UUID, staleRunningAfter time.Duration) (JobHealth, error)
}
