package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/google/uuid"
)

type JobService interface {
	Enqueue(ctx context.Context, tenantID *uuid.UUID, queue, jobType string, payload json.RawMessage, maxAttempts int, runAfter *time.Time) (entity.BackgroundJob, error)
	Get(ctx context.Context, id uuid.UUID) (entity.BackgroundJob, error)
	List(ctx context.Context, filter repository.JobFilter) ([]entity.BackgroundJob, error)
	Retry(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error)
	Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error)
	Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThanHours int, statuses []string) (int64, error)
	Health(ctx context.Context, tenantID *uuid.UUID) (repository.JobHealth, error)
}
