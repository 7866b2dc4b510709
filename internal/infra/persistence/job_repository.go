package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/jobs"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Enqueue(ctx context.Context, job *entity.BackgroundJob) error {
	if job.Queue == "" {
		job.Queue = entity.QueueDefault
	}
	if job.Status == "" {
		job.Status = entity.JobStatusQueued
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 5
	}
	now := time.Now().UTC()
	if job.RunAfter.IsZero() {
		job.RunAfter = now
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return r.db.Write(ctx).Create(job).Error
}

// Claim selects due queued rows and flips them to running in a single
// statement. SKIP LOCKED keeps concurrent workers from ever sharing a row;
// attempts is incremented here so a crash after claim still counts the try.
func (r *JobRepository) Claim(ctx context.Context, workerID, queue string, limit int) ([]entity.BackgroundJob, error) {
	workerID = strings.TrimSpace(workerID)
	if len(workerID) > 80 {
		workerID = workerID[:80]
	}
	if workerID == "" {
		workerID = "worker"
	}
	if queue == "" {
		queue = entity.QueueDefault
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
WITH cte AS (
    SELECT id
    FROM background_jobs
    WHERE status = 'queued'
      AND queue = ?
      AND run_after <= NOW()
    ORDER BY run_after, created_at, id
    LIMIT ?
    FOR UPDATE SKIP LOCKED
)
UPDATE background_jobs
SET status = 'running', worker_id = ?, attempts = attempts + 1, updated_at = NOW()
WHERE id IN (SELECT id FROM cte)
RETURNING id, tenant_id, queue, job_type, payload, status, attempts, max_attempts, run_after, worker_id, last_error, result, finished_at, created_at, updated_at;
`

	var claimed []entity.BackgroundJob
	if err := r.db.Write(ctx).Raw(query, queue, limit, workerID).Scan(&claimed).Error; err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *JobRepository) Complete(ctx context.Context, id uuid.UUID, result datatypes.JSON) error {
	return r.db.Write(ctx).
		Exec(`UPDATE background_jobs SET status = 'succeeded', result = ?, finished_at = NOW(), updated_at = NOW() WHERE id = ?`, result, id).
		Error
}

func (r *JobRepository) Fail(ctx context.Context, id uuid.UUID, errMsg string) (entity.BackgroundJob, error) {
	errMsg = strings.TrimSpace(errMsg)
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	errMsg = truncateError(errMsg, 500)

	var job entity.BackgroundJob
	if err := r.db.Write(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.BackgroundJob{}, repository.ErrNotFound
		}
		return entity.BackgroundJob{}, err
	}

	now := time.Now().UTC()
	updates := map[string]any{"last_error": errMsg}
	if job.Attempts >= job.MaxAttempts {
		updates["status"] = entity.JobStatusDeadLetter
		updates["finished_at"] = now
	} else {
		updates["status"] = entity.JobStatusQueued
		updates["run_after"] = now.Add(jobs.Backoff(job.Attempts))
	}
	if err := r.db.Write(ctx).Model(&entity.BackgroundJob{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return entity.BackgroundJob{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *JobRepository) RetryDeadLetter(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	query := r.db.Write(ctx).
		Model(&entity.BackgroundJob{}).
		Where("id = ? AND status = ?", id, entity.JobStatusDeadLetter)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	res := query.Updates(map[string]any{
		"status":      entity.JobStatusQueued,
		"attempts":    0,
		"last_error":  "",
		"result":      nil,
		"finished_at": nil,
		"worker_id":   "",
		"run_after":   time.Now().UTC(),
	})
	if res.Error != nil {
		return entity.BackgroundJob{}, res.Error
	}
	if res.RowsAffected == 0 {
		return entity.BackgroundJob{}, r.transitionError(ctx, tenantID, id)
	}
	return r.GetByID(ctx, id)
}

func (r *JobRepository) Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	query := r.db.Write(ctx).
		Model(&entity.BackgroundJob{}).
		Where("id = ? AND status = ?", id, entity.JobStatusQueued)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	res := query.Updates(map[string]any{
		"status":      entity.JobStatusCanceled,
		"last_error":  "Canceled by operator",
		"finished_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return entity.BackgroundJob{}, res.Error
	}
	if res.RowsAffected == 0 {
		return entity.BackgroundJob{}, r.transitionError(ctx, tenantID, id)
	}
	return r.GetByID(ctx, id)
}

// transitionError distinguishes "row not visible to this tenant" from "row in
// the wrong status" after a conditional update touched nothing.
func (r *JobRepository) transitionError(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) error {
	check := r.db.Read(ctx)
	if tenantID != nil {
		check = check.Where("tenant_id = ?", *tenantID)
	}
	var existing entity.BackgroundJob
	if err := check.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrNotFound
		}
		return err
	}
	return repository.ErrInvalidTransition
}

func (r *JobRepository) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThan time.Duration, statuses []string) (int64, error) {
	if len(statuses) == 0 {
		statuses = []string{entity.JobStatusSucceeded, entity.JobStatusDeadLetter, entity.JobStatusCanceled}
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	query := r.db.Write(ctx).
		Where("status IN ?", statuses).
		Where("updated_at < ?", cutoff)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	res := query.Delete(&entity.BackgroundJob{})
	return res.RowsAffected, res.Error
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.BackgroundJob, error) {
	var job entity.BackgroundJob
	if err := r.db.Read(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.BackgroundJob{}, repository.ErrNotFound
		}
		return entity.BackgroundJob{}, err
	}
	return job, nil
}

func (r *JobRepository) List(ctx context.Context, filter repository.JobFilter) ([]entity.BackgroundJob, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	query := r.db.Read(ctx).
		Limit(limit).
		Order("created_at DESC").
		Order("id DESC")
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Queue != "" {
		query = query.Where("queue = ?", filter.Queue)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var rows []entity.BackgroundJob
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *JobRepository) Health(ctx context.Context, tenantID *uuid.UUID, staleRunningAfter time.Duration) (repository.JobHealth, error) {
	if staleRunningAfter <= 0 {
		staleRunningAfter = 15 * time.Minute
	}
	now := time.Now().UTC()
	health := repository.JobHealth{TenantID: tenantID, CheckedAt: now}

	scoped := func() *gorm.DB {
		q := r.db.Read(ctx).Model(&entity.BackgroundJob{})
		if tenantID != nil {
			q = q.Where("tenant_id = ?", *tenantID)
		}
		return q
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := scoped().Select("status, COUNT(*) AS count").Group("status").Scan(&counts).Error; err != nil {
		return repository.JobHealth{}, err
	}
	for _, c := range counts {
		switch c.Status {
		case entity.JobStatusQueued:
			health.Queued = c.Count
		case entity.JobStatusRunning:
			health.Running = c.Count
		case entity.JobStatusSucceeded:
			health.Succeeded = c.Count
		case entity.JobStatusDeadLetter:
			health.DeadLetter = c.Count
		}
	}

	if err := scoped().Where("status = ? AND run_after <= ?", entity.JobStatusQueued, now).Count(&health.DueQueued).Error; err != nil {
		return repository.JobHealth{}, err
	}
	staleCutoff := now.Add(-staleRunningAfter)
	if err := scoped().Where("status = ? AND updated_at <= ?", entity.JobStatusRunning, staleCutoff).Count(&health.StaleRunning).Error; err != nil {
		return repository.JobHealth{}, err
	}

	if health.Queued > 0 {
		var oldest time.Time
		if err := scoped().Select("MIN(run_after)").Where("status = ?", entity.JobStatusQueued).Scan(&oldest).Error; err != nil {
			return repository.JobHealth{}, err
		}
		if age := int64(now.Sub(oldest).Seconds()); age > 0 {
			health.OldestQueuedAgeSeconds = age
		}
	}
	return health, nil
}
