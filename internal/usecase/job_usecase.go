package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type Job struct {
	repo               repository.JobRepository
	defaultMaxAttempts int
	staleRunningAfter  time.Duration
	log                *logrus.Logger
}

var _ service.JobService = (*Job)(nil)

func NewJob(repo repository.JobRepository, defaultMaxAttempts int, staleRunningAfter time.Duration, log *logrus.Logger) *Job {
	if defaultMaxAttempts <= 0 {
		defaultMaxAttempts = 5
	}
	if staleRunningAfter < time.Minute {
		staleRunningAfter = 15 * time.Minute
	}
	return &Job{repo: repo, defaultMaxAttempts: defaultMaxAttempts, staleRunningAfter: staleRunningAfter, log: log}
}

func (j *Job) Enqueue(ctx context.Context, tenantID *uuid.UUID, queue, jobType string, payload json.RawMessage, maxAttempts int, runAfter *time.Time) (entity.BackgroundJob, error) {
	queue = strings.TrimSpace(queue)
	if queue == "" {
		queue = entity.QueueDefault
	}
	if maxAttempts == 0 {
		maxAttempts = j.defaultMaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxAttempts > 20 {
		maxAttempts = 20
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	job := entity.BackgroundJob{
		TenantID:    tenantID,
		Queue:       queue,
		JobType:     strings.TrimSpace(jobType),
		Payload:     datatypes.JSON(payload),
		MaxAttempts: maxAttempts,
	}
	if runAfter != nil {
		job.RunAfter = runAfter.UTC()
	}
	if err := j.repo.Enqueue(ctx, &job); err != nil {
		j.log.WithError(err).Error("enqueue job failed")
		return entity.BackgroundJob{}, err
	}
	return job, nil
}

func (j *Job) Get(ctx context.Context, id uuid.UUID) (entity.BackgroundJob, error) {
	return j.repo.GetByID(ctx, id)
}

func (j *Job) List(ctx context.Context, filter repository.JobFilter) ([]entity.BackgroundJob, error) {
	return j.repo.List(ctx, filter)
}

func (j *Job) Retry(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	job, err := j.repo.RetryDeadLetter(ctx, tenantID, id)
	if err != nil {
		j.log.WithError(err).WithField("job_id", id).Warn("retry job failed")
		return entity.BackgroundJob{}, err
	}
	return job, nil
}

func (j *Job) Cancel(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (entity.BackgroundJob, error) {
	job, err := j.repo.Cancel(ctx, tenantID, id)
	if err != nil {
		j.log.WithError(err).WithField("job_id", id).Warn("cancel job failed")
		return entity.BackgroundJob{}, err
	}
	return job, nil
}

// Cleanup deletes terminal jobs past the retention window. Non-terminal
// status names are dropped so queued or running work can never be deleted.
func (j *Job) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThanHours int, statuses []string) (int64, error) {
	if olderThanHours == 0 {
		olderThanHours = 168
	}
	if olderThanHours < 1 {
		olderThanHours = 1
	}

	var filtered []string
	for _, s := range statuses {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case entity.JobStatusSucceeded:
			filtered = append(filtered, entity.JobStatusSucceeded)
		case entity.JobStatusDeadLetter:
			filtered = append(filtered, entity.JobStatusDeadLetter)
		case entity.JobStatusCanceled:
			filtered = append(filtered, entity.JobStatusCanceled)
		}
	}

	deleted, err := j.repo.Cleanup(ctx, tenantID, time.Duration(olderThanHours)*time.Hour, filtered)
	if err != nil {
		j.log.WithError(err).Error("cleanup jobs failed")
		return 0, err
	}
	return deleted, nil
}

func (j *Job) Health(ctx context.Context, tenantID *uuid.UUID) (repository.JobHealth, error) {
	return j.repo.Health(ctx, tenantID, j.staleRunningAfter)
}
