package handlers

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/jobs"
)

type retentionPayload struct {
	TenantSlug       string `json:"tenant_slug"`
	IdempotencyHours int    `json:"idempotency_hours"`
	OutboxHours      int    `json:"outbox_hours"`
	JobsHours        int    `json:"jobs_hours"`
}

// retentionCleanup ages out pipeline state: stored idempotency responses,
// terminal outbox rows and finished jobs. Windows below one hour are raised
// to one so a typo cannot wipe fresh state.
func (d Deps) retentionCleanup(ctx context.Context, scope jobs.Scope, payload retentionPayload) (any, error) {
	idempotencyHours := clampHours(payload.IdempotencyHours, 24)
	outboxHours := clampHours(payload.OutboxHours, 168)
	jobsHours := clampHours(payload.JobsHours, 168)

	slug := payload.TenantSlug
	if slug == "" {
		slug = d.DefaultTenant
	}

	deletedRecords, err := d.Idempotency.Cleanup(ctx, slug, time.Duration(idempotencyHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	deletedEvents, err := d.Outbox.Cleanup(ctx, scope.Job.TenantID, time.Duration(outboxHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	deletedJobs, err := d.Jobs.Cleanup(ctx, scope.Job.TenantID, time.Duration(jobsHours)*time.Hour, nil)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"tenant_id":                   scope.Job.TenantID,
		"tenant_slug":                 slug,
		"deleted_idempotency_records": deletedRecords,
		"deleted_outbox_events":       deletedEvents,
		"deleted_jobs":                deletedJobs,
		"checked_at":                  time.Now().UTC(),
	}, nil
}

func clampHours(hours, fallback int) int {
	if hours == 0 {
		return fallback
	}
	if hours < 1 {
		return 1
	}
	return hours
}
