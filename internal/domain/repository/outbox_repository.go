package repository

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
)

// OutboxHealth is the dispatch backlog summary exposed to operators.
type OutboxHealth struct {
	TenantID                *uuid.UUID `json:"tenant_id"`
	CheckedAt               time.Time  `json:"checked_at"`
	Pending                 int64      `json:"pending_count"`
	Failed                  int64      `json:"failed_count"`
	DeadLetter              int64      `json:"dead_letter_count"`
	Published               int64      `json:"published_count"`
	OldestPendingAgeSeconds int64      `json:"oldest_pending_age_seconds"`
}

type OutboxRepository interface {
	// Append inserts a pending event. Callers invoke it inside the same
	// transaction as the mutation it documents (Store.WithTx context).
	Append(ctx context.Context, event *entity.OutboxEvent) error
	// ClaimDispatchable locks up to limit pending/failed rows oldest first for
	// the calling transaction. Rows locked by a concurrent dispatcher are
	// skipped.
	ClaimDispatchable(ctx context.Context, limit int) ([]entity.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	// MarkFailed increments retries and records the error; deadLetter moves the
	// row to its terminal state.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, deadLetter bool) error
	// Retry resets failed (and optionally dead_letter) rows back to pending.
	Retry(ctx context.Context, tenantID *uuid.UUID, includeDeadLetter bool, limit int) (int64, error)
	// Cleanup deletes terminal rows (published, dead_letter) past the cutoff.
	Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThan time.Duration) (int64, error)
	List(ctx context.Context, tenantID *uuid.UUID, status string, limit int) ([]entity.OutboxEvent, error)
	Health(ctx context.Context, tenantID *uuid.UUID) (OutboxHealth, error)
}
