package persistence

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/google/uuid"
)

type OutboxRepository struct {
	db *DB
}

func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Append(ctx context.Context, event *entity.OutboxEvent) error {
	if event.Status == "" {
		event.Status = entity.OutboxStatusPending
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	return r.db.Write(ctx).Create(event).Error
}

// ClaimDispatchable locks the oldest dispatchable rows for the calling
// transaction. failed rows ride along with pending ones so a transient broker
// outage heals on the next pass without operator action.
func (r *OutboxRepository) ClaimDispatchable(ctx context.Context, limit int) ([]entity.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
SELECT id, tenant_id, topic, partition_key, payload, status, retries, last_error, published_at, created_at, updated_at
FROM outbox_events
WHERE status IN ('pending', 'failed')
ORDER BY created_at, id
LIMIT ?
FOR UPDATE SKIP LOCKED;
`

	var events []entity.OutboxEvent
	if err := r.db.Write(ctx).Raw(query, limit).Scan(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return r.db.Write(ctx).
		Exec(`UPDATE outbox_events SET status = 'published', published_at = NOW(), last_error = '', updated_at = NOW() WHERE id = ?`, id).
		Error
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, deadLetter bool) error {
	status := entity.OutboxStatusFailed
	if deadLetter {
		status = entity.OutboxStatusDeadLetter
	}
	return r.db.Write(ctx).
		Exec(`UPDATE outbox_events SET status = ?, retries = retries + 1, last_error = ?, updated_at = NOW() WHERE id = ?`,
			status, truncateError(errMsg, 500), id).
		Error
}

// Retry resets failed rows to pending. retries is left untouched so a row
// that keeps failing still converges on dead_letter.
func (r *OutboxRepository) Retry(ctx context.Context, tenantID *uuid.UUID, includeDeadLetter bool, limit int) (int64, error) {
	if limit <= 0 {
		limit = 100
	}
	statuses := []string{entity.OutboxStatusFailed}
	if includeDeadLetter {
		statuses = append(statuses, entity.OutboxStatusDeadLetter)
	}

	sub := r.db.Write(ctx).
		Model(&entity.OutboxEvent{}).
		Select("id").
		Where("status IN ?", statuses).
		Order("created_at").
		Limit(limit)
	if tenantID != nil {
		sub = sub.Where("tenant_id = ?", *tenantID)
	}

	res := r.db.Write(ctx).
		Model(&entity.OutboxEvent{}).
		Where("id IN (?)", sub).
		Updates(map[string]any{"status": entity.OutboxStatusPending, "last_error": ""})
	return res.RowsAffected, res.Error
}

func (r *OutboxRepository) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	query := r.db.Write(ctx).
		Where("status IN ?", []string{entity.OutboxStatusPublished, entity.OutboxStatusDeadLetter}).
		Where("updated_at < ?", cutoff)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	res := query.Delete(&entity.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func (r *OutboxRepository) List(ctx context.Context, tenantID *uuid.UUID, status string, limit int) ([]entity.OutboxEvent, error) {
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
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var events []entity.OutboxEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *OutboxRepository) Health(ctx context.Context, tenantID *uuid.UUID) (repository.OutboxHealth, error) {
	now := time.Now().UTC()
	health := repository.OutboxHealth{TenantID: tenantID, CheckedAt: now}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	countQuery := r.db.Read(ctx).
		Model(&entity.OutboxEvent{}).
		Select("status, COUNT(*) AS count").
		Group("status")
	if tenantID != nil {
		countQuery = countQuery.Where("tenant_id = ?", *tenantID)
	}
	if err := countQuery.Scan(&counts).Error; err != nil {
		return repository.OutboxHealth{}, err
	}
	for _, c := range counts {
		switch c.Status {
		case entity.OutboxStatusPending:
			health.Pending = c.Count
		case entity.OutboxStatusFailed:
			health.Failed = c.Count
		case entity.OutboxStatusDeadLetter:
			health.DeadLetter = c.Count
		case entity.OutboxStatusPublished:
			health.Published = c.Count
		}
	}

	if health.Pending > 0 {
		var oldest time.Time
		oldestQuery := r.db.Read(ctx).
			Model(&entity.OutboxEvent{}).
			Select("MIN(created_at)").
			Where("status = ?", entity.OutboxStatusPending)
		if tenantID != nil {
			oldestQuery = oldestQuery.Where("tenant_id = ?", *tenantID)
		}
		if err := oldestQuery.Scan(&oldest).Error; err != nil {
			return repository.OutboxHealth{}, err
		}
		if age := int64(now.Sub(oldest).Seconds()); age > 0 {
			health.OldestPendingAgeSeconds = age
		}
	}
	return health, nil
}

// truncateError caps stored error text without splitting a UTF-8 sequence.
func truncateError(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	msg = msg[:limit]
	for len(msg) > 0 && !utf8.ValidString(msg) {
		msg = msg[:len(msg)-1]
	}
	return msg
}
