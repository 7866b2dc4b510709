package repository

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
)

// IdempotencyStats summarizes a tenant's stored idempotency records.
type IdempotencyStats struct {
	TenantSlug       string    `json:"tenant_slug"`
	CheckedAt        time.Time `json:"checked_at"`
	Records          int64     `json:"records_count"`
	OldestAgeSeconds int64     `json:"oldest_record_age_seconds"`
}

type IdempotencyRepository interface {
	// Find returns the stored record for the tuple, or ErrNotFound.
	Find(ctx context.Context, tenantSlug, method, path, key string) (entity.IdempotencyRecord, error)
	// Create inserts a record; a concurrent duplicate insert is not an error
	// for the caller (the store is best-effort).
	Create(ctx context.Context, rec *entity.IdempotencyRecord) error
	// Cleanup deletes records for the tenant older than the cutoff.
	Cleanup(ctx context.Context, tenantSlug string, olderThan time.Duration) (int64, error)
	Stats(ctx context.Context, tenantSlug string) (IdempotencyStats, error)
}
