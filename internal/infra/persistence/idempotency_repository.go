package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdempotencyRepository struct {
	db *DB
}

func NewIdempotencyRepository(db *DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Find(ctx context.Context, tenantSlug, method, path, key string) (entity.IdempotencyRecord, error) {
	var rec entity.IdempotencyRecord
	err := r.db.Read(ctx).
		First(&rec, "tenant_slug = ? AND method = ? AND path = ? AND idempotency_key = ?", tenantSlug, method, path, key).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.IdempotencyRecord{}, repository.ErrNotFound
		}
		return entity.IdempotencyRecord{}, err
	}
	return rec, nil
}

// Create stores the record after the response was already sent, so a
// concurrent duplicate is resolved by keeping the first row.
func (r *IdempotencyRepository) Create(ctx context.Context, rec *entity.IdempotencyRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return r.db.Write(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).
		Error
}

func (r *IdempotencyRepository) Cleanup(ctx context.Context, tenantSlug string, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res := r.db.Write(ctx).
		Where("tenant_slug = ? AND created_at < ?", tenantSlug, cutoff).
		Delete(&entity.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

func (r *IdempotencyRepository) Stats(ctx context.Context, tenantSlug string) (repository.IdempotencyStats, error) {
	now := time.Now().UTC()
	stats := repository.IdempotencyStats{TenantSlug: tenantSlug, CheckedAt: now}

	err := r.db.Read(ctx).
		Model(&entity.IdempotencyRecord{}).
		Where("tenant_slug = ?", tenantSlug).
		Count(&stats.Records).
		Error
	if err != nil {
		return repository.IdempotencyStats{}, err
	}
	if stats.Records == 0 {
		return stats, nil
	}

	var oldest time.Time
	err = r.db.Read(ctx).
		Model(&entity.IdempotencyRecord{}).
		Select("MIN(created_at)").
		Where("tenant_slug = ?", tenantSlug).
		Scan(&oldest).
		Error
	if err != nil {
		return repository.IdempotencyStats{}, err
	}
	if age := int64(now.Sub(oldest).Seconds()); age > 0 {
		stats.OldestAgeSeconds = age
	}
	return stats, nil
}
