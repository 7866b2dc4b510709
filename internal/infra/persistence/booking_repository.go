package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/infra/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingRepository struct {
	db *DB
}

func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Insert(ctx context.Context, booking *entity.Booking) error {
	if booking.Status == "" {
		booking.Status = entity.BookingStatusConfirmed
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	return r.db.Write(ctx).Create(booking).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (entity.Booking, error) {
	var booking entity.Booking
	err := r.db.Read(ctx).
		First(&booking, "id = ? AND tenant_id = ?", id, tenantID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.Booking{}, repository.ErrNotFound
		}
		return entity.Booking{}, err
	}
	return booking, nil
}

func (r *BookingRepository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to string) error {
	res := r.db.Write(ctx).
		Model(&entity.Booking{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, tenantID, id); err != nil {
			return err
		}
		return repository.ErrInvalidTransition
	}
	return nil
}

func (r *BookingRepository) ListCursor(ctx context.Context, tenantID uuid.UUID, limit int, cursor string) ([]entity.Booking, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Read(ctx).
		Where("tenant_id = ?", tenantID).
		Limit(limit).
		Order("created_at DESC").
		Order("id DESC")

	if cursor != "" {
		cursorTime, cursorID, err := pagination.Decode(cursor)
		if err != nil {
			if errors.Is(err, pagination.ErrInvalidCursor) {
				return nil, repository.ErrInvalidCursor
			}
			return nil, err
		}
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursorTime, cursorTime, cursorID)
	}

	var bookings []entity.Booking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) MonthlyTotals(ctx context.Context, tenantID uuid.UUID, year, month int) (repository.BookingTotals, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var row struct {
		Count   int64
		Revenue float64
	}
	err := r.db.Read(ctx).
		Model(&entity.Booking{}).
		Select("COUNT(*) AS count, COALESCE(SUM(price), 0) AS revenue").
		Where("tenant_id = ? AND starts_at >= ? AND starts_at < ?", tenantID, start, end).
		Scan(&row).
		Error
	if err != nil {
		return repository.BookingTotals{}, err
	}
	return repository.BookingTotals{
		TenantID: tenantID,
		Year:     year,
		Month:    month,
		Count:    row.Count,
		Revenue:  row.Revenue,
	}, nil
}
