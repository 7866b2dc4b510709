package repository

import (
	"context"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
)

// BookingTotals aggregates a tenant's bookings for one calendar month.
type BookingTotals struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	Count    int64     `json:"count"`
	Revenue  float64   `json:"revenue"`
}

type BookingRepository interface {
	Insert(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (entity.Booking, error)
	// SetStatus transitions the booking conditionally on its current status;
	// ErrInvalidTransition when the row is not in from.
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to string) error
	ListCursor(ctx context.Context, tenantID uuid.UUID, limit int, cursor string) ([]entity.Booking, error)
	MonthlyTotals(ctx context.Context, tenantID uuid.UUID, year, month int) (BookingTotals, error)
}
