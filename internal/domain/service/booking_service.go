package service

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
)

type BookingService interface {
	// Create persists the booking and its booking.created outbox event in one
	// transaction.
	Create(ctx context.Context, tenantID uuid.UUID, clientName string, startsAt time.Time, durationMinutes int, price float64) (entity.Booking, error)
	// Cancel transitions the booking, appends booking.canceled to the outbox
	// and schedules an outbound calendar sync, all in one transaction.
	Cancel(ctx context.Context, tenantID, id uuid.UUID) (entity.Booking, error)
	List(ctx context.Context, tenantID uuid.UUID, limit int, cursor string) ([]entity.Booking, string, error)
}
