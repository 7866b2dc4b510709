package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/bookline/ballast/internal/infra/pagination"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type Booking struct {
	store    repository.Store
	bookings repository.BookingRepository
	outbox   repository.OutboxRepository
	sync     service.SyncService
	log      *logrus.Logger
}

var _ service.BookingService = (*Booking)(nil)

func NewBooking(store repository.Store, bookings repository.BookingRepository, outbox repository.OutboxRepository, sync service.SyncService, log *logrus.Logger) *Booking {
	return &Booking{store: store, bookings: bookings, outbox: outbox, sync: sync, log: log}
}

// Create persists the booking and appends its outbox events in one
// transaction: booking.created always, invoice.create_requested when the
// booking carries a price.
func (b *Booking) Create(ctx context.Context, tenantID uuid.UUID, clientName string, startsAt time.Time, durationMinutes int, price float64) (entity.Booking, error) {
	var booking entity.Booking
	err := b.store.WithTx(ctx, func(txCtx context.Context) error {
		booking = entity.Booking{
			TenantID:        tenantID,
			ClientName:      strings.TrimSpace(clientName),
			StartsAt:        startsAt.UTC(),
			DurationMinutes: durationMinutes,
			Price:           price,
			Status:          entity.BookingStatusConfirmed,
		}
		if err := b.bookings.Insert(txCtx, &booking); err != nil {
			return err
		}
		if err := b.appendEvent(txCtx, "booking.created", booking); err != nil {
			return err
		}
		if booking.Price > 0 {
			return b.appendEvent(txCtx, "invoice.create_requested", booking)
		}
		return nil
	})
	if err != nil {
		b.log.WithError(err).Error("create booking failed")
		return entity.Booking{}, err
	}
	return booking, nil
}

// Cancel flips the booking, appends booking.canceled and schedules an
// outbound calendar sync, all in the same transaction. A tenant without an
// enabled calendar connection still cancels; the sync is simply skipped.
func (b *Booking) Cancel(ctx context.Context, tenantID, id uuid.UUID) (entity.Booking, error) {
	var booking entity.Booking
	err := b.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := b.bookings.SetStatus(txCtx, tenantID, id, entity.BookingStatusConfirmed, entity.BookingStatusCanceled); err != nil {
			return err
		}
		canceled, err := b.bookings.GetByID(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		booking = canceled

		if err := b.appendEvent(txCtx, "booking.canceled", booking); err != nil {
			return err
		}
		return b.enqueueCancelSync(txCtx, booking)
	})
	if err != nil {
		b.log.WithError(err).Warn("cancel booking failed")
		return entity.Booking{}, err
	}
	return booking, nil
}

func (b *Booking) List(ctx context.Context, tenantID uuid.UUID, limit int, cursor string) ([]entity.Booking, string, error) {
	bookings, err := b.bookings.ListCursor(ctx, tenantID, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if len(bookings) > 0 && (limit <= 0 || len(bookings) == limit) {
		last := bookings[len(bookings)-1]
		nextCursor = pagination.Encode(last.CreatedAt, last.ID)
	}
	return bookings, nextCursor, nil
}

func (b *Booking) appendEvent(ctx context.Context, topic string, booking entity.Booking) error {
	payload, err := json.Marshal(booking)
	if err != nil {
		return err
	}
	tenantID := booking.TenantID
	event := entity.OutboxEvent{
		TenantID:     &tenantID,
		Topic:        topic,
		PartitionKey: booking.ID.String(),
		Payload:      datatypes.JSON(payload),
	}
	return b.outbox.Append(ctx, &event)
}

func (b *Booking) enqueueCancelSync(ctx context.Context, booking entity.Booking) error {
	conns, err := b.sync.ListConnections(ctx, booking.TenantID, "")
	if err != nil {
		return err
	}
	for _, conn := range conns {
		if !conn.Enabled {
			continue
		}
		payload := map[string]any{
			"booking_id": booking.ID,
			"status":     booking.Status,
			"starts_at":  booking.StartsAt,
		}
		bookingID := booking.ID
		if _, err := b.sync.EnqueueInternal(ctx, booking.TenantID, conn.Provider, "booking_canceled", payload, &bookingID); err != nil {
			return err
		}
		return nil
	}
	return nil
}
