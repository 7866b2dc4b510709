package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCanceled  = "canceled"
)

// Booking is the business mutation the pipeline wraps: creating one appends a
// booking.created outbox row in the same transaction, canceling one appends
// booking.canceled and schedules an outbound calendar sync.
type Booking struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID        uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ClientName      string    `gorm:"not null" json:"client_name"`
	StartsAt        time.Time `gorm:"not null;index" json:"starts_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Price           float64   `gorm:"not null" json:"price"`
	Status          string    `gorm:"not null;default:confirmed;index" json:"status"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}
