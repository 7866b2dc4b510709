package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SyncSourceInternal = "internal"
	SyncSourceExternal = "external"
)

const (
	SyncStatusPending = "pending"
	SyncStatusRunning = "running"
	SyncStatusSynced  = "synced"
	SyncStatusFailed  = "failed"
)

// CalendarSyncEvent mirrors outbox semantics for calendar traffic. Inbound
// webhooks are deduplicated on (tenant, provider, source=external,
// external_event_id, action); each created event also enqueues a
// calendar_sync_push job.
type CalendarSyncEvent struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Provider        string         `gorm:"not null;index" json:"provider"`
	Source          string         `gorm:"not null;default:internal;index" json:"source"`
	ExternalEventID string         `gorm:"index" json:"external_event_id,omitempty"`
	BookingID       *uuid.UUID     `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	Action          string         `gorm:"not null;index" json:"action"`
	Payload         datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status          string         `gorm:"not null;default:pending;index" json:"status"`
	Retries         int            `gorm:"not null;default:0" json:"retries"`
	LastError       string         `gorm:"size:500" json:"last_error,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (CalendarSyncEvent) TableName() string {
	return "calendar_sync_events"
}
