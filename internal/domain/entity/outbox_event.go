package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	OutboxStatusPending    = "pending"
	OutboxStatusPublished  = "published"
	OutboxStatusFailed     = "failed"
	OutboxStatusDeadLetter = "dead_letter"
)

// OutboxEvent is a fact that must eventually reach an external consumer. It is
// appended in the same transaction as the business mutation it describes and
// published out-of-band by the dispatcher.
type OutboxEvent struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     *uuid.UUID     `gorm:"type:uuid;index" json:"tenant_id"`
	Topic        string         `gorm:"not null;index" json:"topic"`
	PartitionKey string         `gorm:"" json:"partition_key,omitempty"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status       string         `gorm:"not null;default:pending;index" json:"status"`
	Retries      int            `gorm:"not null;default:0" json:"retries"`
	LastError    string         `gorm:"size:500" json:"last_error,omitempty"`
	PublishedAt  *time.Time     `gorm:"" json:"published_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
