package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog is one consumed event, kept as an inspection trail of what left
// the outbox. TenantID comes from the message headers and is null for
// platform-wide events.
type AuditLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  *uuid.UUID     `gorm:"type:uuid;index"`
	EventType string         `gorm:"not null;index"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
