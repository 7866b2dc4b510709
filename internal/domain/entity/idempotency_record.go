package entity

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord stores the response of the first successful execution of a
// mutating request. The (tenant_slug, method, path, idempotency_key) tuple is
// unique; rows are never updated, only created and aged out by cleanup.
type IdempotencyRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantSlug     string    `gorm:"not null;index;uniqueIndex:uq_idempotency_scope_key,priority:1" json:"tenant_slug"`
	Method         string    `gorm:"not null;uniqueIndex:uq_idempotency_scope_key,priority:2" json:"method"`
	Path           string    `gorm:"not null;uniqueIndex:uq_idempotency_scope_key,priority:3" json:"path"`
	IdempotencyKey string    `gorm:"not null;uniqueIndex:uq_idempotency_scope_key,priority:4" json:"idempotency_key"`
	RequestHash    string    `gorm:"not null;index" json:"request_hash"`
	StatusCode     int       `gorm:"not null" json:"status_code"`
	ContentType    string    `gorm:"" json:"content_type"`
	ResponseBody   []byte    `gorm:"type:bytea" json:"-"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}
