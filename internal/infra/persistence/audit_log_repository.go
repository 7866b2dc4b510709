package persistence

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLogRepository struct {
	db *DB
}

func NewAuditLogRepository(db *DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, eventType string, tenantID *uuid.UUID, payload []byte) error {
	log := entity.AuditLog{
		TenantID:  tenantID,
		EventType: eventType,
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now().UTC(),
	}
	return r.db.Write(ctx).Create(&log).Error
}
