package persistence

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type AlertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) UpsertRoute(ctx context.Context, route *entity.AlertRoute) error {
	now := time.Now().UTC()
	if route.CreatedAt.IsZero() {
		route.CreatedAt = now
	}
	route.UpdatedAt = now
	return r.db.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "channel"}, {Name: "target"}},
			DoUpdates: clause.AssignmentColumns([]string{"min_severity", "enabled", "updated_at"}),
		}).
		Create(route).
		Error
}

func (r *AlertRepository) ListRoutes(ctx context.Context, tenantID uuid.UUID, enabledOnly bool) ([]entity.AlertRoute, error) {
	query := r.db.Read(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Order("id")
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	var routes []entity.AlertRoute
	if err := query.Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}
