package repository

import (
	"context"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
)

type AlertRepository interface {
	// UpsertRoute creates or refreshes the route keyed by (tenant, channel, target).
	UpsertRoute(ctx context.Context, route *entity.AlertRoute) error
	ListRoutes(ctx context.Context, tenantID uuid.UUID, enabledOnly bool) ([]entity.AlertRoute, error)
}
