package service

import (
	"context"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/jobs"
	"github.com/google/uuid"
)

type AlertService interface {
	UpsertRoute(ctx context.Context, tenantID uuid.UUID, channel, target, minSeverity string, enabled bool) (entity.AlertRoute, error)
	ListRoutes(ctx context.Context, tenantID uuid.UUID) ([]entity.AlertRoute, error)
	// Dispatch evaluates job and outbox health and fans matching alerts out to
	// the tenant's enabled routes as alert_delivery jobs.
	Dispatch(ctx context.Context, tenantID uuid.UUID) (jobs.DispatchReport, error)
}
