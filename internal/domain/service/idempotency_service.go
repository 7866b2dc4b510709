package service

import (
	"context"

	"github.com/bookline/ballast/internal/domain/repository"
)

type IdempotencyService interface {
	// Cleanup ages out stored responses for the tenant.
	Cleanup(ctx context.Context, tenantSlug string, olderThanHours int) (int64, error)
	Health(ctx context.Context, tenantSlug string) (repository.IdempotencyStats, error)
}
