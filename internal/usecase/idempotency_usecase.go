package usecase

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/sirupsen/logrus"
)

type Idempotency struct {
	repo repository.IdempotencyRepository
	log  *logrus.Logger
}

var _ service.IdempotencyService = (*Idempotency)(nil)

func NewIdempotency(repo repository.IdempotencyRepository, log *logrus.Logger) *Idempotency {
	return &Idempotency{repo: repo, log: log}
}

func (i *Idempotency) Cleanup(ctx context.Context, tenantSlug string, olderThanHours int) (int64, error) {
	if olderThanHours <= 0 {
		olderThanHours = 24
	}
	removed, err := i.repo.Cleanup(ctx, tenantSlug, time.Duration(olderThanHours)*time.Hour)
	if err != nil {
		i.log.WithError(err).Error("idempotency cleanup failed")
		return 0, err
	}
	if removed > 0 {
		i.log.WithFields(logrus.Fields{"tenant_slug": tenantSlug, "removed": removed}).Info("idempotency records cleaned")
	}
	return removed, nil
}

func (i *Idempotency) Health(ctx context.Context, tenantSlug string) (repository.IdempotencyStats, error) {
	return i.repo.Stats(ctx, tenantSlug)
}
