package usecase

import (
	"context"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Outbox struct {
	repo repository.OutboxRepository
	log  *logrus.Logger
}

var _ service.OutboxService = (*Outbox)(nil)

func NewOutbox(repo repository.OutboxRepository, log *logrus.Logger) *Outbox {
	return &Outbox{repo: repo, log: log}
}

func (o *Outbox) List(ctx context.Context, tenantID *uuid.UUID, status string, limit int) ([]entity.OutboxEvent, error) {
	return o.repo.List(ctx, tenantID, status, limit)
}

func (o *Outbox) Retry(ctx context.Context, tenantID *uuid.UUID, includeDeadLetter bool, limit int) (int64, error) {
	reset, err := o.repo.Retry(ctx, tenantID, includeDeadLetter, limit)
	if err != nil {
		o.log.WithError(err).Error("retry outbox events failed")
		return 0, err
	}
	return reset, nil
}

func (o *Outbox) Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThanHours int) (int64, error) {
	if olderThanHours == 0 {
		olderThanHours = 168
	}
	if olderThanHours < 1 {
		olderThanHours = 1
	}
	deleted, err := o.repo.Cleanup(ctx, tenantID, time.Duration(olderThanHours)*time.Hour)
	if err != nil {
		o.log.WithError(err).Error("cleanup outbox failed")
		return 0, err
	}
	return deleted, nil
}

func (o *Outbox) Health(ctx context.Context, tenantID *uuid.UUID) (repository.OutboxHealth, error) {
	return o.repo.Health(ctx, tenantID)
}
