package service

import (
	"context"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/google/uuid"
)

type OutboxService interface {
	List(ctx context.Context, tenantID *uuid.UUID, status string, limit int) ([]entity.OutboxEvent, error)
	Retry(ctx context.Context, tenantID *uuid.UUID, includeDeadLetter bool, limit int) (int64, error)
	Cleanup(ctx context.Context, tenantID *uuid.UUID, olderThanHours int) (int64, error)
	Health(ctx context.Context, tenantID *uuid.UUID) (repository.OutboxHealth, error)
}
