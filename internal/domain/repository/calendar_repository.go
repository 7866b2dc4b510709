package repository

import (
	"context"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
)

type CalendarRepository interface {
	UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) error
	ListConnections(ctx context.Context, tenantID uuid.UUID, provider string) ([]entity.CalendarConnection, error)
	// FindEnabledConnection returns the first enabled connection for the
	// provider across tenants; the connection decides which tenant an inbound
	// webhook belongs to. ErrProviderNotConfigured when none exists.
	FindEnabledConnection(ctx context.Context, provider string) (entity.CalendarConnection, error)
	// FindTenantConnection scopes the lookup to one tenant, enabled only.
	FindTenantConnection(ctx context.Context, tenantID uuid.UUID, provider string) (entity.CalendarConnection, error)

	CreateSyncEvent(ctx context.Context, event *entity.CalendarSyncEvent) error
	GetSyncEvent(ctx context.Context, tenantID, id uuid.UUID) (entity.CalendarSyncEvent, error)
	// FindExternalEvent is the inbound dedup lookup; ErrNotFound on first sight.
	FindExternalEvent(ctx context.Context, tenantID uuid.UUID, provider, externalEventID, action string) (entity.CalendarSyncEvent, error)
	ListSyncEvents(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]entity.CalendarSyncEvent, error)
	MarkSyncEventRunning(ctx context.Context, id uuid.UUID) error
	MarkSyncEventSynced(ctx context.Context, id uuid.UUID) error
	// MarkSyncEventFailed increments the event's retries and records the error.
	MarkSyncEventFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}
