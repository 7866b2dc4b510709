package service

import (
	"context"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/google/uuid"
)

// ConnectionInput carries the operator-supplied connection settings.
type ConnectionInput struct {
	Provider           string
	ExternalCalendarID string
	SyncDirection      string
	WebhookSecrets     string
	OutboundURL        string
	Enabled            bool
}

type SyncService interface {
	UpsertConnection(ctx context.Context, tenantID uuid.UUID, in ConnectionInput) (entity.CalendarConnection, error)
	ListConnections(ctx context.Context, tenantID uuid.UUID, provider string) ([]entity.CalendarConnection, error)
	// EnqueueInternal records an outbound-direction sync event and its push job.
	EnqueueInternal(ctx context.Context, tenantID uuid.UUID, provider, action string, payload map[string]any, bookingID *uuid.UUID) (entity.CalendarSyncEvent, error)
	// Replay clones a stored event as a fresh internal push with the action
	// suffixed by _replay.
	Replay(ctx context.Context, tenantID, eventID uuid.UUID) (entity.CalendarSyncEvent, error)
	ListEvents(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]entity.CalendarSyncEvent, error)
}
