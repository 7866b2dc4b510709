package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type Sync struct {
	store     repository.Store
	calendars repository.CalendarRepository
	jobs      repository.JobRepository
	log       *logrus.Logger
}

var _ service.SyncService = (*Sync)(nil)

func NewSync(store repository.Store, calendars repository.CalendarRepository, jobs repository.JobRepository, log *logrus.Logger) *Sync {
	return &Sync{store: store, calendars: calendars, jobs: jobs, log: log}
}

func (s *Sync) UpsertConnection(ctx context.Context, tenantID uuid.UUID, in service.ConnectionInput) (entity.CalendarConnection, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if !entity.ValidProvider(provider) {
		return entity.CalendarConnection{}, fmt.Errorf("%w: unsupported provider %q", repository.ErrInvalidArgument, in.Provider)
	}
	externalID := strings.TrimSpace(in.ExternalCalendarID)
	if externalID == "" {
		return entity.CalendarConnection{}, fmt.Errorf("%w: external_calendar_id is required", repository.ErrInvalidArgument)
	}
	direction := strings.ToLower(strings.TrimSpace(in.SyncDirection))
	if direction == "" {
		direction = "bidirectional"
	}

	conn := entity.CalendarConnection{
		TenantID:           tenantID,
		Provider:           provider,
		ExternalCalendarID: externalID,
		SyncDirection:      direction,
		WebhookSecrets:     strings.TrimSpace(in.WebhookSecrets),
		OutboundURL:        strings.TrimSpace(in.OutboundURL),
		Enabled:            in.Enabled,
	}
	if err := s.calendars.UpsertConnection(ctx, &conn); err != nil {
		s.log.WithError(err).Error("upsert calendar connection failed")
		return entity.CalendarConnection{}, err
	}
	return conn, nil
}

func (s *Sync) ListConnections(ctx context.Context, tenantID uuid.UUID, provider string) ([]entity.CalendarConnection, error) {
	return s.calendars.ListConnections(ctx, tenantID, strings.ToLower(strings.TrimSpace(provider)))
}

// EnqueueInternal records an outbound sync event and its calendar_sync_push
// job in one transaction, so a crash cannot strand an event without a job.
func (s *Sync) EnqueueInternal(ctx context.Context, tenantID uuid.UUID, provider, action string, payload map[string]any, bookingID *uuid.UUID) (entity.CalendarSyncEvent, error) {
	return s.enqueue(ctx, tenantID, provider, entity.SyncSourceInternal, "", action, payload, bookingID)
}

// Replay clones a stored event as a fresh internal push. The copy carries
// replay_of_event_id and the action gains a _replay suffix so downstream
// consumers can tell it apart from first deliveries.
func (s *Sync) Replay(ctx context.Context, tenantID, eventID uuid.UUID) (entity.CalendarSyncEvent, error) {
	original, err := s.calendars.GetSyncEvent(ctx, tenantID, eventID)
	if err != nil {
		return entity.CalendarSyncEvent{}, err
	}

	payload := map[string]any{}
	if len(original.Payload) > 0 {
		if err := json.Unmarshal(original.Payload, &payload); err != nil {
			payload = map[string]any{}
		}
	}
	payload["replay_of_event_id"] = original.ID

	return s.enqueue(ctx, tenantID, original.Provider, entity.SyncSourceInternal, "", original.Action+"_replay", payload, original.BookingID)
}

func (s *Sync) ListEvents(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]entity.CalendarSyncEvent, error) {
	return s.calendars.ListSyncEvents(ctx, tenantID, strings.TrimSpace(status), limit)
}

func (s *Sync) enqueue(ctx context.Context, tenantID uuid.UUID, provider, source, externalEventID, action string, payload map[string]any, bookingID *uuid.UUID) (entity.CalendarSyncEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return entity.CalendarSyncEvent{}, err
	}

	event := entity.CalendarSyncEvent{
		TenantID:        tenantID,
		Provider:        strings.ToLower(strings.TrimSpace(provider)),
		Source:          source,
		ExternalEventID: externalEventID,
		BookingID:       bookingID,
		Action:          strings.TrimSpace(action),
		Payload:         datatypes.JSON(data),
		Status:          entity.SyncStatusPending,
	}

	err = s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.calendars.CreateSyncEvent(txCtx, &event); err != nil {
			return err
		}
		jobPayload, err := json.Marshal(map[string]any{"sync_event_id": event.ID})
		if err != nil {
			return err
		}
		job := entity.BackgroundJob{
			TenantID:    &event.TenantID,
			Queue:       entity.QueueIntegrations,
			JobType:     "calendar_sync_push",
			Payload:     datatypes.JSON(jobPayload),
			MaxAttempts: 8,
		}
		return s.jobs.Enqueue(txCtx, &job)
	})
	if err != nil {
		s.log.WithError(err).Error("enqueue calendar sync event failed")
		return entity.CalendarSyncEvent{}, err
	}
	return event, nil
}
