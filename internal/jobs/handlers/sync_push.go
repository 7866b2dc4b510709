package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/jobs"
	"github.com/google/uuid"
)

type syncPushPayload struct {
	SyncEventID uuid.UUID `json:"sync_event_id"`
}

// calendarSyncPush delivers one calendar sync event to the tenant's provider.
// The sync event row tracks its own status and retries alongside the job's,
// so operators can inspect failures per event.
func (d Deps) calendarSyncPush(ctx context.Context, scope jobs.Scope, payload syncPushPayload) (any, error) {
	if scope.Job.TenantID == nil {
		return nil, errors.New("calendar sync push requires a tenant")
	}
	if payload.SyncEventID == uuid.Nil {
		return nil, errors.New("missing sync_event_id")
	}

	event, err := d.Calendars.GetSyncEvent(ctx, *scope.Job.TenantID, payload.SyncEventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errors.New("calendar sync event not found")
		}
		return nil, err
	}

	conn, err := d.Calendars.FindTenantConnection(ctx, event.TenantID, event.Provider)
	if err != nil {
		if errors.Is(err, repository.ErrProviderNotConfigured) {
			cause := errors.New("no enabled calendar connection")
			if markErr := d.Calendars.MarkSyncEventFailed(ctx, event.ID, cause.Error()); markErr != nil {
				scope.Log.WithError(markErr).Warn("calendar-sync-push: mark failed")
			}
			return nil, cause
		}
		return nil, err
	}

	var eventPayload map[string]any
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &eventPayload); err != nil {
			eventPayload = map[string]any{}
		}
	}
	body := map[string]any{
		"provider":          event.Provider,
		"source":            event.Source,
		"action":            event.Action,
		"booking_id":        event.BookingID,
		"external_event_id": event.ExternalEventID,
		"payload":           eventPayload,
	}

	if err := d.Calendars.MarkSyncEventRunning(ctx, event.ID); err != nil {
		return nil, err
	}

	if err := d.push(ctx, conn, body); err != nil {
		if markErr := d.Calendars.MarkSyncEventFailed(ctx, event.ID, err.Error()); markErr != nil {
			scope.Log.WithError(markErr).Warn("calendar-sync-push: mark failed")
		}
		return nil, err
	}

	if err := d.Calendars.MarkSyncEventSynced(ctx, event.ID); err != nil {
		return nil, err
	}
	return map[string]any{
		"sync_event_id": event.ID,
		"provider":      event.Provider,
		"sent":          conn.OutboundURL != "",
	}, nil
}

func (d Deps) push(ctx context.Context, conn entity.CalendarConnection, body map[string]any) error {
	if conn.OutboundURL == "" {
		return nil
	}
	headers := map[string]string{}
	if secrets := conn.SecretList(); len(secrets) > 0 {
		headers["X-Webhook-Secret"] = secrets[0]
	}
	return d.postJSON(ctx, conn.OutboundURL, body, headers)
}
