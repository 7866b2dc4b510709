package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/bookline/ballast/internal/observability"
	"github.com/bookline/ballast/internal/webhook"
	"github.com/sirupsen/logrus"
)

type Webhook struct {
	calendars repository.CalendarRepository
	sync      *Sync
	verifier  *webhook.Verifier
	log       *logrus.Logger
	metrics   *observability.Metrics
}

var _ service.WebhookService = (*Webhook)(nil)

func NewWebhook(calendars repository.CalendarRepository, sync *Sync, verifier *webhook.Verifier, log *logrus.Logger, metrics *observability.Metrics) *Webhook {
	return &Webhook{calendars: calendars, sync: sync, verifier: verifier, log: log, metrics: metrics}
}

// Ingest turns a provider callback into a calendar sync event. The enabled
// connection for the provider decides which tenant owns the delivery; nothing
// is stored until the delivery authenticated.
func (w *Webhook) Ingest(ctx context.Context, provider, secretHeader, timestamp, signature string, body []byte) (entity.CalendarSyncEvent, bool, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !entity.ValidProvider(provider) {
		w.reject("unknown", "unsupported_provider")
		return entity.CalendarSyncEvent{}, false, fmt.Errorf("%w: unsupported provider %q", repository.ErrInvalidWebhookPayload, provider)
	}

	payload, err := webhook.DecodePayload(body)
	if err != nil {
		w.reject(provider, "malformed_payload")
		return entity.CalendarSyncEvent{}, false, fmt.Errorf("%w: %v", repository.ErrInvalidWebhookPayload, err)
	}

	conn, err := w.calendars.FindEnabledConnection(ctx, provider)
	if err != nil {
		if errors.Is(err, repository.ErrProviderNotConfigured) {
			w.reject(provider, "not_configured")
		}
		return entity.CalendarSyncEvent{}, false, err
	}

	// A connection without secrets accepts unauthenticated deliveries, so an
	// operator can trial a provider before wiring credentials.
	if secrets := conn.SecretList(); len(secrets) > 0 {
		if err := w.verifier.Verify(secrets, secretHeader, timestamp, signature, payload); err != nil {
			w.reject(provider, "unauthorized")
			w.log.WithError(err).WithField("provider", provider).Warn("webhook rejected")
			return entity.CalendarSyncEvent{}, false, err
		}
	}

	externalEventID := externalIDFrom(payload)
	action := "webhook_update"
	if v, ok := payload["action"].(string); ok && strings.TrimSpace(v) != "" {
		action = strings.TrimSpace(v)
	}

	if externalEventID != "" {
		existing, err := w.calendars.FindExternalEvent(ctx, conn.TenantID, provider, externalEventID, action)
		if err == nil {
			if w.metrics != nil {
				w.metrics.WebhookDeduped.WithLabelValues(provider).Inc()
			}
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return entity.CalendarSyncEvent{}, false, err
		}
	}

	event, err := w.sync.enqueue(ctx, conn.TenantID, provider, entity.SyncSourceExternal, externalEventID, action, payload, nil)
	if err != nil {
		return entity.CalendarSyncEvent{}, false, err
	}
	if w.metrics != nil {
		w.metrics.WebhookReceived.WithLabelValues(provider).Inc()
	}
	return event, true, nil
}

func (w *Webhook) reject(provider, reason string) {
	if w.metrics != nil {
		w.metrics.WebhookRejected.WithLabelValues(provider, reason).Inc()
	}
}

// externalIDFrom reads the provider's event identifier, accepting both string
// and numeric forms.
func externalIDFrom(payload map[string]any) string {
	for _, key := range []string{"id", "event_id"} {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
