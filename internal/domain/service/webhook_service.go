package service

import (
	"context"

	"github.com/bookline/ballast/internal/domain/entity"
)

type WebhookService interface {
	// Ingest verifies and converts an inbound provider callback into a
	// calendar sync event. created is false when the delivery was a retry of
	// an already-stored external event.
	Ingest(ctx context.Context, provider, secretHeader, timestamp, signature string, body []byte) (event entity.CalendarSyncEvent, created bool, err error)
}
