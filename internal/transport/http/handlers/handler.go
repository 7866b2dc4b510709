package handlers

import (
	"errors"
	nethttp "net/http"
	"strings"

	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Services bundles everything the HTTP surface exposes.
type Services struct {
	Bookings    service.BookingService
	Jobs        service.JobService
	Outbox      service.OutboxService
	Idempotency service.IdempotencyService
	Sync        service.SyncService
	Webhooks    service.WebhookService
	Alerts      service.AlertService
}

type Handler struct {
	svc           Services
	store         repository.Store
	defaultTenant string
}

func NewHandler(svc Services, store repository.Store, defaultTenant string) *Handler {
	if defaultTenant == "" {
		defaultTenant = "public"
	}
	return &Handler{
		svc:           svc,
		store:         store,
		defaultTenant: defaultTenant,
	}
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		response.RespondOK(c, nethttp.StatusServiceUnavailable, gin.H{"status": "down"}, nil)
		return
	}
	response.RespondOK(c, nethttp.StatusOK, gin.H{"status": "ok"}, nil)
}

// requireTenant reads X-Tenant-ID for operations that only make sense inside
// one tenant. Responds 400 and returns false when absent or malformed.
func requireTenant(c *gin.Context) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
	if raw == "" {
		response.RespondError(c, nethttp.StatusBadRequest, "X-Tenant-ID header is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid X-Tenant-ID header")
		return uuid.Nil, false
	}
	return id, true
}

// optionalTenant returns nil when the header is absent; platform-wide
// operations treat that as "all tenants".
func optionalTenant(c *gin.Context) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid X-Tenant-ID header")
		return nil, false
	}
	return &id, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with the caller's fallback message so internals never
// leak.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrInvalidArgument),
		errors.Is(err, repository.ErrInvalidCursor),
		errors.Is(err, repository.ErrInvalidWebhookPayload):
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUnauthorizedWebhook):
		response.RespondError(c, nethttp.StatusUnauthorized, err.Error())
	case errors.Is(err, repository.ErrProviderNotConfigured):
		response.RespondError(c, nethttp.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		response.RespondError(c, nethttp.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrIdempotencyConflict),
		errors.Is(err, repository.ErrInvalidTransition):
		response.RespondError(c, nethttp.StatusConflict, err.Error())
	default:
		response.RespondError(c, nethttp.StatusInternalServerError, fallback)
	}
}
