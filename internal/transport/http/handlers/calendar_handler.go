package handlers

import (
	nethttp "net/http"
	"strconv"

	"github.com/bookline/ballast/internal/domain/service"
	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

type upsertConnectionRequest struct {
	Provider           string `json:"provider" binding:"required"`
	ExternalCalendarID string `json:"external_calendar_id" binding:"required"`
	SyncDirection      string `json:"sync_direction"`
	WebhookSecrets     string `json:"webhook_secrets"`
	OutboundURL        string `json:"outbound_url"`
	Enabled            *bool  `json:"enabled"`
}

func (h *Handler) upsertConnection(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req upsertConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	conn, err := h.svc.Sync.UpsertConnection(c.Request.Context(), tenantID, service.ConnectionInput{
		Provider:           req.Provider,
		ExternalCalendarID: req.ExternalCalendarID,
		SyncDirection:      req.SyncDirection,
		WebhookSecrets:     req.WebhookSecrets,
		OutboundURL:        req.OutboundURL,
		Enabled:            enabled,
	})
	if err != nil {
		respondServiceError(c, err, "upsert connection failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, conn, nil)
}

func (h *Handler) listConnections(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	conns, err := h.svc.Sync.ListConnections(c.Request.Context(), tenantID, c.Query("provider"))
	if err != nil {
		respondServiceError(c, err, "list connections failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, conns, nil)
}

func (h *Handler) listSyncEvents(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.svc.Sync.ListEvents(c.Request.Context(), tenantID, c.Query("status"), limit)
	if err != nil {
		respondServiceError(c, err, "list sync events failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, events, nil)
}

func (h *Handler) replaySyncEvent(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	event, err := h.svc.Sync.Replay(c.Request.Context(), tenantID, id)
	if err != nil {
		respondServiceError(c, err, "replay failed")
		return
	}
	response.RespondOK(c, nethttp.StatusCreated, event, nil)
}
