package handlers

import (
	nethttp "net/http"
	"strconv"

	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

func (h *Handler) listOutbox(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.svc.Outbox.List(c.Request.Context(), tenantID, c.Query("status"), limit)
	if err != nil {
		respondServiceError(c, err, "list outbox failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, events, nil)
}

type retryOutboxRequest struct {
	IncludeDeadLetter bool `json:"include_dead_letter"`
	Limit             int  `json:"limit"`
}

func (h *Handler) retryOutbox(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	var req retryOutboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	reset, err := h.svc.Outbox.Retry(c.Request.Context(), tenantID, req.IncludeDeadLetter, req.Limit)
	if err != nil {
		respondServiceError(c, err, "retry failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, gin.H{"reset": reset}, nil)
}

type cleanupOutboxRequest struct {
	OlderThanHours int `json:"older_than_hours"`
}

func (h *Handler) cleanupOutbox(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	var req cleanupOutboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	removed, err := h.svc.Outbox.Cleanup(c.Request.Context(), tenantID, req.OlderThanHours)
	if err != nil {
		respondServiceError(c, err, "cleanup failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, gin.H{"deleted": removed}, nil)
}

func (h *Handler) outboxHealth(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}

	health, err := h.svc.Outbox.Health(c.Request.Context(), tenantID)
	if err != nil {
		respondServiceError(c, err, "health check failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, health, nil)
}
