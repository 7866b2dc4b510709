package handlers

import (
	nethttp "net/http"

	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

type upsertAlertRouteRequest struct {
	Channel     string `json:"channel" binding:"required"`
	Target      string `json:"target" binding:"required"`
	MinSeverity string `json:"min_severity"`
	Enabled     *bool  `json:"enabled"`
}

func (h *Handler) upsertAlertRoute(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req upsertAlertRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	route, err := h.svc.Alerts.UpsertRoute(c.Request.Context(), tenantID, req.Channel, req.Target, req.MinSeverity, enabled)
	if err != nil {
		respondServiceError(c, err, "upsert alert route failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, route, nil)
}

func (h *Handler) listAlertRoutes(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	routes, err := h.svc.Alerts.ListRoutes(c.Request.Context(), tenantID)
	if err != nil {
		respondServiceError(c, err, "list alert routes failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, routes, nil)
}

func (h *Handler) dispatchAlerts(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	report, err := h.svc.Alerts.Dispatch(c.Request.Context(), tenantID)
	if err != nil {
		respondServiceError(c, err, "alert dispatch failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, report, nil)
}
