package handlers

import (
	nethttp "net/http"
	"strings"

	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

// tenantSlug resolves the slug scoping idempotency records; the layer is
// keyed by slug rather than uuid because the key header arrives before any
// tenant lookup.
func (h *Handler) tenantSlug(c *gin.Context) string {
	if slug := strings.TrimSpace(c.GetHeader("X-Tenant-Slug")); slug != "" {
		return slug
	}
	return h.defaultTenant
}

type cleanupIdempotencyRequest struct {
	OlderThanHours int `json:"older_than_hours"`
}

func (h *Handler) cleanupIdempotency(c *gin.Context) {
	var req cleanupIdempotencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	removed, err := h.svc.Idempotency.Cleanup(c.Request.Context(), h.tenantSlug(c), req.OlderThanHours)
	if err != nil {
		respondServiceError(c, err, "cleanup failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, gin.H{"deleted": removed}, nil)
}

func (h *Handler) idempotencyHealth(c *gin.Context) {
	stats, err := h.svc.Idempotency.Health(c.Request.Context(), h.tenantSlug(c))
	if err != nil {
		respondServiceError(c, err, "health check failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, stats, nil)
}
