package handlers

import (
	"io"
	nethttp "net/http"

	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

// ingestWebhook accepts provider callbacks. 202 means a new sync event was
// stored and a push job enqueued; 200 means this delivery was already seen
// and nothing new was scheduled.
func (h *Handler) ingestWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid request body")
		return
	}

	event, created, err := h.svc.Webhooks.Ingest(
		c.Request.Context(),
		c.Param("provider"),
		c.GetHeader("X-Webhook-Secret"),
		c.GetHeader("X-Webhook-Timestamp"),
		c.GetHeader("X-Webhook-Signature"),
		body,
	)
	if err != nil {
		respondServiceError(c, err, "webhook ingest failed")
		return
	}
	if created {
		response.RespondOK(c, nethttp.StatusAccepted, event, nil)
		return
	}
	response.RespondOK(c, nethttp.StatusOK, event, nil)
}
