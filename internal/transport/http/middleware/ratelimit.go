package middleware

import (
	nethttp "net/http"
	"strings"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/infra/ratelimit"
	"github.com/bookline/ballast/internal/observability"
	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

// WebhookRateLimit throttles webhook deliveries per provider before any
// verification work runs. Unknown providers share one bucket so probe floods
// cannot mint limiter state or metric labels.
func WebhookRateLimit(limiter ratelimit.Limiter, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
		if !entity.ValidProvider(provider) {
			provider = "unknown"
		}
		if !limiter.Allow(c.Request.Context(), provider) {
			if metrics != nil {
				metrics.WebhookRejected.WithLabelValues(provider, "rate_limited").Inc()
			}
			response.RespondError(c, nethttp.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
