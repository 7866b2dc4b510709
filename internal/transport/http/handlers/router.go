package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	handler *Handler
}

func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// RegisterRoutes mounts the API. idempotency wraps every mutating route under
// /api; webhookLimit throttles provider callbacks before verification.
func (r *Router) RegisterRoutes(engine *gin.Engine, idempotency, webhookLimit gin.HandlerFunc) {
	engine.GET("/healthz", r.handler.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.Use(idempotency)

	bookings := api.Group("/bookings")
	bookings.POST("", r.handler.createBooking)
	bookings.POST("/:id/cancel", r.handler.cancelBooking)
	bookings.GET("", r.handler.listBookings)

	jobs := api.Group("/jobs")
	jobs.POST("", r.handler.enqueueJob)
	jobs.GET("", r.handler.listJobs)
	jobs.GET("/health", r.handler.jobsHealth)
	jobs.POST("/cleanup", r.handler.cleanupJobs)
	jobs.GET("/:id", r.handler.getJob)
	jobs.POST("/:id/retry", r.handler.retryJob)
	jobs.POST("/:id/cancel", r.handler.cancelJob)

	outbox := api.Group("/outbox")
	outbox.GET("", r.handler.listOutbox)
	outbox.GET("/health", r.handler.outboxHealth)
	outbox.POST("/retry", r.handler.retryOutbox)
	outbox.POST("/cleanup", r.handler.cleanupOutbox)

	idem := api.Group("/idempotency")
	idem.GET("/health", r.handler.idempotencyHealth)
	idem.POST("/cleanup", r.handler.cleanupIdempotency)

	calendar := api.Group("/calendar")
	calendar.PUT("/connections", r.handler.upsertConnection)
	calendar.GET("/connections", r.handler.listConnections)
	calendar.GET("/events", r.handler.listSyncEvents)
	calendar.POST("/events/:id/replay", r.handler.replaySyncEvent)

	alerts := api.Group("/alerts")
	alerts.POST("/routes", r.handler.upsertAlertRoute)
	alerts.GET("/routes", r.handler.listAlertRoutes)
	alerts.POST("/dispatch", r.handler.dispatchAlerts)

	// Provider callbacks bypass the idempotency layer: dedup happens on the
	// external event id, and providers do not send Idempotency-Key headers.
	engine.POST("/webhooks/calendar/:provider", webhookLimit, r.handler.ingestWebhook)
}
