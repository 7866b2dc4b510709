// Package observability holds the Prometheus instrumentation shared by the
// HTTP server, the outbox dispatcher, and the job workers.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered once per process via promauto. Components that can
// run without instrumentation (tests, one-shot commands) receive a nil
// *Metrics and must guard before use.
type Metrics struct {
	OutboxPublished    prometheus.Counter
	OutboxFailed       prometheus.Counter
	OutboxDeadLettered prometheus.Counter

	JobsSucceeded    prometheus.Counter
	JobsFailed       prometheus.Counter
	JobsDeadLettered prometheus.Counter

	WebhookReceived *prometheus.CounterVec
	WebhookRejected *prometheus.CounterVec
	WebhookDeduped  *prometheus.CounterVec

	IdempotencyReplays   prometheus.Counter
	IdempotencyConflicts prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers every metric under the given namespace on the default
// registry. Call it at most once per process.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Total number of outbox events published to the broker",
		}),
		OutboxFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failed_total",
			Help:      "Total number of outbox dispatch attempts that failed",
		}),
		OutboxDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dead_lettered_total",
			Help:      "Total number of outbox events moved to dead_letter",
		}),
		JobsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_succeeded_total",
			Help:      "Total number of background jobs that completed",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of background job attempts that failed",
		}),
		JobsDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dead_lettered_total",
			Help:      "Total number of background jobs moved to dead_letter",
		}),
		WebhookReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_received_total",
			Help:      "Total number of webhook deliveries accepted",
		}, []string{"provider"}),
		WebhookRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_rejected_total",
			Help:      "Total number of webhook deliveries rejected",
		}, []string{"provider", "reason"}),
		WebhookDeduped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deduped_total",
			Help:      "Total number of webhook deliveries answered from an earlier event",
		}, []string{"provider"}),
		IdempotencyReplays: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_replays_total",
			Help:      "Total number of requests answered from a stored response",
		}),
		IdempotencyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_conflicts_total",
			Help:      "Total number of idempotency key reuses with a different payload",
		}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
