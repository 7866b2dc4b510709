package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/domain/service"
	"github.com/bookline/ballast/internal/jobs"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Alert struct {
	routes repository.AlertRepository
	jobSvc service.JobService
	outbox service.OutboxService
	log    *logrus.Logger
}

var _ service.AlertService = (*Alert)(nil)

func NewAlert(routes repository.AlertRepository, jobSvc service.JobService, outbox service.OutboxService, log *logrus.Logger) *Alert {
	return &Alert{routes: routes, jobSvc: jobSvc, outbox: outbox, log: log}
}

func (a *Alert) UpsertRoute(ctx context.Context, tenantID uuid.UUID, channel, target, minSeverity string, enabled bool) (entity.AlertRoute, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	switch channel {
	case entity.AlertChannelSlack, entity.AlertChannelTeams, entity.AlertChannelWebhook, entity.AlertChannelMail:
	default:
		return entity.AlertRoute{}, fmt.Errorf("%w: unsupported alert channel %q", repository.ErrInvalidArgument, channel)
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return entity.AlertRoute{}, fmt.Errorf("%w: target is required", repository.ErrInvalidArgument)
	}
	minSeverity = strings.ToLower(strings.TrimSpace(minSeverity))
	if _, ok := entity.SeverityRank[minSeverity]; !ok {
		minSeverity = "medium"
	}

	route := entity.AlertRoute{
		TenantID:    tenantID,
		Channel:     channel,
		Target:      target,
		MinSeverity: minSeverity,
		Enabled:     enabled,
	}
	if err := a.routes.UpsertRoute(ctx, &route); err != nil {
		a.log.WithError(err).Error("upsert alert route failed")
		return entity.AlertRoute{}, err
	}
	return route, nil
}

func (a *Alert) ListRoutes(ctx context.Context, tenantID uuid.UUID) ([]entity.AlertRoute, error) {
	return a.routes.ListRoutes(ctx, tenantID, false)
}

// Dispatch snapshots pipeline health and fans the findings out to every
// enabled route whose minimum severity is met, one alert_delivery job per
// (alert, route) pair.
func (a *Alert) Dispatch(ctx context.Context, tenantID uuid.UUID) (jobs.DispatchReport, error) {
	jobHealth, err := a.jobSvc.Health(ctx, &tenantID)
	if err != nil {
		return jobs.DispatchReport{}, err
	}
	outboxHealth, err := a.outbox.Health(ctx, &tenantID)
	if err != nil {
		return jobs.DispatchReport{}, err
	}

	alerts := jobs.EvaluateHealth(jobHealth, outboxHealth)
	routes, err := a.routes.ListRoutes(ctx, tenantID, true)
	if err != nil {
		return jobs.DispatchReport{}, err
	}

	report := jobs.DispatchReport{Alerts: len(alerts), Routes: len(routes)}
	for _, alert := range alerts {
		rank := severityRank(alert.Severity, 10)
		for _, route := range routes {
			if rank < severityRank(route.MinSeverity, 30) {
				continue
			}
			payload, err := json.Marshal(map[string]any{
				"route": map[string]string{"channel": route.Channel, "target": route.Target},
				"alert": alert,
			})
			if err != nil {
				return report, err
			}
			if _, err := a.jobSvc.Enqueue(ctx, &tenantID, entity.QueueAlerts, "alert_delivery", payload, 4, nil); err != nil {
				return report, err
			}
			report.Dispatched++
		}
	}

	if report.Dispatched > 0 {
		a.log.WithFields(logrus.Fields{
			"tenant_id":  tenantID,
			"alerts":     report.Alerts,
			"dispatched": report.Dispatched,
		}).Info("alerts dispatched")
	}
	return report, nil
}

func severityRank(severity string, fallback int) int {
	if rank, ok := entity.SeverityRank[severity]; ok {
		return rank
	}
	return fallback
}
