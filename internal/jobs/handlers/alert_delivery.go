package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/jobs"
)

type alertDeliveryPayload struct {
	Route struct {
		Channel string `json:"channel"`
		Target  string `json:"target"`
	} `json:"route"`
	Alert jobs.Alert `json:"alert"`
}

// alertDelivery pushes one alert to one route. Chat channels and plain
// webhooks share the same JSON POST; mail falls back to an artifact because
// no mail relay is wired in.
func (d Deps) alertDelivery(ctx context.Context, scope jobs.Scope, payload alertDeliveryPayload) (any, error) {
	channel := strings.ToLower(strings.TrimSpace(payload.Route.Channel))
	target := strings.TrimSpace(payload.Route.Target)
	if channel == "" || target == "" {
		return nil, errors.New("invalid alert route payload")
	}

	severity := payload.Alert.Severity
	if severity == "" {
		severity = "info"
	}
	code := payload.Alert.Code
	if code == "" {
		code = "alert"
	}
	message := map[string]any{
		"text":  fmt.Sprintf("[ballast:%s] %s: %s", severity, code, payload.Alert.Message),
		"alert": payload.Alert,
	}

	switch channel {
	case entity.AlertChannelSlack, entity.AlertChannelTeams, entity.AlertChannelWebhook:
		if err := d.postJSON(ctx, target, message, nil); err != nil {
			return nil, err
		}
	case entity.AlertChannelMail:
		name := fmt.Sprintf("mail_alert_job_%s.json", scope.Job.ID)
		if _, _, err := d.writeArtifact("alert_mail", name, map[string]any{"to": target, "message": message}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported alert channel: %s", channel)
	}

	return map[string]any{"channel": channel, "target": target}, nil
}
