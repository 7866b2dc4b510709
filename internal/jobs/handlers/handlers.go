// Package handlers holds the built-in background job handlers and the
// dependencies they share.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/infra/resilience"
	"github.com/bookline/ballast/internal/jobs"
)

type Deps struct {
	Store       repository.Store
	Bookings    repository.BookingRepository
	Calendars   repository.CalendarRepository
	Jobs        repository.JobRepository
	Outbox      repository.OutboxRepository
	Idempotency repository.IdempotencyRepository

	// ArtifactDir is where handlers park files for jobs whose delivery target
	// is the filesystem (reminders, reports, mail fallback).
	ArtifactDir string
	// DefaultTenant scopes idempotency cleanup when the payload names no slug.
	DefaultTenant string
	HTTPClient    *http.Client
	// Breakers guards outbound posts per target host. Nil means deliver
	// directly.
	Breakers *resilience.BreakerGroup
}

// RegisterAll installs every built-in handler on the registry.
func RegisterAll(reg *jobs.Registry, deps Deps) {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if deps.ArtifactDir == "" {
		deps.ArtifactDir = "artifacts"
	}
	jobs.Register(reg, "send_reminder", deps.sendReminder)
	jobs.Register(reg, "calendar_sync_push", deps.calendarSyncPush)
	jobs.Register(reg, "alert_delivery", deps.alertDelivery)
	jobs.Register(reg, "generate_report", deps.generateReport)
	jobs.Register(reg, "retention_cleanup", deps.retentionCleanup)
}

func (d Deps) postJSON(ctx context.Context, url string, body any, headers map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	send := func() error {
		resp, err := d.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

		if resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		return nil
	}
	if d.Breakers != nil {
		return d.Breakers.Do(resilience.TargetForURL(url), send)
	}
	return send()
}

// writeArtifact stores v as JSON under ArtifactDir/subdir/name and returns the
// path and byte size.
func (d Deps) writeArtifact(subdir, name string, v any) (string, int, error) {
	dir := filepath.Join(d.ArtifactDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, err
	}
	return path, len(data), nil
}
