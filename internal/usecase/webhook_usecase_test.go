package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bookline/ballast/internal/domain/entity"
	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/webhook"
	"github.com/google/uuid"
)

func webhookFixture(secrets string, signatureRequired bool) (*Webhook, *fakeCalendarRepo, *fakeJobRepo, uuid.UUID) {
	tenantID := uuid.New()
	calRepo := &fakeCalendarRepo{}
	calRepo.connections = append(calRepo.connections, entity.CalendarConnection{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		Provider:           entity.ProviderGoogle,
		ExternalCalendarID: "cal-main",
		WebhookSecrets:     secrets,
		Enabled:            true,
	})
	jobRepo := &fakeJobRepo{}
	log := discardLog()
	sync := NewSync(&fakeStore{}, calRepo, jobRepo, log)
	verifier := webhook.NewVerifier(signatureRequired, 5*time.Minute)
	return NewWebhook(calRepo, sync, verifier, log, nil), calRepo, jobRepo, tenantID
}

func signedDelivery(t *testing.T, secret string, body []byte) (tsRaw, sig string) {
	t.Helper()
	payload, err := webhook.DecodePayload(body)
	if err != nil {
		t.Fatalf("DecodePayload returned error: %v", err)
	}
	tsRaw = strconv.FormatInt(time.Now().Unix(), 10)
	sig, err = webhook.Sign(secret, tsRaw, payload)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	return tsRaw, sig
}

func TestIngest_CreatesEventAndPushJob(t *testing.T) {
	w, calRepo, jobRepo, tenantID := webhookFixture("s3cret", true)
	body := []byte(`{"id":"evt-1","action":"created","summary":"Checkup"}`)
	tsRaw, sig := signedDelivery(t, "s3cret", body)

	event, created, err := w.Ingest(context.Background(), "google", "", tsRaw, sig, body)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if !created {
		t.Fatal("created = false, want true for a first delivery")
	}
	if event.TenantID != tenantID {
		t.Errorf("tenant_id = %s, want the connection owner %s", event.TenantID, tenantID)
	}
	if event.Source != entity.SyncSourceExternal {
		t.Errorf("source = %q, want %q", event.Source, entity.SyncSourceExternal)
	}
	if event.ExternalEventID != "evt-1" {
		t.Errorf("external_event_id = %q, want %q", event.ExternalEventID, "evt-1")
	}
	if event.Action != "created" {
		t.Errorf("action = %q, want %q", event.Action, "created")
	}
	if event.Status != entity.SyncStatusPending {
		t.Errorf("status = %q, want %q", event.Status, entity.SyncStatusPending)
	}

	if len(calRepo.syncEvents) != 1 {
		t.Fatalf("stored %d sync events, want 1", len(calRepo.syncEvents))
	}
	if len(jobRepo.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobRepo.enqueued))
	}
	job := jobRepo.enqueued[0]
	if job.JobType != "calendar_sync_push" {
		t.Errorf("job type = %q, want calendar_sync_push", job.JobType)
	}
	if job.Queue != entity.QueueIntegrations {
		t.Errorf("job queue = %q, want %q", job.Queue, entity.QueueIntegrations)
	}
	if job.MaxAttempts != 8 {
		t.Errorf("job max_attempts = %d, want 8", job.MaxAttempts)
	}
	if job.TenantID == nil || *job.TenantID != tenantID {
		t.Error("job tenant does not match the event tenant")
	}
	if !strings.Contains(string(job.Payload), event.ID.String()) {
		t.Errorf("job payload = %s, want reference to sync event %s", job.Payload, event.ID)
	}
}

func TestIngest_DeduplicatesRepeatDeliveries(t *testing.T) {
	w, calRepo, jobRepo, _ := webhookFixture("s3cret", true)
	body := []byte(`{"id":"evt-dup","action":"created"}`)
	tsRaw, sig := signedDelivery(t, "s3cret", body)

	first, created, err := w.Ingest(context.Background(), "google", "", tsRaw, sig, body)
	if err != nil || !created {
		t.Fatalf("first Ingest = (created=%v, err=%v), want created with no error", created, err)
	}

	second, created, err := w.Ingest(context.Background(), "google", "", tsRaw, sig, body)
	if err != nil {
		t.Fatalf("second Ingest returned error: %v", err)
	}
	if created {
		t.Error("created = true on a repeat delivery, want false")
	}
	if second.ID != first.ID {
		t.Errorf("repeat delivery returned event %s, want the original %s", second.ID, first.ID)
	}
	if len(calRepo.syncEvents) != 1 {
		t.Errorf("stored %d sync events, want 1", len(calRepo.syncEvents))
	}
	if len(jobRepo.enqueued) != 1 {
		t.Errorf("enqueued %d jobs, want 1 (dedup must not schedule more work)", len(jobRepo.enqueued))
	}
}

func TestIngest_RejectsBadSignature(t *testing.T) {
	w, calRepo, jobRepo, _ := webhookFixture("s3cret", true)
	body := []byte(`{"id":"evt-2","action":"created"}`)
	tsRaw, sig := signedDelivery(t, "wrong-secret", body)

	_, created, err := w.Ingest(context.Background(), "google", "", tsRaw, sig, body)
	if !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("err = %v, want ErrUnauthorizedWebhook", err)
	}
	if created {
		t.Error("created = true, want false")
	}
	if len(calRepo.syncEvents) != 0 || len(jobRepo.enqueued) != 0 {
		t.Error("rejected delivery must not store events or jobs")
	}
}

func TestIngest_SecretHeaderFallback(t *testing.T) {
	w, _, _, _ := webhookFixture("s3cret", false)
	body := []byte(`{"id":"evt-3","action":"created"}`)

	_, created, err := w.Ingest(context.Background(), "google", "s3cret", "", "", body)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if !created {
		t.Error("created = false, want true for a valid secret header")
	}

	_, _, err = w.Ingest(context.Background(), "google", "stolen", "", "", []byte(`{"id":"evt-4"}`))
	if !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("err = %v, want ErrUnauthorizedWebhook for a wrong secret header", err)
	}
}

func TestIngest_NoSecretsAcceptsUnauthenticated(t *testing.T) {
	w, _, _, _ := webhookFixture("", true)
	body := []byte(`{"id":"evt-5","action":"created"}`)

	_, created, err := w.Ingest(context.Background(), "google", "", "", "", body)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if !created {
		t.Error("created = false, want true when the connection has no secrets")
	}
}

func TestIngest_RejectsMalformedPayload(t *testing.T) {
	w, calRepo, _, _ := webhookFixture("", false)

	for _, body := range []string{`[1,2,3]`, `not json`, ``} {
		_, _, err := w.Ingest(context.Background(), "google", "", "", "", []byte(body))
		if !errors.Is(err, repository.ErrInvalidWebhookPayload) {
			t.Errorf("Ingest(%q) err = %v, want ErrInvalidWebhookPayload", body, err)
		}
	}
	if len(calRepo.syncEvents) != 0 {
		t.Error("malformed deliveries must not store events")
	}
}

func TestIngest_RejectsUnknownProvider(t *testing.T) {
	w, _, _, _ := webhookFixture("", false)

	_, _, err := w.Ingest(context.Background(), "fitbit", "", "", "", []byte(`{"id":"evt-6"}`))
	if !errors.Is(err, repository.ErrInvalidWebhookPayload) {
		t.Errorf("err = %v, want ErrInvalidWebhookPayload for an unsupported provider", err)
	}
}

func TestIngest_ProviderNotConfigured(t *testing.T) {
	log := discardLog()
	calRepo := &fakeCalendarRepo{}
	sync := NewSync(&fakeStore{}, calRepo, &fakeJobRepo{}, log)
	w := NewWebhook(calRepo, sync, webhook.NewVerifier(false, time.Minute), log, nil)

	_, _, err := w.Ingest(context.Background(), "outlook", "", "", "", []byte(`{"id":"evt-7"}`))
	if !errors.Is(err, repository.ErrProviderNotConfigured) {
		t.Errorf("err = %v, want ErrProviderNotConfigured", err)
	}
}

func TestIngest_NumericEventID(t *testing.T) {
	w, _, _, _ := webhookFixture("", false)

	event, created, err := w.Ingest(context.Background(), "google", "", "", "", []byte(`{"id": 12345, "action": "updated"}`))
	if err != nil || !created {
		t.Fatalf("Ingest = (created=%v, err=%v), want created with no error", created, err)
	}
	if event.ExternalEventID != "12345" {
		t.Errorf("external_event_id = %q, want numeric id rendered as %q", event.ExternalEventID, "12345")
	}

	// The numeric form dedups like the string form.
	_, created, err = w.Ingest(context.Background(), "google", "", "", "", []byte(`{"id": 12345, "action": "updated"}`))
	if err != nil {
		t.Fatalf("repeat Ingest returned error: %v", err)
	}
	if created {
		t.Error("created = true on repeat numeric delivery, want false")
	}
}

func TestIngest_DefaultsAction(t *testing.T) {
	w, _, _, _ := webhookFixture("", false)

	event, _, err := w.Ingest(context.Background(), "google", "", "", "", []byte(`{"id":"evt-8"}`))
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if event.Action != "webhook_update" {
		t.Errorf("action = %q, want default %q", event.Action, "webhook_update")
	}
}

func TestIngest_NormalizesProviderCase(t *testing.T) {
	w, _, _, _ := webhookFixture("", false)

	event, created, err := w.Ingest(context.Background(), "  GOOGLE  ", "", "", "", []byte(`{"id":"evt-9"}`))
	if err != nil || !created {
		t.Fatalf("Ingest = (created=%v, err=%v), want created with no error", created, err)
	}
	if event.Provider != entity.ProviderGoogle {
		t.Errorf("provider = %q, want normalized %q", event.Provider, entity.ProviderGoogle)
	}
}
