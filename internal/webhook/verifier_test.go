package webhook

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/bookline/ballast/internal/domain/repository"
)

func fixedVerifier(required bool, ttl time.Duration, at time.Time) *Verifier {
	v := NewVerifier(required, ttl)
	v.now = func() time.Time { return at }
	return v
}

func TestVerify_AcceptsValidSignature(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tsRaw := strconv.FormatInt(at.Unix(), 10)
	payload := map[string]any{"event_id": "evt-1", "action": "created"}

	sig, err := Sign("s3cret", tsRaw, payload)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	v := fixedVerifier(true, 5*time.Minute, at)
	if err := v.Verify([]string{"s3cret"}, "", tsRaw, sig, payload); err != nil {
		t.Errorf("Verify = %v, want nil", err)
	}
}

func TestVerify_AcceptsPrefixedAndUppercaseSignature(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tsRaw := strconv.FormatInt(at.Unix(), 10)
	payload := map[string]any{"event_id": "evt-1"}

	sig, err := Sign("s3cret", tsRaw, payload)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	v := fixedVerifier(true, 5*time.Minute, at)
	for _, raw := range []string{"sha256=" + sig, "SHA256=" + sig, "  sha256=" + sig + "  "} {
		if err := v.Verify([]string{"s3cret"}, "", tsRaw, raw, payload); err != nil {
			t.Errorf("Verify(%q) = %v, want nil", raw, err)
		}
	}
}

func TestVerify_TriesEverySecret(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tsRaw := strconv.FormatInt(at.Unix(), 10)
	payload := map[string]any{"event_id": "evt-1"}

	// Signed with the rotated-in secret, old one still listed first.
	sig, err := Sign("new-secret", tsRaw, payload)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	v := fixedVerifier(true, 5*time.Minute, at)
	if err := v.Verify([]string{"old-secret", "new-secret"}, "", tsRaw, sig, payload); err != nil {
		t.Errorf("Verify = %v, want nil during secret rotation", err)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tsRaw := strconv.FormatInt(at.Unix(), 10)
	payload := map[string]any{"event_id": "evt-1"}

	sig, err := Sign("attacker", tsRaw, payload)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	v := fixedVerifier(true, 5*time.Minute, at)
	if err := v.Verify([]string{"s3cret"}, "", tsRaw, sig, payload); !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("Verify = %v, want ErrUnauthorizedWebhook", err)
	}
}

func TestVerify_RejectsTamperedPayload(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tsRaw := strconv.FormatInt(at.Unix(), 10)

	sig, err := Sign("s3cret", tsRaw, map[string]any{"price": "100"})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	v := fixedVerifier(true, 5*time.Minute, at)
	err = v.Verify([]string{"s3cret"}, "", tsRaw, sig, map[string]any{"price": "1"})
	if !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("Verify = %v, want ErrUnauthorizedWebhook for changed payload", err)
	}
}

func TestVerify_TimestampTolerance(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	payload := map[string]any{"event_id": "evt-1"}
	v := fixedVerifier(true, 5*time.Minute, at)

	tests := []struct {
		name   string
		sentAt time.Time
		wantOK bool
	}{
		{"fresh", at.Add(-time.Minute), true},
		{"at the edge", at.Add(-5 * time.Minute), true},
		{"expired", at.Add(-5*time.Minute - time.Second), false},
		{"future within tolerance", at.Add(3 * time.Minute), true},
		{"future beyond tolerance", at.Add(6 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tsRaw := strconv.FormatInt(tt.sentAt.Unix(), 10)
			sig, err := Sign("s3cret", tsRaw, payload)
			if err != nil {
				t.Fatalf("Sign returned error: %v", err)
			}
			err = v.Verify([]string{"s3cret"}, "", tsRaw, sig, payload)
			if tt.wantOK && err != nil {
				t.Errorf("Verify = %v, want nil", err)
			}
			if !tt.wantOK && !errors.Is(err, repository.ErrUnauthorizedWebhook) {
				t.Errorf("Verify = %v, want ErrUnauthorizedWebhook", err)
			}
		})
	}
}

func TestVerify_MalformedTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	v := fixedVerifier(true, 5*time.Minute, at)
	payload := map[string]any{"event_id": "evt-1"}

	for _, tsRaw := range []string{"", "not-a-number", "12.5"} {
		err := v.Verify([]string{"s3cret"}, "", tsRaw, "deadbeef", payload)
		if !errors.Is(err, repository.ErrUnauthorizedWebhook) {
			t.Errorf("Verify(ts=%q) = %v, want ErrUnauthorizedWebhook", tsRaw, err)
		}
	}
}

func TestVerify_MissingSignatureWhenRequired(t *testing.T) {
	v := fixedVerifier(true, 5*time.Minute, time.Now())
	err := v.Verify([]string{"s3cret"}, "s3cret", "", "", map[string]any{})
	if !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("Verify = %v, want ErrUnauthorizedWebhook when signatures are required", err)
	}
}

func TestVerify_SecretHeaderFallback(t *testing.T) {
	v := fixedVerifier(false, 5*time.Minute, time.Now())
	payload := map[string]any{"event_id": "evt-1"}

	if err := v.Verify([]string{"old", "s3cret"}, "s3cret", "", "", payload); err != nil {
		t.Errorf("Verify with matching secret header = %v, want nil", err)
	}
	if err := v.Verify([]string{"s3cret"}, "wrong", "", "", payload); !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("Verify with wrong secret header = %v, want ErrUnauthorizedWebhook", err)
	}
	if err := v.Verify([]string{"s3cret"}, "", "", "", payload); !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("Verify with no credentials = %v, want ErrUnauthorizedWebhook", err)
	}
}

func TestNewVerifier_EnforcesMinimumTTL(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	v := fixedVerifier(true, 0, at)
	payload := map[string]any{"event_id": "evt-1"}

	// Floor is 30s: 29s of skew passes, 31s does not.
	okRaw := strconv.FormatInt(at.Add(-29*time.Second).Unix(), 10)
	sig, err := Sign("s3cret", okRaw, payload)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if err := v.Verify([]string{"s3cret"}, "", okRaw, sig, payload); err != nil {
		t.Errorf("Verify at 29s skew = %v, want nil", err)
	}

	staleRaw := strconv.FormatInt(at.Add(-31*time.Second).Unix(), 10)
	sig, err = Sign("s3cret", staleRaw, payload)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if err := v.Verify([]string{"s3cret"}, "", staleRaw, sig, payload); !errors.Is(err, repository.ErrUnauthorizedWebhook) {
		t.Errorf("Verify at 31s skew = %v, want ErrUnauthorizedWebhook", err)
	}
}
