package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bookline/ballast/internal/domain/repository"
)

const minTTL = 30 * time.Second

// Verifier authenticates inbound webhook deliveries. Signed deliveries carry
// an HMAC over "{timestamp}.{canonical payload}"; unsigned ones may fall back
// to presenting a shared secret directly when signatures are optional.
type Verifier struct {
	required bool
	ttl      time.Duration
	now      func() time.Time
}

func NewVerifier(required bool, ttl time.Duration) *Verifier {
	if ttl < minTTL {
		ttl = minTTL
	}
	return &Verifier{required: required, ttl: ttl, now: time.Now}
}

// Verify checks one delivery against every secret candidate, so rotating
// secrets never drops valid traffic. All comparisons are constant time.
func (v *Verifier) Verify(secrets []string, secretHeader, timestampRaw, signatureRaw string, payload map[string]any) error {
	sig := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(signatureRaw)), "sha256=")
	if sig == "" {
		if v.required {
			return fmt.Errorf("%w: missing signature", repository.ErrUnauthorizedWebhook)
		}
		return v.verifySecretHeader(secrets, secretHeader)
	}

	tsRaw := strings.TrimSpace(timestampRaw)
	if tsRaw == "" {
		return fmt.Errorf("%w: missing timestamp", repository.ErrUnauthorizedWebhook)
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", repository.ErrUnauthorizedWebhook)
	}
	skew := v.now().UTC().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(v.ttl.Seconds()) {
		return fmt.Errorf("%w: timestamp outside tolerance", repository.ErrUnauthorizedWebhook)
	}

	for _, secret := range secrets {
		expected, err := Sign(secret, tsRaw, payload)
		if err != nil {
			return err
		}
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("%w: signature mismatch", repository.ErrUnauthorizedWebhook)
}

func (v *Verifier) verifySecretHeader(secrets []string, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return fmt.Errorf("%w: missing credentials", repository.ErrUnauthorizedWebhook)
	}
	for _, secret := range secrets {
		if hmac.Equal([]byte(secret), []byte(header)) {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown secret", repository.ErrUnauthorizedWebhook)
}

// Sign computes the hex HMAC-SHA256 a sender attaches to a delivery.
func Sign(secret, timestampRaw string, payload map[string]any) (string, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestampRaw))
	mac.Write([]byte("."))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
