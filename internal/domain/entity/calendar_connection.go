package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProviderGoogle  = "google"
	ProviderOutlook = "outlook"
)

// CalendarConnection holds a tenant's link to an external calendar provider.
// WebhookSecrets is a comma-separated list so secrets can rotate without
// downtime; every candidate is tried during webhook verification.
type CalendarConnection struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID           uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_calendar_connection,priority:1" json:"tenant_id"`
	Provider           string    `gorm:"not null;index;uniqueIndex:uq_calendar_connection,priority:2" json:"provider"`
	ExternalCalendarID string    `gorm:"not null;uniqueIndex:uq_calendar_connection,priority:3" json:"external_calendar_id"`
	SyncDirection      string    `gorm:"not null;default:bidirectional" json:"sync_direction"`
	WebhookSecrets     string    `gorm:"" json:"-"`
	OutboundURL        string    `gorm:"size:500" json:"outbound_url,omitempty"`
	Enabled            bool      `gorm:"not null;default:true;index" json:"enabled"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}

// SecretList splits the stored comma-separated secrets, dropping blanks.
func (c CalendarConnection) SecretList() []string {
	var out []string
	for _, part := range strings.Split(c.WebhookSecrets, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ValidProvider reports whether the provider name is one the system syncs with.
func ValidProvider(provider string) bool {
	switch provider {
	case ProviderGoogle, ProviderOutlook:
		return true
	}
	return false
}
