package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertChannelSlack   = "slack"
	AlertChannelTeams   = "teams"
	AlertChannelWebhook = "webhook"
	AlertChannelMail    = "mail"
)

// SeverityRank orders alert severities so routes can filter on a minimum.
var SeverityRank = map[string]int{
	"info":     10,
	"low":      20,
	"medium":   30,
	"high":     40,
	"critical": 50,
}

// AlertRoute is a delivery target for pipeline health alerts. Alerts at or
// above MinSeverity fan out to the route as alert_delivery jobs.
type AlertRoute struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_alert_route,priority:1" json:"tenant_id"`
	Channel     string    `gorm:"not null;index;uniqueIndex:uq_alert_route,priority:2" json:"channel"`
	Target      string    `gorm:"not null;size:500;uniqueIndex:uq_alert_route,priority:3" json:"target"`
	MinSeverity string    `gorm:"not null;default:medium" json:"min_severity"`
	Enabled     bool      `gorm:"not null;default:true;index" json:"enabled"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (AlertRoute) TableName() string {
	return "alert_routes"
}
