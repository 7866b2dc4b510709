package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusQueued     = "queued"
	JobStatusRunning    = "running"
	JobStatusSucceeded  = "succeeded"
	JobStatusDeadLetter = "dead_letter"
	JobStatusCanceled   = "canceled"
)

const (
	QueueDefault      = "default"
	QueueExports      = "exports"
	QueueAlerts       = "alerts"
	QueueIntegrations = "integrations"
)

// BackgroundJob is a unit of deferred work. Workers claim due queued jobs,
// execute the handler registered for JobType and record success or failure.
// attempts only increases; succeeded, dead_letter and canceled are terminal.
type BackgroundJob struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    *uuid.UUID     `gorm:"type:uuid;index" json:"tenant_id"`
	Queue       string         `gorm:"not null;default:default;index" json:"queue"`
	JobType     string         `gorm:"not null;index" json:"job_type"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status      string         `gorm:"not null;default:queued;index" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int            `gorm:"not null;default:5" json:"max_attempts"`
	RunAfter    time.Time      `gorm:"not null;index" json:"run_after"`
	WorkerID    string         `gorm:"size:80;index" json:"worker_id,omitempty"`
	LastError   string         `gorm:"size:500" json:"last_error,omitempty"`
	Result      datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`
	FinishedAt  *time.Time     `gorm:"" json:"finished_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (BackgroundJob) TableName() string {
	return "background_jobs"
}

// Terminal reports whether the job can never be claimed again.
func (j BackgroundJob) Terminal() bool {
	switch j.Status {
	case JobStatusSucceeded, JobStatusDeadLetter, JobStatusCanceled:
		return true
	}
	return false
}
