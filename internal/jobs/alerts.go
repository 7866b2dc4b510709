package jobs

import (
	"fmt"

	"github.com/bookline/ballast/internal/domain/repository"
)

// dueBacklogThreshold is the due-queued count above which the backlog alert fires.
const dueBacklogThreshold = 50

// Alert is a health finding worth routing to operators.
type Alert struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// DispatchReport summarizes one alert fan-out pass.
type DispatchReport struct {
	Alerts     int `json:"alerts_count"`
	Routes     int `json:"routes_count"`
	Dispatched int `json:"dispatched_jobs"`
}

// EvaluateHealth derives alerts from the job and outbox health summaries.
// Dead-lettered work and stale running jobs are high severity; a due backlog
// is medium.
func EvaluateHealth(jobHealth repository.JobHealth, outboxHealth repository.OutboxHealth) []Alert {
	var alerts []Alert
	if jobHealth.DeadLetter > 0 {
		alerts = append(alerts, Alert{
			Code:     "jobs_dead_letter_detected",
			Severity: "high",
			Message:  fmt.Sprintf("Detected %d dead-letter jobs", jobHealth.DeadLetter),
		})
	}
	if jobHealth.StaleRunning > 0 {
		alerts = append(alerts, Alert{
			Code:     "jobs_stale_running_detected",
			Severity: "high",
			Message:  fmt.Sprintf("Detected %d stale running jobs", jobHealth.StaleRunning),
		})
	}
	if jobHealth.DueQueued >= dueBacklogThreshold {
		alerts = append(alerts, Alert{
			Code:     "jobs_queue_backlog_detected",
			Severity: "medium",
			Message:  fmt.Sprintf("Detected backlog of %d due queued jobs", jobHealth.DueQueued),
		})
	}
	if outboxHealth.DeadLetter > 0 {
		alerts = append(alerts, Alert{
			Code:     "outbox_dead_letter_detected",
			Severity: "high",
			Message:  fmt.Sprintf("Detected %d outbox dead-letter events", outboxHealth.DeadLetter),
		})
	}
	return alerts
}
