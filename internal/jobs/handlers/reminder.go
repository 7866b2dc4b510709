package handlers

import (
	"context"
	"fmt"

	"github.com/bookline/ballast/internal/jobs"
)

// sendReminder parks the reminder payload as an artifact. Actual delivery
// channels live outside this system; the artifact is the handoff point.
func (d Deps) sendReminder(ctx context.Context, scope jobs.Scope, payload map[string]any) (any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	name := fmt.Sprintf("reminder_job_%s.json", scope.Job.ID)
	path, _, err := d.writeArtifact("reminders", name, payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{"stored": path}, nil
}
