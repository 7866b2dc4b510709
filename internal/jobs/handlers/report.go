package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookline/ballast/internal/jobs"
)

type reportPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// generateReport aggregates one month of bookings into a totals artifact.
func (d Deps) generateReport(ctx context.Context, scope jobs.Scope, payload reportPayload) (any, error) {
	if scope.Job.TenantID == nil {
		return nil, errors.New("report generation requires a tenant")
	}
	if payload.Year < 1 || payload.Month < 1 || payload.Month > 12 {
		return nil, fmt.Errorf("invalid report period %d-%d", payload.Year, payload.Month)
	}

	totals, err := d.Bookings.MonthlyTotals(ctx, *scope.Job.TenantID, payload.Year, payload.Month)
	if err != nil {
		return nil, err
	}

	monthLabel := fmt.Sprintf("%04d-%02d", payload.Year, payload.Month)
	name := fmt.Sprintf("tenant_%s_%s_%s.json", scope.Job.TenantID, monthLabel, scope.Job.ID)
	path, size, err := d.writeArtifact("reports", name, totals)
	if err != nil {
		return nil, err
	}
	return map[string]any{"file": path, "size_bytes": size}, nil
}
