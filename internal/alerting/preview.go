package alerting

import (
	"context"
	"fmt"
	"time"
)

// TestResult is the outcome of a dry run of one alert
type TestResult struct {
	Since           time.Time
	TotalRecentJobs int
	Matches         []JobCandidate
}

// TestAlert evaluates alert against jobs created in the window ending at now.
// It never dispatches and never touches bookkeeping.
func TestAlert(ctx context.Context, jobs JobSource, alert *JobAlert, window time.Duration, now time.Time) (*TestResult, error) {
	since := now.Add(-window)

	candidates, err := jobs.ListActiveJobs(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for alert test: %w", err)
	}

	return &TestResult{
		Since:           since,
		TotalRecentJobs: len(candidates),
		Matches:         FindMatches(alert, candidates),
	}, nil
}
