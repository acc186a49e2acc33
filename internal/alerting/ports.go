package alerting

import (
	"context"
	"time"
)

// JobSource lists candidate jobs
type JobSource interface {
	// ListActiveJobs returns active, non-deleted jobs created at or after since
	ListActiveJobs(ctx context.Context, since time.Time) ([]JobCandidate, error)
}

// AlertProgress is the bookkeeping recorded after one evaluation of an
// alert. Stores apply it atomically: MatchesDelta is added to the running
// total and timestamps never move backwards.
type AlertProgress struct {
	AlertID      string
	CheckedAt    time.Time
	NotifiedAt   *time.Time
	MatchesDelta int
}

// AlertStore loads alerts for delivery and persists their bookkeeping
type AlertStore interface {
	ListActiveAlerts(ctx context.Context, frequency Frequency) ([]JobAlert, error)
	RecordAlertProgress(ctx context.Context, p AlertProgress) error
}

// SubscriptionStore loads company subscribers and persists their bookkeeping
type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context, companyID string) ([]Subscription, error)
	// RecordSubscriptionDelivery counts one more notification sent at sentAt
	RecordSubscriptionDelivery(ctx context.Context, subscriptionID string, sentAt time.Time) error
}

// InterviewStore finds interviews due a reminder and records the reminders
// that went out
type InterviewStore interface {
	// ListDueInterviews returns scheduled or confirmed interviews starting in
	// [from, to] whose reminder has not been sent
	ListDueInterviews(ctx context.Context, from, to time.Time) ([]Interview, error)
	// ClaimReminder marks the reminder as sent at sentAt. It reports false
	// when another run claimed it first.
	ClaimReminder(ctx context.Context, interviewID string, sentAt time.Time) (bool, error)
	// ReleaseReminder undoes a claim whose dispatch failed
	ReleaseReminder(ctx context.Context, interviewID string) error
}

// RunLock serialises runs of one tier across processes. Acquire returns
// ErrTierBusy when another holder owns the tier. The returned context is
// derived from ctx and is cancelled with ErrTierLockLost if the lock cannot
// be kept for the whole run; release must be called once the run ends.
type RunLock interface {
	Acquire(ctx context.Context, tier Frequency) (context.Context, func(context.Context) error, error)
}
