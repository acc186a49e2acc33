package alerting

import "errors"

var (
	// ErrUnknownFrequency is returned for a tier name that is not recognised,
	// or for the immediate tier where a batch tier is required
	ErrUnknownFrequency = errors.New("unknown notification frequency")

	// ErrSchedulerRunning is returned by Start on a running scheduler
	ErrSchedulerRunning = errors.New("alert scheduler already running")

	// ErrTierBusy is returned when a run of the same tier is already in progress
	ErrTierBusy = errors.New("batch run already in progress for tier")

	// ErrTierLockLost aborts a run whose cross-process tier lock expired or
	// could not be renewed
	ErrTierLockLost = errors.New("tier lock lost")

	// ErrRemindersDisabled is returned when no interview store is configured
	ErrRemindersDisabled = errors.New("interview reminders are not configured")

	// ErrReminderRunBusy is returned when a reminder run is already in progress
	ErrReminderRunBusy = errors.New("interview reminder run already in progress")

	// ErrMalformedAlert marks a stored alert that cannot be processed
	ErrMalformedAlert = errors.New("malformed job alert")
)
