package domain

import (
	"errors"
)

const (
	CompanyStatusActive = "active"

	ApplicationStatusPending = "pending"
)

var (
	ErrJobNotFound          = errors.New("job not found")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrAlertNotFound        = errors.New("job alert not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriptionExists   = errors.New("already subscribed to this company")
	ErrDuplicateApplication = errors.New("already applied to this job")
)
