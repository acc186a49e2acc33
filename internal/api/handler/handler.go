package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
	"github.com/cuongbtq/jobboard-be/internal/api/storage"
)

// ContextUserID is the gin context key holding the authenticated user id
const ContextUserID = "user_id"

const (
	defaultPage  = 1
	defaultLimit = 10
)

type AlertRepository interface {
	CreateAlert(ctx context.Context, a *model.JobAlert) error
	GetAlert(ctx context.Context, userID, alertID string) (*model.JobAlert, error)
	ListAlerts(ctx context.Context, filter storage.AlertFilter) ([]model.JobAlert, int, error)
	UpdateAlert(ctx context.Context, a *model.JobAlert) error
	ToggleAlert(ctx context.Context, userID, alertID string) (*model.JobAlert, error)
	DeleteAlert(ctx context.Context, userID, alertID string) error
}

type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, userID, subscriptionID string) (*model.SubscriptionWithCompany, error)
	GetSubscriptionByCompany(ctx context.Context, userID, companyID string) (*model.SubscriptionWithCompany, error)
	ListSubscriptions(ctx context.Context, userID string, page storage.Page) ([]model.SubscriptionWithCompany, int, error)
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	ToggleSubscription(ctx context.Context, userID, subscriptionID string) error
	DeleteSubscription(ctx context.Context, userID, subscriptionID string) error
}

type CompanyRepository interface {
	GetActiveCompany(ctx context.Context, companyID string) (*model.Company, error)
}

type JobRepository interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, jobID string) (*model.JobWithCompany, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.JobWithCompany, error)
	SoftDeleteJob(ctx context.Context, userID, jobID string) error
}

type ApplicationRepository interface {
	CreateApplication(ctx context.Context, app *model.Application) error
	ListApplications(ctx context.Context, userID string) ([]model.ApplicationWithJob, error)
}

// JobNotifier is told about every job that was just created
type JobNotifier interface {
	OnJobCreated(job alerting.JobCandidate, company alerting.Company)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Alerts        AlertRepository
	Subscriptions SubscriptionRepository
	Companies     CompanyRepository
	Jobs          JobRepository
	Applications  ApplicationRepository
	JobSource     alerting.JobSource
	Notifier      JobNotifier
	Health        HealthChecker
	TestWindow    time.Duration
	ServiceName   string
	Now           func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func userID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func normalizePage(page, limit int) storage.Page {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return storage.Page{Page: page, Limit: limit}
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// respondStoreError maps storage sentinels onto HTTP statuses and logs the rest
func respondStoreError(c *gin.Context, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrAlertNotFound),
		errors.Is(err, domain.ErrSubscriptionNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrCompanyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSubscriptionExists),
		errors.Is(err, domain.ErrDuplicateApplication):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Failed to "+action, slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
