package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
)

// Scheduler is the part of alerting.Scheduler the ops endpoints drive
type Scheduler interface {
	Status() alerting.Status
	RunBatchCycle(ctx context.Context, tier alerting.Frequency) (alerting.Result, error)
	RunInterviewReminders(ctx context.Context) (alerting.ReminderResult, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter serves worker health and, when scheduler is non-nil, the alert
// scheduler admin endpoints. Manual runs outlive the request that started
// them and are bounded by runTimeout instead.
func NewRouter(scheduler Scheduler, health HealthChecker, runTimeout time.Duration, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		if err := health.HealthCheck(c.Request.Context()); err != nil {
			logger.Error("Health check failed", slog.Any("error", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	admin := r.Group("/api/v1/admin/alert-scheduler")
	admin.GET("/status", func(c *gin.Context) {
		if scheduler == nil {
			c.JSON(http.StatusOK, alerting.Status{State: alerting.StateStopped})
			return
		}
		c.JSON(http.StatusOK, scheduler.Status())
	})

	admin.POST("/run/:frequency", func(c *gin.Context) {
		if scheduler == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Alert scheduler is disabled"})
			return
		}

		tier, err := alerting.ParseFrequency(c.Param("frequency"))
		if err != nil || !tier.IsBatch() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frequency must be daily, weekly or monthly"})
			return
		}

		logger.Info("Manual alert run requested", slog.String("frequency", string(tier)))

		ctx, cancel := runContext(c, runTimeout)
		defer cancel()

		res, err := scheduler.RunBatchCycle(ctx, tier)
		switch {
		case errors.Is(err, alerting.ErrTierBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case err != nil:
			logger.Error("Manual alert run failed",
				slog.String("frequency", string(tier)),
				slog.Any("error", err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run alerts"})
		default:
			c.JSON(http.StatusOK, res)
		}
	})

	r.POST("/api/v1/admin/interview-reminders/run", func(c *gin.Context) {
		if scheduler == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Alert scheduler is disabled"})
			return
		}

		logger.Info("Manual interview reminder run requested")

		ctx, cancel := runContext(c, runTimeout)
		defer cancel()

		res, err := scheduler.RunInterviewReminders(ctx)
		switch {
		case errors.Is(err, alerting.ErrReminderRunBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, alerting.ErrRemindersDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case err != nil:
			logger.Error("Manual interview reminder run failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send interview reminders"})
		default:
			c.JSON(http.StatusOK, res)
		}
	})

	return r
}

// runContext detaches a manual run from the client connection so a dropped
// request cannot leave a tier half processed
func runContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(c.Request.Context())
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
