package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuongbtq/jobboard-be/internal/notification"
)

// ImmediateConfig bounds the work done for one job creation
type ImmediateConfig struct {
	DispatchTimeout  time.Duration
	DispatchInterval time.Duration
	// RunTimeout caps a detached OnJobCreated run
	RunTimeout time.Duration
}

// ImmediateResult tallies one job creation fan-out
type ImmediateResult struct {
	Subscriptions Result
	Alerts        Result
}

// ImmediateNotifier fans a newly created job out to company subscribers and
// immediate-frequency alerts
type ImmediateNotifier struct {
	alerts     AlertStore
	subs       SubscriptionStore
	dispatcher notification.Dispatcher
	cfg        ImmediateConfig
	logger     *slog.Logger
	now        func() time.Time

	wg sync.WaitGroup
}

// NewImmediateNotifier creates an ImmediateNotifier
func NewImmediateNotifier(
	alerts AlertStore,
	subs SubscriptionStore,
	dispatcher notification.Dispatcher,
	cfg ImmediateConfig,
	logger *slog.Logger,
) *ImmediateNotifier {
	return &ImmediateNotifier{
		alerts:     alerts,
		subs:       subs,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// OnJobCreated runs NotifyJobCreated in the background and returns at once.
// Use Wait to drain outstanding runs on shutdown.
func (n *ImmediateNotifier) OnJobCreated(job JobCandidate, company Company) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx := context.Background()
		if n.cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, n.cfg.RunTimeout)
			defer cancel()
		}

		n.NotifyJobCreated(ctx, &job, &company)
	}()
}

// Wait blocks until background runs finish or ctx ends
func (n *ImmediateNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed waiting for job notifications: %w", ctx.Err())
	}
}

// NotifyJobCreated runs the subscription fan-out and the immediate alert scan
// for job. Failures are logged per recipient and never returned.
func (n *ImmediateNotifier) NotifyJobCreated(ctx context.Context, job *JobCandidate, company *Company) ImmediateResult {
	var res ImmediateResult
	res.Subscriptions.Frequency = FrequencyImmediate
	res.Alerts.Frequency = FrequencyImmediate

	if !job.Eligible() {
		n.logger.Debug("Skipping notifications for inactive job", slog.String("job_id", job.ID))
		return res
	}

	if job.CompanyName == "" {
		job.CompanyName = company.Name
	}

	limiter := newDispatchLimiter(n.cfg.DispatchInterval)
	logger := n.logger.With(
		slog.String("job_id", job.ID),
		slog.String("company_id", company.ID),
	)

	n.notifySubscribers(ctx, logger, job, company, limiter, &res.Subscriptions)
	n.notifyImmediateAlerts(ctx, logger, job, limiter, &res.Alerts)

	logger.Info("Job creation notifications processed",
		slog.Int("subscriptions", res.Subscriptions.Processed),
		slog.Int("subscription_sent", res.Subscriptions.Sent),
		slog.Int("alerts", res.Alerts.Processed),
		slog.Int("alert_sent", res.Alerts.Sent),
		slog.Int("errors", res.Subscriptions.Errors+res.Alerts.Errors),
	)

	return res
}

func (n *ImmediateNotifier) notifySubscribers(
	ctx context.Context,
	logger *slog.Logger,
	job *JobCandidate,
	company *Company,
	limiter *rate.Limiter,
	res *Result,
) {
	subs, err := n.subs.ListActiveSubscriptions(ctx, company.ID)
	if err != nil {
		res.Errors++
		logger.Error("Failed to list company subscriptions", slog.Any("error", err))
		return
	}

	for i := range subs {
		sub := &subs[i]
		if !MatchesSubscription(sub, job) || !sub.Preferences.Email {
			continue
		}
		res.Processed++

		if sub.Owner.Email == "" {
			res.Errors++
			logger.Error("Subscription owner has no email", slog.String("subscription_id", sub.ID))
			continue
		}

		msg := companyJobMessage(sub, job, company, n.now())
		if err := dispatchWithTimeout(ctx, n.dispatcher, limiter, n.cfg.DispatchTimeout, msg); err != nil {
			res.Errors++
			logger.Error("Failed to dispatch company job notification",
				slog.String("subscription_id", sub.ID),
				slog.Any("error", err),
			)
			continue
		}
		res.Sent++

		if err := n.subs.RecordSubscriptionDelivery(ctx, sub.ID, n.now()); err != nil {
			res.Errors++
			logger.Error("Failed to save subscription",
				slog.String("subscription_id", sub.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (n *ImmediateNotifier) notifyImmediateAlerts(
	ctx context.Context,
	logger *slog.Logger,
	job *JobCandidate,
	limiter *rate.Limiter,
	res *Result,
) {
	alerts, err := n.alerts.ListActiveAlerts(ctx, FrequencyImmediate)
	if err != nil {
		res.Errors++
		logger.Error("Failed to list immediate alerts", slog.Any("error", err))
		return
	}

	for i := range alerts {
		alert := &alerts[i]
		if !Matches(&alert.Criteria, job) || !alert.Preferences.Email {
			continue
		}
		res.Processed++

		if alert.Owner.Email == "" {
			res.Errors++
			logger.Error("Alert owner has no email", slog.String("alert_id", alert.ID))
			continue
		}

		msg := customAlertMessage(alert, job, n.now())
		if err := dispatchWithTimeout(ctx, n.dispatcher, limiter, n.cfg.DispatchTimeout, msg); err != nil {
			res.Errors++
			logger.Error("Failed to dispatch job alert",
				slog.String("alert_id", alert.ID),
				slog.Any("error", err),
			)
			continue
		}
		res.Sent++

		sentAt := n.now()
		progress := AlertProgress{
			AlertID:      alert.ID,
			CheckedAt:    sentAt,
			NotifiedAt:   &sentAt,
			MatchesDelta: 1,
		}

		if err := n.alerts.RecordAlertProgress(ctx, progress); err != nil {
			res.Errors++
			logger.Error("Failed to save alert",
				slog.String("alert_id", alert.ID),
				slog.Any("error", err),
			)
		}
	}
}
