package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/cuongbtq/jobboard-be/internal/notification"
)

// State is the lifecycle state of a Scheduler
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// SchedulerConfig controls tier cadence and dispatch throttling
type SchedulerConfig struct {
	Location         *time.Location
	Specs            map[Frequency]string
	DispatchTimeout  time.Duration
	DispatchInterval time.Duration
}

// Result tallies one run
type Result struct {
	Frequency Frequency `json:"frequency"`
	Processed int       `json:"processed"`
	Sent      int       `json:"sent"`
	Errors    int       `json:"errors"`
}

// TierStatus describes one scheduled tier
type TierStatus struct {
	Frequency Frequency  `json:"frequency"`
	Spec      string     `json:"spec"`
	Scheduled bool       `json:"scheduled"`
	Running   bool       `json:"running"`
	Next      *time.Time `json:"next,omitempty"`
	Prev      *time.Time `json:"prev,omitempty"`
}

// Status is a snapshot of the scheduler
type Status struct {
	State     State           `json:"state"`
	Tiers     []TierStatus    `json:"tiers"`
	Reminders *ReminderStatus `json:"reminders,omitempty"`
}

// SchedulerOption customises a Scheduler
type SchedulerOption func(*Scheduler)

// WithRunLock adds a cross-process lock around every tier run
func WithRunLock(lock RunLock) SchedulerOption {
	return func(s *Scheduler) { s.runLock = lock }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler runs the daily, weekly and monthly digest tiers. Runs of one tier
// never overlap; different tiers may run concurrently.
type Scheduler struct {
	alerts     AlertStore
	jobs       JobSource
	dispatcher notification.Dispatcher
	runLock    RunLock
	cfg        SchedulerConfig
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	state    State
	cron     *cron.Cron
	entries  map[Frequency]cron.EntryID
	inFlight map[Frequency]bool
	cancel   context.CancelFunc

	interviews       InterviewStore
	reminderSpec     string
	reminderLead     time.Duration
	reminderEntry    cron.EntryID
	remindersRunning bool
}

// NewScheduler creates a stopped scheduler
func NewScheduler(
	alerts AlertStore,
	jobs JobSource,
	dispatcher notification.Dispatcher,
	cfg SchedulerConfig,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Scheduler{
		alerts:     alerts,
		jobs:       jobs,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		state:      StateStopped,
		entries:    make(map[Frequency]cron.EntryID),
		inFlight:   make(map[Frequency]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start registers one cron entry per configured tier and begins triggering
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return ErrSchedulerRunning
	}

	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	entries := make(map[Frequency]cron.EntryID)

	for _, tier := range BatchFrequencies {
		spec := s.cfg.Specs[tier]
		if spec == "" {
			continue
		}

		tier := tier
		id, err := c.AddFunc(spec, func() { s.runScheduled(ctx, tier) })
		if err != nil {
			cancel()
			return fmt.Errorf("failed to schedule %s alerts: %w", tier, err)
		}
		entries[tier] = id

		s.logger.Info("Scheduled alert tier",
			slog.String("frequency", string(tier)),
			slog.String("spec", spec),
			slog.String("timezone", s.cfg.Location.String()),
		)
	}

	var reminderEntry cron.EntryID
	if s.interviews != nil && s.reminderSpec != "" {
		id, err := c.AddFunc(s.reminderSpec, func() { s.runScheduledReminders(ctx) })
		if err != nil {
			cancel()
			return fmt.Errorf("failed to schedule interview reminders: %w", err)
		}
		reminderEntry = id

		s.logger.Info("Scheduled interview reminders",
			slog.String("spec", s.reminderSpec),
			slog.Duration("lead_time", s.reminderLead),
		)
	}

	c.Start()

	s.cron = c
	s.reminderEntry = reminderEntry
	s.entries = entries
	s.cancel = cancel
	s.state = StateRunning

	s.logger.Info("Alert scheduler started", slog.Int("tiers", len(entries)))
	return nil
}

// Stop removes every tier entry and waits for in-progress runs. If ctx ends
// first, in-progress runs are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}

	c := s.cron
	cancel := s.cancel
	for tier, id := range s.entries {
		c.Remove(id)
		delete(s.entries, tier)
	}
	if s.reminderEntry != 0 {
		c.Remove(s.reminderEntry)
		s.reminderEntry = 0
	}
	s.cron = nil
	s.cancel = nil
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.Info("Stopping alert scheduler")

	done := c.Stop()
	defer cancel()

	select {
	case <-done.Done():
		s.logger.Info("Alert scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Alert scheduler stop timed out, cancelling in-progress runs")
		return fmt.Errorf("failed to stop alert scheduler: %w", ctx.Err())
	}
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status reports per-tier schedule and run state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{State: s.state}
	for _, tier := range BatchFrequencies {
		ts := TierStatus{
			Frequency: tier,
			Spec:      s.cfg.Specs[tier],
			Running:   s.inFlight[tier],
		}
		if id, ok := s.entries[tier]; ok && s.cron != nil {
			entry := s.cron.Entry(id)
			ts.Scheduled = true
			if !entry.Next.IsZero() {
				next := entry.Next
				ts.Next = &next
			}
			if !entry.Prev.IsZero() {
				prev := entry.Prev
				ts.Prev = &prev
			}
		}
		status.Tiers = append(status.Tiers, ts)
	}
	status.Reminders = s.reminderStatus()
	return status
}

func (s *Scheduler) runScheduled(ctx context.Context, tier Frequency) {
	res, err := s.RunBatchCycle(ctx, tier)
	if err != nil {
		if errors.Is(err, ErrTierBusy) {
			s.logger.Warn("Skipping scheduled alert run",
				slog.String("frequency", string(tier)),
				slog.Any("error", err),
			)
			return
		}
		s.logger.Error("Scheduled alert run failed",
			slog.String("frequency", string(tier)),
			slog.Int("processed", res.Processed),
			slog.Any("error", err),
		)
	}
}

func (s *Scheduler) begin(tier Frequency) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[tier] {
		return false
	}
	s.inFlight[tier] = true
	return true
}

func (s *Scheduler) end(tier Frequency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, tier)
}

// RunBatchCycle evaluates every active alert of tier against the jobs posted
// in the tier window and sends one digest per alert with matches. Per-alert
// failures are logged and counted in the Result; only failures to load the
// alert or job sets abort the run.
func (s *Scheduler) RunBatchCycle(ctx context.Context, tier Frequency) (Result, error) {
	res := Result{Frequency: tier}

	if !tier.IsBatch() {
		return res, fmt.Errorf("%w: %q is not a batch tier", ErrUnknownFrequency, tier)
	}

	if !s.begin(tier) {
		return res, fmt.Errorf("%w: %s", ErrTierBusy, tier)
	}
	defer s.end(tier)

	if s.runLock != nil {
		lockCtx, release, err := s.runLock.Acquire(ctx, tier)
		if err != nil {
			return res, err
		}
		ctx = lockCtx
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release tier lock",
					slog.String("frequency", string(tier)),
					slog.Any("error", err),
				)
			}
		}()
	}

	now := s.now()
	since := tier.WindowStart(now)

	logger := s.logger.With(slog.String("frequency", string(tier)))
	logger.Info("Starting batch alert run",
		slog.Time("since", since),
		slog.Time("now", now),
	)

	alerts, err := s.alerts.ListActiveAlerts(ctx, tier)
	if err != nil {
		return res, fmt.Errorf("failed to list %s alerts: %w", tier, err)
	}

	if len(alerts) == 0 {
		logger.Info("No active alerts for tier")
		return res, nil
	}

	jobs, err := s.jobs.ListActiveJobs(ctx, since)
	if err != nil {
		return res, fmt.Errorf("failed to list jobs since %s: %w", since.Format(time.RFC3339), err)
	}
	jobs = createdNoLaterThan(jobs, now)

	limiter := newDispatchLimiter(s.cfg.DispatchInterval)

	for i := range alerts {
		if err := ctx.Err(); err != nil {
			logger.Warn("Batch alert run interrupted",
				slog.Int("processed", res.Processed),
				slog.Int("remaining", len(alerts)-i),
			)
			return res, fmt.Errorf("batch run for %s interrupted: %w", tier, context.Cause(ctx))
		}

		alert := &alerts[i]
		res.Processed++

		sent, err := s.processAlert(ctx, alert, jobs, since, now, limiter)
		if sent {
			res.Sent++
		}
		if err != nil {
			res.Errors++
			logger.Error("Failed to process alert",
				slog.String("alert_id", alert.ID),
				slog.String("user_id", alert.UserID),
				slog.Any("error", err),
			)
		}
	}

	logger.Info("Batch alert run completed",
		slog.Int("alerts", res.Processed),
		slog.Int("digests_sent", res.Sent),
		slog.Int("errors", res.Errors),
		slog.Int("candidate_jobs", len(jobs)),
	)

	return res, nil
}

// processAlert matches, dispatches and records bookkeeping for one alert.
// LastChecked advances even when the dispatch fails; it stays untouched when
// the alert is malformed.
func (s *Scheduler) processAlert(
	ctx context.Context,
	alert *JobAlert,
	jobs []JobCandidate,
	since, now time.Time,
	limiter *rate.Limiter,
) (sent bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
			err = fmt.Errorf("%w: panic while processing: %v", ErrMalformedAlert, r)
		}
	}()

	if alert.ID == "" {
		return false, fmt.Errorf("%w: missing id", ErrMalformedAlert)
	}
	if alert.Preferences.Email && alert.Owner.Email == "" {
		return false, fmt.Errorf("%w: alert %s has no owner email", ErrMalformedAlert, alert.ID)
	}

	matches := FindMatches(alert, jobsInWindow(jobs, since, alert.LastChecked))

	progress := AlertProgress{AlertID: alert.ID, CheckedAt: now}

	var dispatchErr error
	if len(matches) > 0 && alert.Preferences.Email {
		msg := digestMessage(alert, matches, now)
		dispatchErr = dispatchWithTimeout(ctx, s.dispatcher, limiter, s.cfg.DispatchTimeout, msg)
		if dispatchErr == nil {
			sentAt := now
			progress.NotifiedAt = &sentAt
			progress.MatchesDelta = len(matches)
			sent = true

			s.logger.Info("Digest dispatched",
				slog.String("alert_id", alert.ID),
				slog.String("message_id", msg.ID),
				slog.Int("matches", len(matches)),
			)
		}
	}

	if err := s.alerts.RecordAlertProgress(ctx, progress); err != nil {
		return sent, errors.Join(
			wrapDispatchErr(dispatchErr, alert.ID),
			fmt.Errorf("failed to save alert %s: %w", alert.ID, err),
		)
	}

	return sent, wrapDispatchErr(dispatchErr, alert.ID)
}

func wrapDispatchErr(err error, alertID string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to dispatch digest for alert %s: %w", alertID, err)
}

// jobsInWindow keeps jobs created at or after since, or strictly after
// lastChecked when that is later.
func jobsInWindow(jobs []JobCandidate, since time.Time, lastChecked *time.Time) []JobCandidate {
	var out []JobCandidate
	for _, j := range jobs {
		if lastChecked != nil && lastChecked.After(since) {
			if j.CreatedAt.After(*lastChecked) {
				out = append(out, j)
			}
			continue
		}
		if !j.CreatedAt.Before(since) {
			out = append(out, j)
		}
	}
	return out
}

func createdNoLaterThan(jobs []JobCandidate, now time.Time) []JobCandidate {
	out := jobs[:0:0]
	for _, j := range jobs {
		if !j.CreatedAt.After(now) {
			out = append(out, j)
		}
	}
	return out
}

func newDispatchLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// dispatchWithTimeout waits for the limiter, then bounds the dispatch by
// timeout even if the dispatcher ignores its context.
func dispatchWithTimeout(
	ctx context.Context,
	d notification.Dispatcher,
	limiter *rate.Limiter,
	timeout time.Duration,
	msg notification.Message,
) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("dispatch throttle: %w", err)
	}

	if timeout <= 0 {
		return d.Dispatch(ctx, msg)
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- d.Dispatch(dctx, msg)
	}()

	select {
	case err := <-errc:
		return err
	case <-dctx.Done():
		return fmt.Errorf("dispatch of message %s timed out: %w", msg.ID, dctx.Err())
	}
}
