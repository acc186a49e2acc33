package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// ReminderResult tallies one interview reminder run
type ReminderResult struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// ReminderStatus describes the interview reminder entry
type ReminderStatus struct {
	Spec      string     `json:"spec"`
	LeadTime  string     `json:"lead_time"`
	Scheduled bool       `json:"scheduled"`
	Running   bool       `json:"running"`
	Next      *time.Time `json:"next,omitempty"`
	Prev      *time.Time `json:"prev,omitempty"`
}

// WithInterviewReminders adds a cron entry that reminds candidates of
// interviews starting within lead
func WithInterviewReminders(store InterviewStore, spec string, lead time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.interviews = store
		s.reminderSpec = spec
		s.reminderLead = lead
	}
}

func (s *Scheduler) runScheduledReminders(ctx context.Context) {
	res, err := s.RunInterviewReminders(ctx)
	if err != nil {
		if errors.Is(err, ErrReminderRunBusy) {
			s.logger.Warn("Skipping scheduled interview reminder run", slog.Any("error", err))
			return
		}
		s.logger.Error("Scheduled interview reminder run failed",
			slog.Int("sent", res.Sent),
			slog.Any("error", err),
		)
	}
}

// RunInterviewReminders sends one reminder per interview starting in the
// next lead period. Each reminder is claimed before it is sent so concurrent
// workers never remind twice; a failed dispatch gives the claim back for the
// next run.
func (s *Scheduler) RunInterviewReminders(ctx context.Context) (ReminderResult, error) {
	var res ReminderResult

	if s.interviews == nil {
		return res, ErrRemindersDisabled
	}

	s.mu.Lock()
	if s.remindersRunning {
		s.mu.Unlock()
		return res, ErrReminderRunBusy
	}
	s.remindersRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.remindersRunning = false
		s.mu.Unlock()
	}()

	now := s.now()
	until := now.Add(s.reminderLead)

	due, err := s.interviews.ListDueInterviews(ctx, now, until)
	if err != nil {
		return res, fmt.Errorf("failed to list interviews due before %s: %w", until.Format(time.RFC3339), err)
	}
	res.Due = len(due)

	if len(due) == 0 {
		s.logger.Debug("No interviews due a reminder")
		return res, nil
	}

	limiter := newDispatchLimiter(s.cfg.DispatchInterval)

	for i := range due {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("interview reminder run interrupted: %w", context.Cause(ctx))
		}

		iv := &due[i]
		sent, err := s.remind(ctx, iv, limiter)
		switch {
		case err != nil:
			res.Errors++
			s.logger.Error("Failed to send interview reminder",
				slog.String("interview_id", iv.ID),
				slog.String("user_id", iv.UserID),
				slog.Any("error", err),
			)
		case sent:
			res.Sent++
		default:
			res.Skipped++
		}
	}

	s.logger.Info("Interview reminder run completed",
		slog.Int("due", res.Due),
		slog.Int("sent", res.Sent),
		slog.Int("skipped", res.Skipped),
		slog.Int("errors", res.Errors),
	)

	return res, nil
}

func (s *Scheduler) remind(ctx context.Context, iv *Interview, limiter *rate.Limiter) (bool, error) {
	if iv.Owner.Email == "" {
		return false, fmt.Errorf("interview %s has no candidate email", iv.ID)
	}

	sentAt := s.now()
	claimed, err := s.interviews.ClaimReminder(ctx, iv.ID, sentAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder for interview %s: %w", iv.ID, err)
	}
	if !claimed {
		return false, nil
	}

	msg := interviewReminderMessage(iv, sentAt)
	if err := dispatchWithTimeout(ctx, s.dispatcher, limiter, s.cfg.DispatchTimeout, msg); err != nil {
		dispatchErr := fmt.Errorf("failed to dispatch reminder for interview %s: %w", iv.ID, err)
		if rerr := s.interviews.ReleaseReminder(context.WithoutCancel(ctx), iv.ID); rerr != nil {
			return false, errors.Join(dispatchErr, fmt.Errorf("failed to release reminder claim: %w", rerr))
		}
		return false, dispatchErr
	}

	s.logger.Info("Interview reminder dispatched",
		slog.String("interview_id", iv.ID),
		slog.String("message_id", msg.ID),
		slog.Time("scheduled_at", iv.ScheduledAt),
	)
	return true, nil
}

func (s *Scheduler) reminderStatus() *ReminderStatus {
	if s.interviews == nil {
		return nil
	}

	rs := &ReminderStatus{
		Spec:     s.reminderSpec,
		LeadTime: s.reminderLead.String(),
		Running:  s.remindersRunning,
	}
	if s.reminderEntry != 0 && s.cron != nil {
		entry := s.cron.Entry(s.reminderEntry)
		rs.Scheduled = true
		if !entry.Next.IsZero() {
			next := entry.Next
			rs.Next = &next
		}
		if !entry.Prev.IsZero() {
			prev := entry.Prev
			rs.Prev = &prev
		}
	}
	return rs
}
