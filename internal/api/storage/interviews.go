package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

var interviewColumns = []string{
	"id", "application_id", "user_id", "job_id", "company_id",
	"type", "round", "scheduled_at", "duration_minutes",
	"location_type", "address", "meeting_link", "phone_number",
	"interviewers", "status", "preparation_notes",
	"reminder_sent", "reminder_sent_at", "created_at", "updated_at",
}

// ListDueInterviews returns scheduled or confirmed interviews starting in
// [from, to] that have not been reminded, soonest first
func (s *Storage) ListDueInterviews(ctx context.Context, from, to time.Time) ([]alerting.Interview, error) {
	query := fmt.Sprintf(`
		SELECT %s,
			j.title AS job_title, c.name AS company_name,
			u.email AS owner_email, u.first_name AS owner_first_name
		FROM interviews i
		JOIN jobs j ON j.id = i.job_id
		JOIN companies c ON c.id = i.company_id
		JOIN users u ON u.id = i.user_id
		WHERE i.scheduled_at BETWEEN $1 AND $2
			AND i.status IN ($3, $4)
			AND i.reminder_sent = FALSE
			AND u.is_deleted = FALSE
		ORDER BY i.scheduled_at, i.id
	`, columns("i", interviewColumns))

	var rows []model.InterviewForReminder
	if err := s.db.SelectContext(ctx, &rows, query, from, to,
		model.InterviewStatusScheduled, model.InterviewStatusConfirmed); err != nil {
		return nil, fmt.Errorf("failed to list interviews due a reminder: %w", err)
	}

	interviews := make([]alerting.Interview, len(rows))
	for i := range rows {
		interviews[i] = rows[i].ToAlerting()
	}

	return interviews, nil
}

// ClaimReminder flips reminder_sent only if nobody has yet
func (s *Storage) ClaimReminder(ctx context.Context, interviewID string, sentAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interviews SET reminder_sent = TRUE, reminder_sent_at = $2, updated_at = NOW()
		WHERE id = $1 AND reminder_sent = FALSE
	`, interviewID, sentAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder for interview %s: %w", interviewID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n == 1, nil
}

func (s *Storage) ReleaseReminder(ctx context.Context, interviewID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE interviews SET reminder_sent = FALSE, reminder_sent_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, interviewID)
	if err != nil {
		return fmt.Errorf("failed to release reminder for interview %s: %w", interviewID, err)
	}

	return nil
}
