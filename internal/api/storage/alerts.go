package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

var alertColumns = []string{
	"id", "user_id", "name", "keywords", "skills",
	"location_type", "location_city", "location_state", "location_country", "location_radius_km",
	"job_types", "experience_levels", "salary_min", "salary_max", "salary_currency",
	"industries", "companies", "exclude_companies",
	"is_active", "frequency", "notify_email", "notify_push", "notify_sms",
	"last_checked", "last_notification_sent", "total_matches", "created_at", "updated_at",
}

type AlertFilter struct {
	UserID   string
	IsActive *bool
	Page     Page
}

func (s *Storage) CreateAlert(ctx context.Context, a *model.JobAlert) error {
	query := `
		INSERT INTO job_alerts (
			id, user_id, name, keywords, skills,
			location_type, location_city, location_state, location_country, location_radius_km,
			job_types, experience_levels, salary_min, salary_max, salary_currency,
			industries, companies, exclude_companies,
			is_active, frequency, notify_email, notify_push, notify_sms,
			total_matches, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21, $22, $23,
			0, $24, $25
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		a.ID, a.UserID, a.Name, a.Keywords, a.Skills,
		a.LocationType, a.LocationCity, a.LocationState, a.LocationCountry, a.LocationRadiusKM,
		a.JobTypes, a.ExperienceLevels, a.SalaryMin, a.SalaryMax, a.SalaryCurrency,
		a.Industries, a.Companies, a.ExcludeCompanies,
		a.IsActive, a.Frequency, a.NotifyEmail, a.NotifyPush, a.NotifySMS,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job alert: %w", err)
	}

	return nil
}

func (s *Storage) GetAlert(ctx context.Context, userID, alertID string) (*model.JobAlert, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM job_alerts a
		WHERE a.id = $1 AND a.user_id = $2
	`, columns("a", alertColumns))

	var alert model.JobAlert
	err := s.db.GetContext(ctx, &alert, query, alertID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job alert: %w", err)
	}

	return &alert, nil
}

// ListAlerts returns one page of the user's alerts, newest first, and the
// total number of alerts matching the filter
func (s *Storage) ListAlerts(ctx context.Context, filter AlertFilter) ([]model.JobAlert, int, error) {
	where := " WHERE a.user_id = $1"
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND a.is_active = $%d", argIdx)
		args = append(args, *filter.IsActive)
		argIdx++
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM job_alerts a"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count job alerts: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM job_alerts a", columns("a", alertColumns)) + where +
		fmt.Sprintf(" ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Page.Limit, filter.Page.offset())

	var alerts []model.JobAlert
	if err := s.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list job alerts: %w", err)
	}

	return alerts, total, nil
}

// UpdateAlert overwrites the user-editable fields of an alert owned by
// a.UserID. Bookkeeping columns are left alone.
func (s *Storage) UpdateAlert(ctx context.Context, a *model.JobAlert) error {
	query := `
		UPDATE job_alerts SET
			name = $3, keywords = $4, skills = $5,
			location_type = $6, location_city = $7, location_state = $8,
			location_country = $9, location_radius_km = $10,
			job_types = $11, experience_levels = $12,
			salary_min = $13, salary_max = $14, salary_currency = $15,
			industries = $16, companies = $17, exclude_companies = $18,
			is_active = $19, frequency = $20,
			notify_email = $21, notify_push = $22, notify_sms = $23,
			updated_at = $24
		WHERE id = $1 AND user_id = $2
	`

	res, err := s.db.ExecContext(
		ctx,
		query,
		a.ID, a.UserID,
		a.Name, a.Keywords, a.Skills,
		a.LocationType, a.LocationCity, a.LocationState,
		a.LocationCountry, a.LocationRadiusKM,
		a.JobTypes, a.ExperienceLevels,
		a.SalaryMin, a.SalaryMax, a.SalaryCurrency,
		a.Industries, a.Companies, a.ExcludeCompanies,
		a.IsActive, a.Frequency,
		a.NotifyEmail, a.NotifyPush, a.NotifySMS,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update job alert: %w", err)
	}

	return requireAffected(res, domain.ErrAlertNotFound)
}

// ToggleAlert flips is_active and returns the updated alert
func (s *Storage) ToggleAlert(ctx context.Context, userID, alertID string) (*model.JobAlert, error) {
	query := fmt.Sprintf(`
		UPDATE job_alerts SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING %s
	`, columns("job_alerts", alertColumns))

	var alert model.JobAlert
	err := s.db.GetContext(ctx, &alert, query, alertID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle job alert: %w", err)
	}

	return &alert, nil
}

func (s *Storage) DeleteAlert(ctx context.Context, userID, alertID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM job_alerts WHERE id = $1 AND user_id = $2", alertID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete job alert: %w", err)
	}

	return requireAffected(res, domain.ErrAlertNotFound)
}

// ListActiveAlerts returns the active alerts of one tier with their owner's
// contact details. Alerts of deleted users are skipped.
func (s *Storage) ListActiveAlerts(ctx context.Context, frequency alerting.Frequency) ([]alerting.JobAlert, error) {
	query := fmt.Sprintf(`
		SELECT %s, u.email AS owner_email, u.first_name AS owner_first_name
		FROM job_alerts a
		JOIN users u ON u.id = a.user_id
		WHERE a.is_active = TRUE AND a.frequency = $1 AND u.is_deleted = FALSE
		ORDER BY a.created_at, a.id
	`, columns("a", alertColumns))

	var rows []model.JobAlertWithOwner
	if err := s.db.SelectContext(ctx, &rows, query, string(frequency)); err != nil {
		return nil, fmt.Errorf("failed to list active %s alerts: %w", frequency, err)
	}

	alerts := make([]alerting.JobAlert, len(rows))
	for i := range rows {
		alerts[i] = rows[i].ToAlerting()
	}

	return alerts, nil
}

// RecordAlertProgress applies the bookkeeping of one evaluation in a single
// statement so concurrent runs on the same alert add up
func (s *Storage) RecordAlertProgress(ctx context.Context, p alerting.AlertProgress) error {
	query := `
		UPDATE job_alerts SET
			last_checked = GREATEST(last_checked, $2),
			last_notification_sent = GREATEST(last_notification_sent, $3),
			total_matches = total_matches + $4,
			updated_at = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, p.AlertID, p.CheckedAt, p.NotifiedAt, p.MatchesDelta)
	if err != nil {
		return fmt.Errorf("failed to save job alert %s: %w", p.AlertID, err)
	}

	return requireAffected(res, domain.ErrAlertNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
