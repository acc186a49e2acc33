package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

var subscriptionColumns = []string{
	"id", "user_id", "company_id", "job_types", "experience_levels",
	"notify_email", "notify_push", "notify_sms", "is_active",
	"last_notification_sent", "total_notifications_sent", "created_at", "updated_at",
}

// CreateSubscription inserts sub. It returns domain.ErrSubscriptionExists when
// the user already follows the company.
func (s *Storage) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, company_id, job_types, experience_levels,
			notify_email, notify_push, notify_sms, is_active,
			total_notifications_sent, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			0, $10, $11
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		sub.ID, sub.UserID, sub.CompanyID, sub.JobTypes, sub.ExperienceLevels,
		sub.NotifyEmail, sub.NotifyPush, sub.NotifySMS, sub.IsActive,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrSubscriptionExists
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (s *Storage) GetSubscription(ctx context.Context, userID, subscriptionID string) (*model.SubscriptionWithCompany, error) {
	return s.getSubscription(ctx, "s.id = $1 AND s.user_id = $2", subscriptionID, userID)
}

// GetSubscriptionByCompany returns the user's subscription to companyID
func (s *Storage) GetSubscriptionByCompany(ctx context.Context, userID, companyID string) (*model.SubscriptionWithCompany, error) {
	return s.getSubscription(ctx, "s.company_id = $1 AND s.user_id = $2", companyID, userID)
}

func (s *Storage) getSubscription(ctx context.Context, cond string, args ...interface{}) (*model.SubscriptionWithCompany, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.name AS company_name
		FROM subscriptions s
		JOIN companies c ON c.id = s.company_id
		WHERE %s
	`, columns("s", subscriptionColumns), cond)

	var sub model.SubscriptionWithCompany
	err := s.db.GetContext(ctx, &sub, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (s *Storage) ListSubscriptions(ctx context.Context, userID string, page Page) ([]model.SubscriptionWithCompany, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subscriptions WHERE user_id = $1", userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s, c.name AS company_name
		FROM subscriptions s
		JOIN companies c ON c.id = s.company_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $2 OFFSET $3
	`, columns("s", subscriptionColumns))

	var subs []model.SubscriptionWithCompany
	if err := s.db.SelectContext(ctx, &subs, query, userID, page.Limit, page.offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, total, nil
}

// UpdateSubscription overwrites the filters, preferences and active flag
func (s *Storage) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	query := `
		UPDATE subscriptions SET
			job_types = $3, experience_levels = $4,
			notify_email = $5, notify_push = $6, notify_sms = $7,
			is_active = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2
	`

	res, err := s.db.ExecContext(
		ctx,
		query,
		sub.ID, sub.UserID,
		sub.JobTypes, sub.ExperienceLevels,
		sub.NotifyEmail, sub.NotifyPush, sub.NotifySMS,
		sub.IsActive, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	return requireAffected(res, domain.ErrSubscriptionNotFound)
}

func (s *Storage) ToggleSubscription(ctx context.Context, userID, subscriptionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, subscriptionID, userID)
	if err != nil {
		return fmt.Errorf("failed to toggle subscription: %w", err)
	}

	return requireAffected(res, domain.ErrSubscriptionNotFound)
}

func (s *Storage) DeleteSubscription(ctx context.Context, userID, subscriptionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = $1 AND user_id = $2", subscriptionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return requireAffected(res, domain.ErrSubscriptionNotFound)
}

// ListActiveSubscriptions returns the active subscribers of companyID with
// their contact details
func (s *Storage) ListActiveSubscriptions(ctx context.Context, companyID string) ([]alerting.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s, u.email AS owner_email, u.first_name AS owner_first_name
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.company_id = $1 AND s.is_active = TRUE AND u.is_deleted = FALSE
		ORDER BY s.created_at, s.id
	`, columns("s", subscriptionColumns))

	var rows []model.SubscriptionWithOwner
	if err := s.db.SelectContext(ctx, &rows, query, companyID); err != nil {
		return nil, fmt.Errorf("failed to list subscribers of company %s: %w", companyID, err)
	}

	subs := make([]alerting.Subscription, len(rows))
	for i := range rows {
		subs[i] = rows[i].ToAlerting()
	}

	return subs, nil
}

// RecordSubscriptionDelivery counts one notification sent to the subscriber
func (s *Storage) RecordSubscriptionDelivery(ctx context.Context, subscriptionID string, sentAt time.Time) error {
	query := `
		UPDATE subscriptions SET
			last_notification_sent = GREATEST(last_notification_sent, $2),
			total_notifications_sent = total_notifications_sent + 1,
			updated_at = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, subscriptionID, sentAt)
	if err != nil {
		return fmt.Errorf("failed to save subscription %s: %w", subscriptionID, err)
	}

	return requireAffected(res, domain.ErrSubscriptionNotFound)
}
