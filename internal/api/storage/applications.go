package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

// CreateApplication records app against an open job and bumps the job's
// application counter. A second application by the same user returns
// domain.ErrDuplicateApplication.
func (s *Storage) CreateApplication(ctx context.Context, app *model.Application) error {
	return s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		var open bool
		err := tx.GetContext(ctx, &open, `
			SELECT is_active AND NOT is_deleted FROM jobs WHERE id = $1 FOR UPDATE
		`, app.JobID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !open) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO applications (id, user_id, job_id, cover_letter, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, job_id) DO NOTHING
		`, app.ID, app.UserID, app.JobID, app.CoverLetter, app.Status, app.CreatedAt, app.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		if err := requireAffected(res, domain.ErrDuplicateApplication); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE jobs SET application_count = application_count + 1 WHERE id = $1
		`, app.JobID)
		if err != nil {
			return fmt.Errorf("failed to update application count: %w", err)
		}

		return nil
	})
}

func (s *Storage) ListApplications(ctx context.Context, userID string) ([]model.ApplicationWithJob, error) {
	query := `
		SELECT
			a.id, a.user_id, a.job_id, a.cover_letter, a.status, a.created_at, a.updated_at,
			j.title AS job_title, c.name AS company_name
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN companies c ON c.id = j.company_id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC, a.id DESC
	`

	var apps []model.ApplicationWithJob
	if err := s.db.SelectContext(ctx, &apps, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, nil
}
