package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

var jobColumns = []string{
	"id", "company_id", "title", "description", "skills",
	"location_type", "city", "state", "country", "job_type", "experience_level",
	"salary_min", "salary_max", "salary_currency", "salary_period",
	"is_active", "is_deleted", "application_count", "created_by", "created_at", "updated_at",
}

type JobFilter struct {
	CompanyID       string
	JobType         string
	ExperienceLevel string
	LocationType    string
	Search          string
	PageSize        int
	Cursor          *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// CreateJob inserts job and bumps the company's job counter in one transaction
func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			id, company_id, title, description, skills,
			location_type, city, state, country, job_type, experience_level,
			salary_min, salary_max, salary_currency, salary_period,
			is_active, is_deleted, application_count, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, FALSE, 0, $17, $18, $19
		)
	`

	return s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			query,
			job.ID, job.CompanyID, job.Title, job.Description, job.Skills,
			job.LocationType, job.City, job.State, job.Country, job.JobType, job.ExperienceLevel,
			job.SalaryMin, job.SalaryMax, job.SalaryCurrency, job.SalaryPeriod,
			job.IsActive, job.CreatedBy, job.CreatedAt, job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE companies SET total_jobs = total_jobs + 1, updated_at = NOW()
			WHERE id = $1
		`, job.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to update company job count: %w", err)
		}

		return nil
	})
}

// GetJob returns a job that has not been deleted
func (s *Storage) GetJob(ctx context.Context, jobID string) (*model.JobWithCompany, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.name AS company_name
		FROM jobs j
		JOIN companies c ON c.id = j.company_id
		WHERE j.id = $1 AND j.is_deleted = FALSE
	`, columns("j", jobColumns))

	var job model.JobWithCompany
	err := s.db.GetContext(ctx, &job, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListJobs returns up to PageSize+1 active jobs so the caller can tell
// whether another page exists
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.JobWithCompany, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.name AS company_name
		FROM jobs j
		JOIN companies c ON c.id = j.company_id
		WHERE j.is_active = TRUE AND j.is_deleted = FALSE
	`, columns("j", jobColumns))
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.CompanyID != "" {
		query += fmt.Sprintf(" AND j.company_id = $%d", argIdx)
		args = append(args, filter.CompanyID)
		argIdx++
	}

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND j.job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.ExperienceLevel != "" {
		query += fmt.Sprintf(" AND j.experience_level = $%d", argIdx)
		args = append(args, filter.ExperienceLevel)
		argIdx++
	}

	if filter.LocationType != "" {
		query += fmt.Sprintf(" AND j.location_type = $%d", argIdx)
		args = append(args, filter.LocationType)
		argIdx++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND (j.title ILIKE $%d OR j.description ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (j.created_at, j.id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, id DESC for consistent pagination
	query += " ORDER BY j.created_at DESC, j.id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.JobWithCompany
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// SoftDeleteJob marks a job posted by userID as deleted
func (s *Storage) SoftDeleteJob(ctx context.Context, userID, jobID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND created_by = $2 AND is_deleted = FALSE
	`, jobID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return requireAffected(res, domain.ErrJobNotFound)
}

// ListActiveJobs returns active, non-deleted jobs created at or after since,
// oldest first
func (s *Storage) ListActiveJobs(ctx context.Context, since time.Time) ([]alerting.JobCandidate, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.name AS company_name
		FROM jobs j
		JOIN companies c ON c.id = j.company_id
		WHERE j.is_active = TRUE AND j.is_deleted = FALSE AND j.created_at >= $1
		ORDER BY j.created_at, j.id
	`, columns("j", jobColumns))

	var rows []model.JobWithCompany
	if err := s.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to list jobs since %s: %w", since.Format(time.RFC3339), err)
	}

	jobs := make([]alerting.JobCandidate, len(rows))
	for i := range rows {
		jobs[i] = rows[i].ToCandidate()
	}

	return jobs, nil
}

// GetActiveCompany returns a company that can accept postings and subscribers
func (s *Storage) GetActiveCompany(ctx context.Context, companyID string) (*model.Company, error) {
	query := `
		SELECT id, name, industry, status, is_deleted, total_jobs, created_at, updated_at
		FROM companies
		WHERE id = $1 AND status = $2 AND is_deleted = FALSE
	`

	var company model.Company
	err := s.db.GetContext(ctx, &company, query, companyID, domain.CompanyStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &company, nil
}
