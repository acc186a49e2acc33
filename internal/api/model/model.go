package model

import (
	"time"

	"github.com/lib/pq"
)

type Company struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Industry  string    `db:"industry"`
	Status    string    `db:"status"`
	IsDeleted bool      `db:"is_deleted"`
	TotalJobs int       `db:"total_jobs"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Job struct {
	ID               string         `db:"id"`
	CompanyID        string         `db:"company_id"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	Skills           pq.StringArray `db:"skills"`
	LocationType     string         `db:"location_type"`
	City             string         `db:"city"`
	State            string         `db:"state"`
	Country          string         `db:"country"`
	JobType          string         `db:"job_type"`
	ExperienceLevel  string         `db:"experience_level"`
	SalaryMin        *float64       `db:"salary_min"`
	SalaryMax        *float64       `db:"salary_max"`
	SalaryCurrency   string         `db:"salary_currency"`
	SalaryPeriod     string         `db:"salary_period"`
	IsActive         bool           `db:"is_active"`
	IsDeleted        bool           `db:"is_deleted"`
	ApplicationCount int            `db:"application_count"`
	CreatedBy        string         `db:"created_by"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// JobWithCompany is a job row joined with its company name
type JobWithCompany struct {
	Job
	CompanyName string `db:"company_name"`
}

type JobAlert struct {
	ID                   string         `db:"id"`
	UserID               string         `db:"user_id"`
	Name                 string         `db:"name"`
	Keywords             pq.StringArray `db:"keywords"`
	Skills               pq.StringArray `db:"skills"`
	LocationType         string         `db:"location_type"`
	LocationCity         string         `db:"location_city"`
	LocationState        string         `db:"location_state"`
	LocationCountry      string         `db:"location_country"`
	LocationRadiusKM     *int           `db:"location_radius_km"`
	JobTypes             pq.StringArray `db:"job_types"`
	ExperienceLevels     pq.StringArray `db:"experience_levels"`
	SalaryMin            *float64       `db:"salary_min"`
	SalaryMax            *float64       `db:"salary_max"`
	SalaryCurrency       string         `db:"salary_currency"`
	Industries           pq.StringArray `db:"industries"`
	Companies            pq.StringArray `db:"companies"`
	ExcludeCompanies     pq.StringArray `db:"exclude_companies"`
	IsActive             bool           `db:"is_active"`
	Frequency            string         `db:"frequency"`
	NotifyEmail          bool           `db:"notify_email"`
	NotifyPush           bool           `db:"notify_push"`
	NotifySMS            bool           `db:"notify_sms"`
	LastChecked          *time.Time     `db:"last_checked"`
	LastNotificationSent *time.Time     `db:"last_notification_sent"`
	TotalMatches         int            `db:"total_matches"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// JobAlertWithOwner carries the owner's contact details for delivery
type JobAlertWithOwner struct {
	JobAlert
	OwnerEmail     string `db:"owner_email"`
	OwnerFirstName string `db:"owner_first_name"`
}

type Subscription struct {
	ID                     string         `db:"id"`
	UserID                 string         `db:"user_id"`
	CompanyID              string         `db:"company_id"`
	JobTypes               pq.StringArray `db:"job_types"`
	ExperienceLevels       pq.StringArray `db:"experience_levels"`
	NotifyEmail            bool           `db:"notify_email"`
	NotifyPush             bool           `db:"notify_push"`
	NotifySMS              bool           `db:"notify_sms"`
	IsActive               bool           `db:"is_active"`
	LastNotificationSent   *time.Time     `db:"last_notification_sent"`
	TotalNotificationsSent int            `db:"total_notifications_sent"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

// SubscriptionWithCompany is a subscription joined with the company name
type SubscriptionWithCompany struct {
	Subscription
	CompanyName string `db:"company_name"`
}

type SubscriptionWithOwner struct {
	Subscription
	OwnerEmail     string `db:"owner_email"`
	OwnerFirstName string `db:"owner_first_name"`
}

type Application struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	JobID       string    `db:"job_id"`
	CoverLetter string    `db:"cover_letter"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ApplicationWithJob adds the job title and company for listings
type ApplicationWithJob struct {
	Application
	JobTitle    string `db:"job_title"`
	CompanyName string `db:"company_name"`
}
