package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind selects the template a message is rendered with
type Kind string

const (
	KindCompanyJob  Kind = "company_job"
	KindCustomAlert Kind = "custom_alert"
	KindBatchDigest Kind = "batch_digest"

	KindInterviewReminder Kind = "interview_reminder"
)

// Valid reports whether k names a known template
func (k Kind) Valid() bool {
	switch k {
	case KindCompanyJob, KindCustomAlert, KindBatchDigest, KindInterviewReminder:
		return true
	}
	return false
}

// ErrInvalidMessage marks a message that can never be delivered
var ErrInvalidMessage = errors.New("invalid notification message")

// Recipient is the addressee of a notification
type Recipient struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// JobSummary is the part of a job posting shown in a notification
type JobSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CompanyName     string    `json:"company_name"`
	LocationType    string    `json:"location_type"`
	City            string    `json:"city,omitempty"`
	State           string    `json:"state,omitempty"`
	Country         string    `json:"country,omitempty"`
	JobType         string    `json:"job_type"`
	ExperienceLevel string    `json:"experience_level"`
	SalaryMin       *float64  `json:"salary_min,omitempty"`
	SalaryMax       *float64  `json:"salary_max,omitempty"`
	SalaryCurrency  string    `json:"salary_currency,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Interviewer is one person on an interview panel
type Interviewer struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// InterviewSummary is the part of a scheduled interview shown in a reminder
type InterviewSummary struct {
	ID               string        `json:"id"`
	JobTitle         string        `json:"job_title"`
	CompanyName      string        `json:"company_name"`
	Type             string        `json:"type"`
	Round            int           `json:"round"`
	ScheduledAt      time.Time     `json:"scheduled_at"`
	DurationMinutes  int           `json:"duration_minutes"`
	LocationType     string        `json:"location_type"`
	Address          string        `json:"address,omitempty"`
	MeetingLink      string        `json:"meeting_link,omitempty"`
	PhoneNumber      string        `json:"phone_number,omitempty"`
	Interviewers     []Interviewer `json:"interviewers,omitempty"`
	PreparationNotes string        `json:"preparation_notes,omitempty"`
}

// Data carries the template variables
type Data struct {
	AlertID        string       `json:"alert_id,omitempty"`
	AlertName      string       `json:"alert_name,omitempty"`
	SubscriptionID string       `json:"subscription_id,omitempty"`
	CompanyName    string       `json:"company_name,omitempty"`
	Frequency      string       `json:"frequency,omitempty"`
	Jobs           []JobSummary `json:"jobs"`

	Interview *InterviewSummary `json:"interview,omitempty"`
}

// Message is the logical notification payload. It carries no transport
// formatting; the Renderer turns it into an email.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Recipient Recipient `json:"recipient"`
	Subject   string    `json:"subject"`
	Data      Data      `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields every transport needs
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	if m.Recipient.Email == "" {
		return fmt.Errorf("%w: missing recipient email", ErrInvalidMessage)
	}
	if m.Kind == KindInterviewReminder {
		if m.Data.Interview == nil {
			return fmt.Errorf("%w: missing interview", ErrInvalidMessage)
		}
		return nil
	}
	if len(m.Data.Jobs) == 0 {
		return fmt.Errorf("%w: no jobs", ErrInvalidMessage)
	}
	return nil
}

// Dispatcher hands a message to an outbound channel. A nil error means the
// channel accepted it.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}
