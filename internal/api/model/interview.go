package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
)

// Interview statuses that still expect a reminder
const (
	InterviewStatusScheduled = "scheduled"
	InterviewStatusConfirmed = "confirmed"
)

type InterviewPanelist struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Title string `json:"title,omitempty"`
}

// Interviewers is the JSONB interviewers column
type Interviewers []InterviewPanelist

func (i Interviewers) Value() (driver.Value, error) {
	if i == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(i)
}

func (i *Interviewers) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*i = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Interviewers", src)
	}

	if err := json.Unmarshal(raw, (*[]InterviewPanelist)(i)); err != nil {
		return errors.Join(errors.New("invalid interviewers json"), err)
	}
	return nil
}

type Interview struct {
	ID               string       `db:"id"`
	ApplicationID    string       `db:"application_id"`
	UserID           string       `db:"user_id"`
	JobID            string       `db:"job_id"`
	CompanyID        string       `db:"company_id"`
	Type             string       `db:"type"`
	Round            int          `db:"round"`
	ScheduledAt      time.Time    `db:"scheduled_at"`
	DurationMinutes  int          `db:"duration_minutes"`
	LocationType     string       `db:"location_type"`
	Address          string       `db:"address"`
	MeetingLink      string       `db:"meeting_link"`
	PhoneNumber      string       `db:"phone_number"`
	Interviewers     Interviewers `db:"interviewers"`
	Status           string       `db:"status"`
	PreparationNotes string       `db:"preparation_notes"`
	ReminderSent     bool         `db:"reminder_sent"`
	ReminderSentAt   *time.Time   `db:"reminder_sent_at"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

// InterviewForReminder adds what a reminder email shows about the job and
// where it is sent
type InterviewForReminder struct {
	Interview
	JobTitle       string `db:"job_title"`
	CompanyName    string `db:"company_name"`
	OwnerEmail     string `db:"owner_email"`
	OwnerFirstName string `db:"owner_first_name"`
}

func (r *InterviewForReminder) ToAlerting() alerting.Interview {
	interviewers := make([]alerting.Interviewer, 0, len(r.Interviewers))
	for _, p := range r.Interviewers {
		interviewers = append(interviewers, alerting.Interviewer{Name: p.Name, Title: p.Title})
	}

	return alerting.Interview{
		ID:              r.ID,
		ApplicationID:   r.ApplicationID,
		UserID:          r.UserID,
		JobTitle:        r.JobTitle,
		CompanyName:     r.CompanyName,
		Type:            r.Type,
		Round:           r.Round,
		ScheduledAt:     r.ScheduledAt,
		DurationMinutes: r.DurationMinutes,
		Location: alerting.InterviewLocation{
			Type:        r.LocationType,
			Address:     r.Address,
			MeetingLink: r.MeetingLink,
			PhoneNumber: r.PhoneNumber,
		},
		Interviewers:     interviewers,
		PreparationNotes: r.PreparationNotes,
		Owner: alerting.Recipient{
			UserID:    r.UserID,
			Email:     r.OwnerEmail,
			FirstName: r.OwnerFirstName,
		},
	}
}
