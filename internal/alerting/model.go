package alerting

import (
	"fmt"
	"time"
)

// Frequency is a notification tier
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
)

// BatchFrequencies are the tiers driven by the scheduler, in trigger order
var BatchFrequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly}

// ParseFrequency validates s as a tier name
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

// IsBatch reports whether f is delivered as a periodic digest
func (f Frequency) IsBatch() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyMonthly
}

// WindowStart returns the start of the tier's look-back window ending at now.
// Monthly uses calendar months.
func (f Frequency) WindowStart(now time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return now.AddDate(0, 0, -1)
	case FrequencyWeekly:
		return now.AddDate(0, 0, -7)
	case FrequencyMonthly:
		return now.AddDate(0, -1, 0)
	}
	return now
}

type LocationType string

const (
	LocationRemote LocationType = "remote"
	LocationOnSite LocationType = "on-site"
	LocationHybrid LocationType = "hybrid"
	LocationAny    LocationType = "any"
)

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeTemporary  JobType = "temporary"
)

type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceExecutive ExperienceLevel = "executive"
)

// LocationFilter narrows alerts by work arrangement. City, State, Country and
// RadiusKM are stored for the user but only Type is evaluated.
type LocationFilter struct {
	Type     LocationType
	City     string
	State    string
	Country  string
	RadiusKM *int
}

// SalaryRange bounds are optional. Currency is informational.
type SalaryRange struct {
	Min      *float64
	Max      *float64
	Currency string
}

// Criteria is the filter part of a job alert. Industries are stored but not
// evaluated.
type Criteria struct {
	Keywords         []string
	Skills           []string
	Location         LocationFilter
	JobTypes         []JobType
	ExperienceLevels []ExperienceLevel
	Salary           SalaryRange
	Industries       []string
	Companies        []string
	ExcludeCompanies []string
}

// Preferences are the channels a user wants notifications on
type Preferences struct {
	Email bool
	Push  bool
	SMS   bool
}

// Recipient identifies the user a notification is sent to
type Recipient struct {
	UserID    string
	Email     string
	FirstName string
}

// JobAlert is a saved search owned by one user. The scheduler only mutates
// LastChecked, LastNotificationSent and TotalMatches.
type JobAlert struct {
	ID                   string
	UserID               string
	Name                 string
	Criteria             Criteria
	IsActive             bool
	Frequency            Frequency
	Preferences          Preferences
	LastChecked          *time.Time
	LastNotificationSent *time.Time
	TotalMatches         int
	CreatedAt            time.Time
	UpdatedAt            time.Time

	// Owner is resolved by the store when alerts are listed for delivery
	Owner Recipient
}

// Subscription is a user's interest in all new postings from one company
type Subscription struct {
	ID                     string
	UserID                 string
	CompanyID              string
	JobTypes               []JobType
	ExperienceLevels       []ExperienceLevel
	Preferences            Preferences
	IsActive               bool
	LastNotificationSent   *time.Time
	TotalNotificationsSent int
	CreatedAt              time.Time
	UpdatedAt              time.Time

	Owner Recipient
}

// Company is the poster of a job
type Company struct {
	ID       string
	Name     string
	Industry string
}

// JobCandidate is the read view of a job posting used for matching
type JobCandidate struct {
	ID              string
	CompanyID       string
	CompanyName     string
	Title           string
	Description     string
	Skills          []string
	LocationType    LocationType
	City            string
	State           string
	Country         string
	JobType         JobType
	ExperienceLevel ExperienceLevel
	SalaryMin       *float64
	SalaryMax       *float64
	SalaryCurrency  string
	IsActive        bool
	IsDeleted       bool
	CreatedAt       time.Time
}

// Eligible reports whether the job may be matched at all
func (j *JobCandidate) Eligible() bool {
	return j.IsActive && !j.IsDeleted
}

// InterviewLocation says where an interview happens. Type is office, remote
// or phone and selects which of the other fields applies.
type InterviewLocation struct {
	Type        string
	Address     string
	MeetingLink string
	PhoneNumber string
}

// Interviewer is one member of the interview panel
type Interviewer struct {
	Name  string
	Title string
}

// Interview is a scheduled interview as seen by the reminder run
type Interview struct {
	ID               string
	ApplicationID    string
	UserID           string
	JobTitle         string
	CompanyName      string
	Type             string
	Round            int
	ScheduledAt      time.Time
	DurationMinutes  int
	Location         InterviewLocation
	Interviewers     []Interviewer
	PreparationNotes string

	Owner Recipient
}
