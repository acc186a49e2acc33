package dto

type LocationDTO struct {
	Type     string `json:"type" binding:"omitempty,oneof=remote on-site hybrid any"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	RadiusKM *int   `json:"radius_km" binding:"omitempty,min=0"`
}

type CriteriaDTO struct {
	Keywords         []string    `json:"keywords"`
	Skills           []string    `json:"skills"`
	Location         LocationDTO `json:"location"`
	JobTypes         []string    `json:"job_types" binding:"omitempty,dive,oneof=full-time part-time contract internship temporary"`
	ExperienceLevels []string    `json:"experience_levels" binding:"omitempty,dive,oneof=entry mid senior executive"`
	Salary           SalaryDTO   `json:"salary_range"`
	Industries       []string    `json:"industries"`
	Companies        []string    `json:"companies"`
	ExcludeCompanies []string    `json:"exclude_companies"`
}

type CreateAlertRequest struct {
	Name        string         `json:"name" binding:"required,max=100"`
	Criteria    CriteriaDTO    `json:"criteria"`
	Frequency   string         `json:"frequency" binding:"omitempty,oneof=immediate daily weekly monthly"`
	Preferences PreferencesDTO `json:"notification_preferences"`
	IsActive    *bool          `json:"is_active"`
}

// UpdateAlertRequest is a partial update. Nil fields are left unchanged and
// a present criteria object replaces the stored one.
type UpdateAlertRequest struct {
	Name        *string         `json:"name" binding:"omitempty,min=1,max=100"`
	Criteria    *CriteriaDTO    `json:"criteria"`
	Frequency   *string         `json:"frequency" binding:"omitempty,oneof=immediate daily weekly monthly"`
	Preferences *PreferencesDTO `json:"notification_preferences"`
	IsActive    *bool           `json:"is_active"`
}

type ListAlertsRequest struct {
	PaginationRequest
	IsActive *bool `form:"is_active"`
}

type PreferencesResponse struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

type AlertDTO struct {
	ID                   string              `json:"id"`
	UserID               string              `json:"user_id"`
	Name                 string              `json:"name"`
	Criteria             CriteriaDTO         `json:"criteria"`
	IsActive             bool                `json:"is_active"`
	Frequency            string              `json:"frequency"`
	Preferences          PreferencesResponse `json:"notification_preferences"`
	LastChecked          *string             `json:"last_checked"`
	LastNotificationSent *string             `json:"last_notification_sent"`
	TotalMatches         int                 `json:"total_matches"`
	CreatedAt            string              `json:"created_at"`
	UpdatedAt            string              `json:"updated_at"`
}

type ListAlertsResponse struct {
	JobAlerts   []AlertDTO `json:"job_alerts"`
	TotalPages  int        `json:"total_pages"`
	CurrentPage int        `json:"current_page"`
	Total       int        `json:"total"`
}

type TestAlertResponse struct {
	TotalRecentJobs int           `json:"total_recent_jobs"`
	MatchingJobs    int           `json:"matching_jobs"`
	Jobs            []JobDTO      `json:"jobs"`
	Pagination      PaginationDTO `json:"pagination"`
}
