package dto

type CreateSubscriptionRequest struct {
	CompanyID        string         `json:"company_id" binding:"required,uuid"`
	JobTypes         []string       `json:"job_types" binding:"omitempty,dive,oneof=full-time part-time contract internship temporary"`
	ExperienceLevels []string       `json:"experience_levels" binding:"omitempty,dive,oneof=entry mid senior executive"`
	Preferences      PreferencesDTO `json:"notification_preferences"`
}

// UpdateSubscriptionRequest is a partial update. A present filter list
// replaces the stored one; an empty list clears it.
type UpdateSubscriptionRequest struct {
	JobTypes         []string        `json:"job_types" binding:"omitempty,dive,oneof=full-time part-time contract internship temporary"`
	ExperienceLevels []string        `json:"experience_levels" binding:"omitempty,dive,oneof=entry mid senior executive"`
	Preferences      *PreferencesDTO `json:"notification_preferences"`
	IsActive         *bool           `json:"is_active"`
}

type SubscriptionDTO struct {
	ID                     string              `json:"id"`
	UserID                 string              `json:"user_id"`
	CompanyID              string              `json:"company_id"`
	CompanyName            string              `json:"company_name,omitempty"`
	JobTypes               []string            `json:"job_types"`
	ExperienceLevels       []string            `json:"experience_levels"`
	Preferences            PreferencesResponse `json:"notification_preferences"`
	IsActive               bool                `json:"is_active"`
	LastNotificationSent   *string             `json:"last_notification_sent"`
	TotalNotificationsSent int                 `json:"total_notifications_sent"`
	CreatedAt              string              `json:"created_at"`
	UpdatedAt              string              `json:"updated_at"`
}

type ListSubscriptionsResponse struct {
	Subscriptions []SubscriptionDTO `json:"subscriptions"`
	Pagination    PaginationDTO     `json:"pagination"`
}

type CheckSubscriptionResponse struct {
	IsSubscribed bool             `json:"is_subscribed"`
	Subscription *SubscriptionDTO `json:"subscription"`
}

type SubscriptionConflictResponse struct {
	Error        string          `json:"error"`
	Subscription SubscriptionDTO `json:"subscription"`
}
