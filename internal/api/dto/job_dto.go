package dto

type CreateJobRequest struct {
	Title           string   `json:"title" binding:"required,max=200"`
	Description     string   `json:"description" binding:"required"`
	Skills          []string `json:"skills"`
	LocationType    string   `json:"location_type" binding:"required,oneof=remote on-site hybrid"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	Country         string   `json:"country"`
	JobType         string   `json:"job_type" binding:"required,oneof=full-time part-time contract internship temporary"`
	ExperienceLevel string   `json:"experience_level" binding:"required,oneof=entry mid senior executive"`
	SalaryMin       *float64 `json:"salary_min" binding:"omitempty,min=0"`
	SalaryMax       *float64 `json:"salary_max" binding:"omitempty,min=0"`
	SalaryCurrency  string   `json:"salary_currency" binding:"omitempty,len=3"`
	SalaryPeriod    string   `json:"salary_period" binding:"omitempty,oneof=hourly monthly yearly"`
}

type ListJobsRequest struct {
	CompanyID       string `form:"company_id" binding:"omitempty,uuid"`
	JobType         string `form:"job_type"`
	ExperienceLevel string `form:"experience_level"`
	LocationType    string `form:"location_type"`
	Search          string `form:"search"`
	PageSize        int    `form:"page_size"`
	Cursor          string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID               string   `json:"id"`
	CompanyID        string   `json:"company_id"`
	CompanyName      string   `json:"company_name"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Skills           []string `json:"skills"`
	LocationType     string   `json:"location_type"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	Country          string   `json:"country,omitempty"`
	JobType          string   `json:"job_type"`
	ExperienceLevel  string   `json:"experience_level"`
	SalaryMin        *float64 `json:"salary_min,omitempty"`
	SalaryMax        *float64 `json:"salary_max,omitempty"`
	SalaryCurrency   string   `json:"salary_currency,omitempty"`
	SalaryPeriod     string   `json:"salary_period,omitempty"`
	ApplicationCount int      `json:"application_count"`
	CreatedAt        string   `json:"created_at"`
}
