package dto

type CreateApplicationRequest struct {
	JobID       string `json:"job_id" binding:"required,uuid"`
	CoverLetter string `json:"cover_letter" binding:"max=5000"`
}

type ApplicationDTO struct {
	ID          string `json:"id"`
	JobID       string `json:"job_id"`
	JobTitle    string `json:"job_title,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	CoverLetter string `json:"cover_letter"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type ListApplicationsResponse struct {
	Applications []ApplicationDTO `json:"applications"`
}
