package dto

type PaginationRequest struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type PaginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type PreferencesDTO struct {
	Email *bool `json:"email"`
	Push  *bool `json:"push"`
	SMS   *bool `json:"sms"`
}

type SalaryDTO struct {
	Min      *float64 `json:"min" binding:"omitempty,min=0"`
	Max      *float64 `json:"max" binding:"omitempty,min=0"`
	Currency string   `json:"currency" binding:"omitempty,len=3"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
