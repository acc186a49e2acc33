package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/dto"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
	"github.com/cuongbtq/jobboard-be/internal/api/storage"
)

// AlertHandler handles job alert HTTP requests
type AlertHandler struct {
	deps   *Dependencies
	logger *slog.Logger
}

// NewAlertHandler creates a new AlertHandler instance
func NewAlertHandler(deps *Dependencies) *AlertHandler {
	return &AlertHandler{
		deps:   deps,
		logger: deps.Logger.With(slog.String("handler", "job_alerts")),
	}
}

// CreateAlert handles POST /api/v1/job-alerts
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req dto.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !salaryRangeValid(req.Criteria.Salary.Min, req.Criteria.Salary.Max) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "salary_range.min must not exceed salary_range.max"})
		return
	}

	now := h.deps.now()
	alert := model.JobAlert{
		ID:        uuid.New().String(),
		UserID:    userID(c),
		Name:      req.Name,
		IsActive:  boolOr(req.IsActive, true),
		Frequency: req.Frequency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if alert.Frequency == "" {
		alert.Frequency = string(alerting.FrequencyDaily)
	}
	applyCriteria(&alert, &req.Criteria)

	alert.NotifyEmail, alert.NotifyPush = true, true
	applyPreferences(&alert.NotifyEmail, &alert.NotifyPush, &alert.NotifySMS, &req.Preferences)

	if err := h.deps.Alerts.CreateAlert(c.Request.Context(), &alert); err != nil {
		respondStoreError(c, h.logger, err, "create job alert")
		return
	}

	h.logger.Info("Job alert created",
		slog.String("alert_id", alert.ID),
		slog.String("user_id", alert.UserID),
		slog.String("frequency", alert.Frequency),
	)

	c.JSON(http.StatusCreated, toAlertDTO(&alert))
}

// ListAlerts handles GET /api/v1/job-alerts
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var req dto.ListAlertsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	page := normalizePage(req.Page, req.Limit)
	alerts, total, err := h.deps.Alerts.ListAlerts(c.Request.Context(), storage.AlertFilter{
		UserID:   userID(c),
		IsActive: req.IsActive,
		Page:     page,
	})
	if err != nil {
		respondStoreError(c, h.logger, err, "list job alerts")
		return
	}

	resp := dto.ListAlertsResponse{
		JobAlerts:   make([]dto.AlertDTO, len(alerts)),
		TotalPages:  totalPages(total, page.Limit),
		CurrentPage: page.Page,
		Total:       total,
	}
	for i := range alerts {
		resp.JobAlerts[i] = toAlertDTO(&alerts[i])
	}

	c.JSON(http.StatusOK, resp)
}

// GetAlert handles GET /api/v1/job-alerts/:id
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, ok := h.loadAlert(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toAlertDTO(alert))
}

// UpdateAlert handles PATCH /api/v1/job-alerts/:id
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	var req dto.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, ok := h.loadAlert(c)
	if !ok {
		return
	}

	if req.Name != nil {
		alert.Name = *req.Name
	}
	if req.Criteria != nil {
		if !salaryRangeValid(req.Criteria.Salary.Min, req.Criteria.Salary.Max) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "salary_range.min must not exceed salary_range.max"})
			return
		}
		applyCriteria(alert, req.Criteria)
	}
	if req.Frequency != nil {
		alert.Frequency = *req.Frequency
	}
	if req.IsActive != nil {
		alert.IsActive = *req.IsActive
	}
	applyPreferences(&alert.NotifyEmail, &alert.NotifyPush, &alert.NotifySMS, req.Preferences)
	alert.UpdatedAt = h.deps.now()

	if err := h.deps.Alerts.UpdateAlert(c.Request.Context(), alert); err != nil {
		respondStoreError(c, h.logger, err, "update job alert")
		return
	}

	c.JSON(http.StatusOK, toAlertDTO(alert))
}

// ToggleAlert handles PATCH /api/v1/job-alerts/:id/toggle
func (h *AlertHandler) ToggleAlert(c *gin.Context) {
	alert, err := h.deps.Alerts.ToggleAlert(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, err, "toggle job alert")
		return
	}

	c.JSON(http.StatusOK, toAlertDTO(alert))
}

// DeleteAlert handles DELETE /api/v1/job-alerts/:id
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	if err := h.deps.Alerts.DeleteAlert(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondStoreError(c, h.logger, err, "delete job alert")
		return
	}

	c.Status(http.StatusNoContent)
}

// TestAlert handles POST /api/v1/job-alerts/:id/test
// Runs the alert against recent jobs without sending anything
func (h *AlertHandler) TestAlert(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}
	page := normalizePage(req.Page, req.Limit)

	row, ok := h.loadAlert(c)
	if !ok {
		return
	}

	alert := row.ToAlerting()
	result, err := alerting.TestAlert(c.Request.Context(), h.deps.JobSource, &alert, h.deps.TestWindow, h.deps.now())
	if err != nil {
		respondStoreError(c, h.logger, err, "test job alert")
		return
	}

	total := len(result.Matches)
	start := min((page.Page-1)*page.Limit, total)
	end := min(start+page.Limit, total)

	jobs := make([]dto.JobDTO, 0, end-start)
	for i := start; i < end; i++ {
		jobs = append(jobs, candidateToJobDTO(&result.Matches[i]))
	}

	c.JSON(http.StatusOK, dto.TestAlertResponse{
		TotalRecentJobs: result.TotalRecentJobs,
		MatchingJobs:    total,
		Jobs:            jobs,
		Pagination: dto.PaginationDTO{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: totalPages(total, page.Limit),
		},
	})
}

func (h *AlertHandler) loadAlert(c *gin.Context) (*model.JobAlert, bool) {
	alert, err := h.deps.Alerts.GetAlert(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, err, "get job alert")
		return nil, false
	}
	return alert, true
}
