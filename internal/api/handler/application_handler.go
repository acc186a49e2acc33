package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/dto"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

// ApplicationHandler handles job application HTTP requests
type ApplicationHandler struct {
	deps   *Dependencies
	logger *slog.Logger
}

// NewApplicationHandler creates a new ApplicationHandler instance
func NewApplicationHandler(deps *Dependencies) *ApplicationHandler {
	return &ApplicationHandler{
		deps:   deps,
		logger: deps.Logger.With(slog.String("handler", "applications")),
	}
}

// CreateApplication handles POST /api/v1/applications
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	var req dto.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := h.deps.now()
	app := model.Application{
		ID:          uuid.New().String(),
		UserID:      userID(c),
		JobID:       req.JobID,
		CoverLetter: req.CoverLetter,
		Status:      domain.ApplicationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.deps.Applications.CreateApplication(c.Request.Context(), &app); err != nil {
		respondStoreError(c, h.logger, err, "create application")
		return
	}

	h.logger.Info("Application submitted",
		slog.String("application_id", app.ID),
		slog.String("job_id", app.JobID),
	)

	c.JSON(http.StatusCreated, dto.ApplicationDTO{
		ID:          app.ID,
		JobID:       app.JobID,
		CoverLetter: app.CoverLetter,
		Status:      app.Status,
		CreatedAt:   formatTime(app.CreatedAt),
	})
}

// ListApplications handles GET /api/v1/applications
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	apps, err := h.deps.Applications.ListApplications(c.Request.Context(), userID(c))
	if err != nil {
		respondStoreError(c, h.logger, err, "list applications")
		return
	}

	resp := dto.ListApplicationsResponse{Applications: make([]dto.ApplicationDTO, len(apps))}
	for i, app := range apps {
		resp.Applications[i] = dto.ApplicationDTO{
			ID:          app.ID,
			JobID:       app.JobID,
			JobTitle:    app.JobTitle,
			CompanyName: app.CompanyName,
			CoverLetter: app.CoverLetter,
			Status:      app.Status,
			CreatedAt:   formatTime(app.CreatedAt),
		}
	}

	c.JSON(http.StatusOK, resp)
}
