package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/jobboard-be/internal/api/dto"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
	"github.com/cuongbtq/jobboard-be/internal/api/storage"
)

// JobHandler handles job posting HTTP requests
type JobHandler struct {
	deps   *Dependencies
	logger *slog.Logger
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		deps:   deps,
		logger: deps.Logger.With(slog.String("handler", "jobs")),
	}
}

// CreateJob handles POST /api/v1/companies/:company_id/jobs
// Persists the posting, then notifies subscribers and immediate alerts in
// the background
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !salaryRangeValid(req.SalaryMin, req.SalaryMax) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "salary_min must not exceed salary_max"})
		return
	}

	ctx := c.Request.Context()
	company, err := h.deps.Companies.GetActiveCompany(ctx, c.Param("company_id"))
	if err != nil {
		respondStoreError(c, h.logger, err, "load company")
		return
	}

	now := h.deps.now()
	job := model.JobWithCompany{
		Job: model.Job{
			ID:              uuid.New().String(),
			CompanyID:       company.ID,
			Title:           req.Title,
			Description:     req.Description,
			Skills:          stringArray(req.Skills),
			LocationType:    req.LocationType,
			City:            req.City,
			State:           req.State,
			Country:         req.Country,
			JobType:         req.JobType,
			ExperienceLevel: req.ExperienceLevel,
			SalaryMin:       req.SalaryMin,
			SalaryMax:       req.SalaryMax,
			SalaryCurrency:  req.SalaryCurrency,
			SalaryPeriod:    req.SalaryPeriod,
			IsActive:        true,
			CreatedBy:       userID(c),
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		CompanyName: company.Name,
	}
	if job.SalaryCurrency == "" {
		job.SalaryCurrency = "USD"
	}
	if job.SalaryPeriod == "" {
		job.SalaryPeriod = "yearly"
	}

	if err := h.deps.Jobs.CreateJob(ctx, &job.Job); err != nil {
		respondStoreError(c, h.logger, err, "create job")
		return
	}

	h.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("company_id", company.ID),
	)

	c.JSON(http.StatusCreated, toJobDTO(&job))

	if h.deps.Notifier != nil {
		h.deps.Notifier.OnJobCreated(job.ToCandidate(), company.ToAlerting())
	}
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.deps.Jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, err, "get job")
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists open jobs with optional filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Debug("Invalid cursor", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	jobs, err := h.deps.Jobs.ListJobs(c.Request.Context(), storage.JobFilter{
		CompanyID:       req.CompanyID,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		LocationType:    req.LocationType,
		Search:          req.Search,
		PageSize:        req.PageSize,
		Cursor:          cursor,
	})
	if err != nil {
		respondStoreError(c, h.logger, err, "list jobs")
		return
	}

	// Prepare response with next cursor if more results exist
	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, len(jobs))}
	for i := range jobs {
		resp.Jobs[i] = toJobDTO(&jobs[i])
	}

	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteJob handles DELETE /api/v1/jobs/:id
// Soft deletes a job posted by the caller
func (h *JobHandler) DeleteJob(c *gin.Context) {
	if err := h.deps.Jobs.SoftDeleteJob(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondStoreError(c, h.logger, err, "delete job")
		return
	}

	c.Status(http.StatusNoContent)
}
