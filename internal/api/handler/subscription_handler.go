package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/dto"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
)

// SubscriptionHandler handles company subscription HTTP requests
type SubscriptionHandler struct {
	deps   *Dependencies
	logger *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler instance
func NewSubscriptionHandler(deps *Dependencies) *SubscriptionHandler {
	return &SubscriptionHandler{
		deps:   deps,
		logger: deps.Logger.With(slog.String("handler", "subscriptions")),
	}
}

// CreateSubscription handles POST /api/v1/subscriptions
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	company, err := h.deps.Companies.GetActiveCompany(ctx, req.CompanyID)
	if err != nil {
		respondStoreError(c, h.logger, err, "load company")
		return
	}

	now := h.deps.now()
	sub := model.Subscription{
		ID:               uuid.New().String(),
		UserID:           userID(c),
		CompanyID:        company.ID,
		JobTypes:         stringArray(req.JobTypes),
		ExperienceLevels: stringArray(req.ExperienceLevels),
		NotifyEmail:      true,
		NotifyPush:       true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	applyPreferences(&sub.NotifyEmail, &sub.NotifyPush, &sub.NotifySMS, &req.Preferences)

	err = h.deps.Subscriptions.CreateSubscription(ctx, &sub)
	if errors.Is(err, domain.ErrSubscriptionExists) {
		existing, getErr := h.deps.Subscriptions.GetSubscriptionByCompany(ctx, sub.UserID, company.ID)
		if getErr != nil {
			respondStoreError(c, h.logger, getErr, "load existing subscription")
			return
		}
		c.JSON(http.StatusConflict, dto.SubscriptionConflictResponse{
			Error:        err.Error(),
			Subscription: toSubscriptionDTO(&existing.Subscription, existing.CompanyName),
		})
		return
	}
	if err != nil {
		respondStoreError(c, h.logger, err, "create subscription")
		return
	}

	h.logger.Info("Subscription created",
		slog.String("subscription_id", sub.ID),
		slog.String("user_id", sub.UserID),
		slog.String("company_id", sub.CompanyID),
	)

	c.JSON(http.StatusCreated, toSubscriptionDTO(&sub, company.Name))
}

// ListSubscriptions handles GET /api/v1/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	page := normalizePage(req.Page, req.Limit)
	subs, total, err := h.deps.Subscriptions.ListSubscriptions(c.Request.Context(), userID(c), page)
	if err != nil {
		respondStoreError(c, h.logger, err, "list subscriptions")
		return
	}

	resp := dto.ListSubscriptionsResponse{
		Subscriptions: make([]dto.SubscriptionDTO, len(subs)),
		Pagination: dto.PaginationDTO{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: totalPages(total, page.Limit),
		},
	}
	for i := range subs {
		resp.Subscriptions[i] = toSubscriptionDTO(&subs[i].Subscription, subs[i].CompanyName)
	}

	c.JSON(http.StatusOK, resp)
}

// CheckSubscription handles GET /api/v1/subscriptions/check/:company_id
func (h *SubscriptionHandler) CheckSubscription(c *gin.Context) {
	sub, err := h.deps.Subscriptions.GetSubscriptionByCompany(c.Request.Context(), userID(c), c.Param("company_id"))
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		c.JSON(http.StatusOK, dto.CheckSubscriptionResponse{IsSubscribed: false})
		return
	}
	if err != nil {
		respondStoreError(c, h.logger, err, "check subscription")
		return
	}

	out := toSubscriptionDTO(&sub.Subscription, sub.CompanyName)
	c.JSON(http.StatusOK, dto.CheckSubscriptionResponse{
		IsSubscribed: sub.IsActive,
		Subscription: &out,
	})
}

// GetSubscription handles GET /api/v1/subscriptions/:id
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	sub, err := h.deps.Subscriptions.GetSubscription(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, err, "get subscription")
		return
	}

	c.JSON(http.StatusOK, toSubscriptionDTO(&sub.Subscription, sub.CompanyName))
}

// UpdateSubscription handles PATCH /api/v1/subscriptions/:id
func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	var req dto.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	current, err := h.deps.Subscriptions.GetSubscription(ctx, userID(c), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, err, "get subscription")
		return
	}

	sub := current.Subscription
	if req.JobTypes != nil {
		sub.JobTypes = stringArray(req.JobTypes)
	}
	if req.ExperienceLevels != nil {
		sub.ExperienceLevels = stringArray(req.ExperienceLevels)
	}
	if req.IsActive != nil {
		sub.IsActive = *req.IsActive
	}
	applyPreferences(&sub.NotifyEmail, &sub.NotifyPush, &sub.NotifySMS, req.Preferences)
	sub.UpdatedAt = h.deps.now()

	if err := h.deps.Subscriptions.UpdateSubscription(ctx, &sub); err != nil {
		respondStoreError(c, h.logger, err, "update subscription")
		return
	}

	c.JSON(http.StatusOK, toSubscriptionDTO(&sub, current.CompanyName))
}

// ToggleSubscription handles PATCH /api/v1/subscriptions/:id/toggle
func (h *SubscriptionHandler) ToggleSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.deps.Subscriptions.ToggleSubscription(ctx, userID(c), c.Param("id")); err != nil {
		respondStoreError(c, h.logger, err, "toggle subscription")
		return
	}

	sub, err := h.deps.Subscriptions.GetSubscription(ctx, userID(c), c.Param("id"))
	if err != nil {
		respondStoreError(c, h.logger, err, "get subscription")
		return
	}

	c.JSON(http.StatusOK, toSubscriptionDTO(&sub.Subscription, sub.CompanyName))
}

// DeleteSubscription handles DELETE /api/v1/subscriptions/:id
func (h *SubscriptionHandler) DeleteSubscription(c *gin.Context) {
	if err := h.deps.Subscriptions.DeleteSubscription(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondStoreError(c, h.logger, err, "delete subscription")
		return
	}

	c.Status(http.StatusNoContent)
}
