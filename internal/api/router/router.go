package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/jobboard-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, corsOrigins []string) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(corsOrigins))

	r.GET("/health", handler.Health(deps))

	alertHandler := handler.NewAlertHandler(deps)
	subscriptionHandler := handler.NewSubscriptionHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	applicationHandler := handler.NewApplicationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(), ValidateIDParams())
	{
		alerts := v1.Group("/job-alerts")
		{
			alerts.POST("", alertHandler.CreateAlert)
			alerts.GET("", alertHandler.ListAlerts)
			alerts.GET("/:id", alertHandler.GetAlert)
			alerts.PATCH("/:id", alertHandler.UpdateAlert)
			alerts.PATCH("/:id/toggle", alertHandler.ToggleAlert)
			alerts.DELETE("/:id", alertHandler.DeleteAlert)
			// POST /api/v1/job-alerts/:id/test - Dry run against recent jobs
			alerts.POST("/:id/test", alertHandler.TestAlert)
		}

		subscriptions := v1.Group("/subscriptions")
		{
			subscriptions.POST("", subscriptionHandler.CreateSubscription)
			subscriptions.GET("", subscriptionHandler.ListSubscriptions)
			subscriptions.GET("/check/:company_id", subscriptionHandler.CheckSubscription)
			subscriptions.GET("/:id", subscriptionHandler.GetSubscription)
			subscriptions.PATCH("/:id", subscriptionHandler.UpdateSubscription)
			subscriptions.PATCH("/:id/toggle", subscriptionHandler.ToggleSubscription)
			subscriptions.DELETE("/:id", subscriptionHandler.DeleteSubscription)
		}

		// POST /api/v1/companies/:company_id/jobs - Post a job and notify followers
		v1.POST("/companies/:company_id/jobs", jobHandler.CreateJob)

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.DELETE("/:id", jobHandler.DeleteJob)
		}

		applications := v1.Group("/applications")
		{
			applications.POST("", applicationHandler.CreateApplication)
			applications.GET("", applicationHandler.ListApplications)
		}
	}

	return r
}
