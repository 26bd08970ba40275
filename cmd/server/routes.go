package main

import (
	"github.com/gin-gonic/gin"
	"github.com/stackmed/formconfig/backend/internal/middleware"
	"github.com/stackmed/formconfig/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the admin flush route
	adminLimiter := middleware.NewRateLimiter(1, 2)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// Config CRUD
	configGroup := r.Group("/config")
	{
		configGroup.GET("", svc.uiConfigHandler.List)
		configGroup.POST("", svc.uiConfigHandler.Create)
		configGroup.POST("/flush-cache", adminLimiter.Middleware(), svc.uiConfigHandler.FlushCache)
		configGroup.GET("/:tenant_id/:type", svc.uiConfigHandler.Get)
		configGroup.PUT("/:tenant_id/:type", svc.uiConfigHandler.Update)
		configGroup.DELETE("/:tenant_id/:type", svc.uiConfigHandler.Delete)
	}

	// Form submission
	formGroup := r.Group("/form")
	{
		formGroup.POST("/:tenant_id/:type/submit", svc.formHandler.Submit)
	}

	// Operational logs
	r.GET("/system-logs", svc.systemLogHandler.List)
}
