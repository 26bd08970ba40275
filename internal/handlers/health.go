package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/stackmed/formconfig/backend/internal/cache"
	"github.com/stackmed/formconfig/backend/internal/models"
)

// HealthHandler reports the status of the store and cache subsystems.
type HealthHandler struct {
	cache *cache.Manager
}

func NewHealthHandler(cacheManager *cache.Manager) *HealthHandler {
	return &HealthHandler{cache: cacheManager}
}

func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Cache is an accelerator; losing it degrades latency, not health
	cacheStatus := "disabled"
	if h.cache.Enabled() {
		cacheStatus = "ok"
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			cacheStatus = "degraded: " + err.Error()
		}
	}

	var configCount int64
	models.GetDB().Model(&models.UIConfig{}).Count(&configCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "formconfig",
		"components": gin.H{
			"database": dbStatus,
			"cache":    cacheStatus,
			"configs":  configCount,
		},
	})
}
