package main

import (
	"github.com/stackmed/formconfig/backend/internal/cache"
	"github.com/stackmed/formconfig/backend/internal/config"
	"github.com/stackmed/formconfig/backend/internal/handlers"
	"github.com/stackmed/formconfig/backend/internal/models"
	"github.com/stackmed/formconfig/backend/internal/services"
	"github.com/stackmed/formconfig/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cacheManager     *cache.Manager
	uiConfigHandler  *handlers.UIConfigHandler
	formHandler      *handlers.FormHandler
	healthHandler    *handlers.HealthHandler
	systemLogHandler *handlers.SystemLogHandler
}

// bootstrap initializes all application dependencies: database, cache, services.
func bootstrap(cfg *config.Config) *appServices {
	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// Start system log cleanup scheduler
	services.StartLogCleanupScheduler(models.GetDB())

	// Cache manager; the service degrades to store-only when Redis is down
	cacheManager := cache.NewManager(&cfg.Cache)

	uiConfigService := services.NewUIConfigService(models.GetDB(), cacheManager)
	formService := services.NewFormService(uiConfigService)

	return &appServices{
		cacheManager:     cacheManager,
		uiConfigHandler:  handlers.NewUIConfigHandler(uiConfigService),
		formHandler:      handlers.NewFormHandler(formService),
		healthHandler:    handlers.NewHealthHandler(cacheManager),
		systemLogHandler: handlers.NewSystemLogHandler(models.GetDB()),
	}
}

// shutdown gracefully stops background services and releases connections.
func (s *appServices) shutdown() {
	services.StopLogCleanupScheduler()
	if err := s.cacheManager.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close cache connection")
	}
	logger.Info().Msg("All services stopped")
}
