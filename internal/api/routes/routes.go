package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/argussec/argus/internal/api/handlers"
	"github.com/argussec/argus/internal/api/middleware"
	"github.com/argussec/argus/internal/config"
	"github.com/argussec/argus/internal/gatekeeper"
	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/metrics"
	"github.com/argussec/argus/internal/models"
)

// Register wires up API routes and performs automatic migrations. Health
// and metrics stay outside the admission check so probes and scrapes keep
// working while the gatekeeper is denying traffic.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, gk *gatekeeper.Gatekeeper) error {
	if db != nil {
		if err := db.AutoMigrate(
			&models.IPIntelligenceRecord{},
			&models.SecurityDecision{},
			&models.SecurityAudit{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/api/v1/health", handlers.HealthHandler)

	api := router.Group("/api/v1")
	api.Use(middleware.Gatekeeper(gk))

	securityHandler := handlers.NewSecurityHandler(gk, db)
	admin := api.Group("/security")
	admin.Use(middleware.AdminAuth(cfg.AdminTokenHash))
	{
		admin.GET("/dashboard", securityHandler.GetDashboard)
		admin.GET("/events", securityHandler.GetEvents)
		admin.GET("/blocked", securityHandler.GetBlocked)
		admin.POST("/block", securityHandler.Block)
		admin.POST("/unblock", securityHandler.Unblock)
		admin.POST("/emergency/reset", securityHandler.ResetEmergency)
	}

	logger.Log().Info("Routes registered")
	return nil
}
