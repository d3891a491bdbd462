package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/api/admin"
	"github.com/liliang-cn/docuchat/internal/api/middleware"
	"github.com/liliang-cn/docuchat/internal/api/session"
	"github.com/liliang-cn/docuchat/internal/config"
	"github.com/liliang-cn/docuchat/internal/notify"
	"github.com/liliang-cn/docuchat/internal/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(
	cfg *config.Config,
	chatService *service.ChatService,
	adminService *service.AdminService,
	hub *notify.Hub,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS middleware
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Session API (public, rate limited per client)
	apiGroup := r.Group("/api")
	if cfg.RateLimit.Enabled {
		apiGroup.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerHour))
	}
	sessionHandler := session.NewHandler(chatService, hub, cfg, logger)
	sessionHandler.RegisterRoutes(apiGroup)

	// Admin API (requires API key)
	adminHandler := admin.NewHandler(adminService, hub)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.Auth(cfg.Admin.APIKey))
	adminHandler.RegisterRoutes(adminGroup)

	return r
}
