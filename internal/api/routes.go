package api

import (
	"github.com/gin-gonic/gin"
	"github.com/queryshield/a2sproxy/internal/api/handlers"
	"github.com/queryshield/a2sproxy/internal/api/middleware"
	"github.com/queryshield/a2sproxy/internal/config"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/queryshield/a2sproxy/internal/api/docs" // swagger docs
)

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg config.APIConfig) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	if cfg.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.APIKey))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)

	api.GET("/servers", h.List)
	api.GET("/servers/:name/history", h.History)
	api.POST("/servers/:name/refresh", h.Refresh)
}
