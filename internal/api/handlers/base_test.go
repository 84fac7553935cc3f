package handlers_test

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/queryshield/a2sproxy/internal/api/handlers"
)

func setupTestRouter(h *handlers.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/servers", h.List)
	api.GET("/servers/:name/history", h.History)
	api.POST("/servers/:name/refresh", h.Refresh)

	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
