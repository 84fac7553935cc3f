// Package handlers implements the REST API endpoint handlers for the fleet
// management API.
//
// @title A2S Proxy Management API
// @version 1.0
// @description REST API for inspecting and operating a running A2S query proxy fleet.
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/queryshield/a2sproxy/internal/fleet"
)

// Handler contains dependencies for API handlers.
type Handler struct {
	manager   *fleet.Manager
	logger    *slog.Logger
	startTime time.Time
}

// New creates a new Handler backed by manager.
func New(manager *fleet.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager:   manager,
		logger:    logger,
		startTime: time.Now(),
	}
}
