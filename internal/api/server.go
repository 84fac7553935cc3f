// Package api provides the REST management API for the query proxy fleet.
// It exposes endpoints for health checks, process statistics, and
// per-server status/history/refresh via a Gin-based HTTP server.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/queryshield/a2sproxy/internal/api/handlers"
	"github.com/queryshield/a2sproxy/internal/api/middleware"
	"github.com/queryshield/a2sproxy/internal/config"
	"github.com/queryshield/a2sproxy/internal/fleet"
)

// Server is the management REST API server.
//
// Security note: do not expose the API to untrusted networks without an
// API key configured.
type Server struct {
	cfg        config.APIConfig
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

func New(cfg config.APIConfig, manager *fleet.Manager, logger *slog.Logger) *Server {
	if manager == nil {
		panic("api.New: manager is nil")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(manager, logger)
	RegisterRoutes(engine, h, cfg)

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{cfg: cfg, logger: logger, engine: engine, httpServer: httpServer}
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
