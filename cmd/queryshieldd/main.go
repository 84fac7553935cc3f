package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/queryshield/a2sproxy/internal/api"
	"github.com/queryshield/a2sproxy/internal/config"
	"github.com/queryshield/a2sproxy/internal/fleet"
	"github.com/queryshield/a2sproxy/internal/logging"
	"github.com/queryshield/a2sproxy/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	jsonLogs   bool
	debug      bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML configuration file (or QUERYSHIELD_CONFIG)")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.FleetConfig, f cliFlags) {
	if f.jsonLogs {
		cfg.Logging.Structured = true
		cfg.Logging.Format = "json"
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(config.ResolveConfigPath(flags.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(logging.Config{
		Level:       cfg.Logging.Level,
		Structured:  cfg.Logging.Structured,
		Format:      cfg.Logging.Format,
		IncludePID:  cfg.Logging.IncludePID,
		ExtraFields: cfg.Logging.ExtraFields,
	})
	logger.Info("queryshieldd starting", "servers", len(cfg.Servers), "api_enabled", cfg.API.Enabled)

	recorder, closeRecorder, err := buildRecorder(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to set up health history storage: %w", err)
	}
	defer closeRecorder()

	manager, err := fleet.New(cfg, logger, recorder)
	if err != nil {
		return fmt.Errorf("failed to build server fleet: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var apiSrv *api.Server
	if cfg.API.Enabled {
		apiSrv = api.New(cfg.API, manager, logger)
		logger.Info("management API starting", "addr", apiSrv.Addr())
		go func() {
			if serveErr := apiSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("management API error", "error", serveErr)
				cancel()
			}
		}()
	}

	runErr := manager.Run(ctx)

	if apiSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = apiSrv.Shutdown(shutdownCtx)
		shutdownCancel()
		logger.Info("management API stopped")
	}

	if runErr != nil {
		return fmt.Errorf("fleet exited with error: %w", runErr)
	}
	return nil
}

// buildRecorder picks a SQLite-backed recorder when storage.path is
// configured, falling back to the bounded in-memory ring otherwise. The
// returned close func is always safe to call.
func buildRecorder(cfg config.StorageConfig, logger *slog.Logger) (fleet.Recorder, func(), error) {
	if cfg.Path == "" {
		return fleet.NewRingRecorder(storage.NewRing()), func() {}, nil
	}
	db, err := storage.Open(cfg.Path)
	if err != nil {
		return nil, func() {}, err
	}
	return fleet.NewDBRecorder(db, logger), func() { _ = db.Close() }, nil
}
