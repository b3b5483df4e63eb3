package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/overseerhq/overseer/internal/config"
	"github.com/overseerhq/overseer/internal/mcp"
	"github.com/overseerhq/overseer/internal/ratelimit"
	"github.com/overseerhq/overseer/internal/server"
	"github.com/overseerhq/overseer/internal/storage"
	"github.com/overseerhq/overseer/internal/telemetry"
	"github.com/overseerhq/overseer/ui"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("OVERSEER_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; most installs won't have one).
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("overseer starting", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir)

	// Initialize OpenTelemetry (noop when no endpoint is configured).
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Open the event store and create the schema.
	store, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}

	// Start the retention sweep. RetentionDays <= 0 disables it.
	if cfg.RetentionDays > 0 {
		go retentionLoop(ctx, store, logger, cfg.RetentionDays, cfg.RetentionInterval)
		logger.Info("retention sweep enabled", "days", cfg.RetentionDays, "interval", cfg.RetentionInterval)
	} else {
		logger.Info("retention sweep disabled")
	}

	// Create MCP server for agent-side introspection.
	mcpSrv := mcp.New(store, logger, version)

	// Load embedded UI filesystem (non-nil only when built with -tags ui).
	uiFS, err := ui.DistFS()
	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	if uiFS != nil {
		logger.Info("ui: embedded dashboard loaded")
	}

	// Create rate limiter for the ingestion endpoints.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		memLimiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = memLimiter.Close() }()
		limiter = memLimiter
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	// Create and start HTTP server (MCP mounted at /mcp).
	srv := server.New(server.ServerConfig{
		Store:               store,
		Logger:              logger,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		UIFS:                uiFS,
		ConfigPath:          cfg.ConfigPath,
		InsightsPath:        cfg.InsightsPath,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		RetentionDays:       cfg.RetentionDays,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop accepting new HTTP requests and drain
	// in-flight ones, then close the store (the deferred Close also
	// checkpoints the WAL).
	slog.Info("overseer shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	slog.Info("overseer stopped")
	return nil
}

// retentionLoop deletes action events older than the configured window.
// It runs one sweep immediately at startup, then on every tick.
func retentionLoop(ctx context.Context, store *storage.Store, logger *slog.Logger, days int, interval time.Duration) {
	sweep := func() {
		deleted, err := store.CleanupEvents(ctx, days)
		if err != nil {
			logger.Warn("retention sweep failed", "error", err)
			return
		}
		if deleted > 0 {
			logger.Info("retention sweep complete", "deleted", deleted, "days", days)
		}
	}

	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
