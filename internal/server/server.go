package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/overseerhq/overseer/internal/ratelimit"
	"github.com/overseerhq/overseer/internal/storage"
)

// Server is the Overseer HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. Optional fields (nil-safe): Limiter, MCPServer, UIFS.
type ServerConfig struct {
	// Required dependencies.
	Store  *storage.Store
	Logger *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter   ratelimit.Limiter
	MCPServer *mcpserver.MCPServer
	UIFS      fs.FS // embedded dashboard frontend

	// Sibling documents served through the passthrough endpoints.
	ConfigPath   string
	InsightsPath string

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64

	// RetentionDays is the default window for POST /api/logs/cleanup.
	RetentionDays int
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		ConfigPath:          cfg.ConfigPath,
		InsightsPath:        cfg.InsightsPath,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		RetentionDays:       cfg.RetentionDays,
	})

	// The ingestion endpoints are the only writers; rate limit them by
	// client IP. Read endpoints stay unthrottled — the dashboard polls.
	ingestRL := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc)

	mux := http.NewServeMux()

	// Action log.
	mux.HandleFunc("GET /api/logs", h.HandleListLogs)
	mux.HandleFunc("GET /api/logs/stats", h.HandleLogStats)
	mux.HandleFunc("GET /api/logs/{id}", h.HandleGetLog)
	mux.Handle("POST /api/logs", ingestRL(http.HandlerFunc(h.HandleAppendLog)))
	mux.Handle("POST /api/logs/cleanup", ingestRL(http.HandlerFunc(h.HandleCleanupLogs)))

	// Session reviews.
	mux.HandleFunc("GET /api/reviews", h.HandleListReviews)
	mux.HandleFunc("GET /api/reviews/trends", h.HandleReviewTrends)
	mux.Handle("POST /api/reviews", ingestRL(http.HandlerFunc(h.HandleAppendReview)))

	// Sibling document passthroughs.
	mux.HandleFunc("GET /api/config", h.HandleGetConfig)
	mux.HandleFunc("PUT /api/config", h.HandlePutConfig)
	mux.HandleFunc("GET /api/insights", h.HandleGetInsights)

	// MCP StreamableHTTP transport for agent-side introspection.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// SPA: serve the embedded dashboard at the root path. Registered last
	// so API routes take priority via the mux's longest-match rule.
	if cfg.UIFS != nil {
		mux.Handle("/", newSPAHandler(cfg.UIFS))
		cfg.Logger.Info("ui enabled, serving dashboard at /")
	}

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
