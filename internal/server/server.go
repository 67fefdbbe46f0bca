// Package server exposes the scan engine over a small authenticated HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
	"github.com/cardexlabs/arbscan/internal/server/handler"
	"github.com/cardexlabs/arbscan/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Opportunities *handler.OpportunityHandler
	Scan          *handler.ScanHandler
}

// Server is the headless HTTP API server for the arbitrage scanner.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the middleware chain (logging, CORS, auth, rate limit) applied.
// limiter may be nil, in which case API rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required inside the chain; auth middleware is
	// global, so protect deployments by fronting health checks accordingly).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Opportunity endpoints.
	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.ListActive)
	mux.HandleFunc("GET /api/opportunities/recent", handlers.Opportunities.ListRecent)
	mux.HandleFunc("DELETE /api/opportunities/{id}", handlers.Opportunities.Deactivate)

	// Scan endpoints.
	mux.HandleFunc("POST /api/scan", handlers.Scan.Trigger)
	mux.HandleFunc("GET /api/scanner/status", handlers.Scan.Status)
	mux.HandleFunc("GET /api/scans", handlers.Opportunities.ScanHistory)

	// Outermost first: CORS answers preflights before anything else runs,
	// auth sits closest to the mux.
	mws := []middleware.Middleware{
		middleware.CORS(cfg.CORSOrigins),
		middleware.Logging(logger),
	}
	if limiter != nil {
		mws = append(mws, middleware.RateLimit(limiter, 60, time.Minute))
	}
	mws = append(mws, middleware.Auth(cfg.APIKey))
	h := middleware.Chain(mux, mws...)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
