// Package app owns the application lifecycle: it builds the concrete
// dependency graph from configuration, starts the goroutines the configured
// mode calls for, and tears everything down in reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cardexlabs/arbscan/internal/config"
)

// App ties configuration, logging and cleanup together for one process run.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies and blocks in the configured mode until the context
// is cancelled or a mode goroutine fails.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "scan":
		return a.ScanMode(ctx, deps)
	case "serve":
		return a.ServeMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	}
	return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
}

// Close releases resources in reverse registration order. Safe to call more
// than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
