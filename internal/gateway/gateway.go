// ABOUTME: Gateway orchestrator wiring registry, router, and store behind HTTP.
// ABOUTME: Manages server lifecycle with graceful shutdown.

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/tmates/dispatch/internal/config"
	"github.com/tmates/dispatch/internal/registry"
	"github.com/tmates/dispatch/internal/store"
)

// Gateway serves the dispatch HTTP API. It owns the manifest cache, the
// task router, and the run-log store.
type Gateway struct {
	config     *config.Config
	cache      *registry.Cache
	router     *registry.Router
	store      store.Store
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the run-log store from config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("DISPATCH_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway from configuration. The manifest registry is built
// lazily on first use; Warm forces an eager build.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	loader := registry.NewLoader(cfg.Agents.Dir, cfg.Agents.Installed, logger)
	cache := registry.NewCache(loader)
	router := registry.NewRouter(cache, cfg.Routing.MinConfidence, logger)

	g := &Gateway{
		config: cfg,
		cache:  cache,
		router: router,
		store:  s,
		logger: logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	g.registerRoutes(mux)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// registerRoutes attaches all API handlers to the mux.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/api/route", g.handleRoute)
	mux.HandleFunc("/api/tools", g.handleTools)
	mux.HandleFunc("/api/tools/search", g.handleSearchTools)
	mux.HandleFunc("/api/agents", g.handleListAgents)
	mux.HandleFunc("/api/agents/", g.handleAgentRoutes)
	mux.HandleFunc("/api/runs", g.handleRuns)
	mux.HandleFunc("/api/runs/", g.handleRunRoutes)
	mux.HandleFunc("/api/debug/match", g.handleDebugMatch)
	mux.HandleFunc("/api/registry/refresh", g.handleRefresh)
}

// Warm builds the manifest registry ahead of the first request.
func (g *Gateway) Warm() {
	reg := g.cache.Registry()
	g.logger.Info("registry ready", "agents", reg.AgentCount(), "tools", len(reg.AllTools()))
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
