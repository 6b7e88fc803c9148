// Package gateway orchestrates the dispatch server components.
//
// # Overview
//
// The gateway package is the central coordinator of the dispatch server.
// It owns the manifest cache, the task router, the run-log store, and the
// HTTP server that exposes them.
//
// # Gateway Struct
//
// The Gateway struct is the main entry point:
//
//	type Gateway struct {
//	    config     *config.Config
//	    cache      *registry.Cache
//	    router     *registry.Router
//	    store      store.Store
//	    httpServer *http.Server
//	    logger     *slog.Logger
//	}
//
// # HTTP API
//
// The gateway exposes HTTP endpoints in api.go:
//
//   - POST /api/route - Route a task to the best-matching agent
//   - GET /api/tools - List all registered tools grouped by agent
//   - GET /api/tools/search - Filter tools by query and/or category
//   - GET /api/agents - List registered agent keys
//   - GET /api/agents/{key}/capabilities - Full tool definitions of one agent
//   - GET /api/runs - List recorded routing runs
//   - GET /api/runs/{id} - Fetch one run
//   - GET /api/runs/{id}/logs - Fetch a run's log lines
//   - POST /api/debug/match - Per-tool scoring breakdown for a task
//   - POST /api/registry/refresh - Rebuild the registry from disk
//   - GET /health - Liveness check with registry stats
//
// # Lifecycle
//
// New builds the gateway from configuration. Run starts the HTTP server and
// blocks until the context is canceled, then performs a graceful shutdown
// with a five second deadline. Shutdown stops the server and closes the
// run-log store.
package gateway
