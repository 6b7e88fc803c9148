// Package registry builds a queryable index of agent capabilities from
// per-agent manifest documents and matches free-text task content against it.
//
// # Overview
//
// Each installed agent ships a manifest.yaml whose tools sequence declares
// the agent's capabilities: keywords, content patterns, and categories used
// to detect relevant tasks. The registry ingests those manifests once,
// caches the resulting index, and answers "which agent, with what
// confidence, best handles this task".
//
// # Components
//
//   - ToolDefinition: one capability with a self-contained MatchesContent score
//   - Loader: reads manifests and applies field defaults, skipping broken input
//   - AgentRegistry: the immutable agent-key -> tools index with query methods
//   - Cache: build-once slot with explicit Refresh
//   - Router: threshold façade returning an agent key or nothing
//
// # Scoring
//
// MatchesContent combines a keyword term (matched/total x keyword weight)
// and a pattern term (matched/total x pattern weight), clamped to 1.0.
// Patterns compile case-insensitively at load time; invalid patterns fall
// back to literal substring matching. The task_types weight is reserved and
// never contributes.
//
// # Usage
//
//	loader := registry.NewLoader(cfg.Agents.Dir, cfg.Agents.Installed, logger)
//	cache := registry.NewCache(loader)
//	router := registry.NewRouter(cache, cfg.Routing.MinConfidence, logger)
//
//	agent := router.RouteTask("please process this invoice", "")
//
// FindBestAgent ties break toward the agent registered first, so the
// loader's iteration order (configured list order, or sorted discovery
// order) is part of the routing contract.
package registry
