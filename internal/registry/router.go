// ABOUTME: Task router façade applying a minimum-confidence threshold to routing.
// ABOUTME: Callers get an agent key or nothing; the score is discarded.

package registry

import "log/slog"

// DefaultMinConfidence is the routing threshold used when none is configured.
const DefaultMinConfidence = 0.1

// Router is a thin façade over the cached registry for callers that only
// want a yes/no routing decision.
type Router struct {
	cache         *Cache
	minConfidence float64
	logger        *slog.Logger
}

// NewRouter creates a Router with the given threshold. A zero threshold
// selects DefaultMinConfidence.
func NewRouter(cache *Cache, minConfidence float64, logger *slog.Logger) *Router {
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cache:         cache,
		minConfidence: minConfidence,
		logger:        logger.With("component", "router"),
	}
}

// MinConfidence returns the router's configured threshold.
func (r *Router) MinConfidence() float64 {
	return r.minConfidence
}

// RouteTask returns the best agent for the task, or "" when the best
// confidence falls below the router's threshold.
func (r *Router) RouteTask(taskContent, taskTitle string) string {
	return r.RouteTaskWithThreshold(taskContent, taskTitle, r.minConfidence)
}

// RouteTaskWithThreshold is RouteTask with a caller-supplied threshold.
// The winning agent key is returned only when its confidence is at least
// minConfidence; otherwise the result is "" and the score is discarded.
func (r *Router) RouteTaskWithThreshold(taskContent, taskTitle string, minConfidence float64) string {
	agentKey, confidence := r.cache.Registry().FindBestAgent(taskContent, taskTitle)
	if agentKey == "" || confidence < minConfidence {
		r.logger.Debug("no agent above threshold",
			"confidence", confidence, "min_confidence", minConfidence)
		return ""
	}
	r.logger.Debug("routed task", "agent", agentKey, "confidence", confidence)
	return agentKey
}
