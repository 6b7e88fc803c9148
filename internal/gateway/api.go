// ABOUTME: HTTP API handlers for routing, tool discovery, and run inspection.
// ABOUTME: All endpoints speak JSON; errors use a uniform error envelope.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tmates/dispatch/internal/store"
)

// routeRequest is the body of POST /api/route.
type routeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`

	// MinConfidence overrides the configured threshold when set.
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

// routeResponse is the body of a successful POST /api/route.
type routeResponse struct {
	Matched    bool    `json:"matched"`
	AgentKey   string  `json:"agent_key,omitempty"`
	Confidence float64 `json:"confidence"`
	RunID      string  `json:"run_id,omitempty"`
}

// handleHealth returns 200 OK with basic registry stats.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	reg := g.cache.Registry()
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"agents": reg.AgentCount(),
		"tools":  len(reg.AllTools()),
	})
}

// handleRoute routes a task to the best-matching agent and records a run.
func (g *Gateway) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var agentKey string
	if req.MinConfidence != nil {
		agentKey = g.router.RouteTaskWithThreshold(req.Content, req.Title, *req.MinConfidence)
	} else {
		agentKey = g.router.RouteTask(req.Content, req.Title)
	}

	if agentKey == "" {
		g.writeJSON(w, http.StatusOK, routeResponse{Matched: false})
		return
	}

	_, confidence := g.cache.Registry().FindBestAgent(req.Content, req.Title)

	run := &store.Run{
		ID:         uuid.New().String(),
		AgentKey:   agentKey,
		TaskTitle:  req.Title,
		Confidence: confidence,
		Status:     store.RunStatusCompleted,
		Details:    "routed",
	}
	if err := g.store.CreateRun(r.Context(), run); err != nil {
		g.logger.Error("recording run", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := g.store.AppendRunLog(r.Context(), run.ID, fmt.Sprintf("task routed to %s", agentKey)); err != nil {
		g.logger.Warn("appending run log", "run_id", run.ID, "error", err)
	}

	g.writeJSON(w, http.StatusOK, routeResponse{
		Matched:    true,
		AgentKey:   agentKey,
		Confidence: confidence,
		RunID:      run.ID,
	})
}

// handleTools returns all registered tools grouped by agent.
func (g *Gateway) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{
		"agents": g.cache.Registry().AvailableTools(),
	})
}

// handleSearchTools filters tools by free-text query and/or category.
func (g *Gateway) handleSearchTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	tools := g.cache.Registry().SearchTools(query, category)
	results := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		results = append(results, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"agent_key":   tool.AgentKey,
			"categories":  tool.Categories,
			"keywords":    tool.Keywords,
		})
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"query":    query,
		"category": category,
		"tools":    results,
	})
}

// handleListAgents returns the registered agent keys in registration order.
func (g *Gateway) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{
		"agents": g.cache.Registry().AgentKeys(),
	})
}

// handleAgentRoutes dispatches /api/agents/{key}/capabilities.
func (g *Gateway) handleAgentRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/agents/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "capabilities" {
		g.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	agentKey := parts[0]

	reg := g.cache.Registry()
	tools := reg.AgentCapabilities(agentKey)

	summaries := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		summaries = append(summaries, map[string]any{
			"name":             tool.Name,
			"description":      tool.Description,
			"categories":       tool.Categories,
			"keywords":         tool.Keywords,
			"content_patterns": tool.ContentPatterns,
			"task_types":       tool.TaskTypes,
			"input_requirements": map[string][]string{
				"required": tool.InputRequirements.Required,
				"optional": tool.InputRequirements.Optional,
			},
			"output_format": tool.OutputFormat,
		})
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"agent_key": agentKey,
		"tools":     summaries,
	})
}

// handleRuns lists recorded runs, optionally filtered by agent.
func (g *Gateway) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	agentKey := r.URL.Query().Get("agent")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			g.sendJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := g.store.ListRuns(r.Context(), agentKey, limit)
	if err != nil {
		g.logger.Error("listing runs", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{"runs": runsToJSON(runs)})
}

// handleRunRoutes dispatches /api/runs/{id} and /api/runs/{id}/logs.
func (g *Gateway) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		g.handleGetRun(w, r, parts[0])
	case len(parts) == 2 && parts[0] != "" && parts[1] == "logs":
		g.handleGetRunLogs(w, r, parts[0])
	default:
		g.sendJSONError(w, http.StatusNotFound, "not found")
	}
}

func (g *Gateway) handleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := g.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		g.logger.Error("fetching run", "run_id", runID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, runToJSON(run))
}

func (g *Gateway) handleGetRunLogs(w http.ResponseWriter, r *http.Request, runID string) {
	lines, err := g.store.GetRunLogs(r.Context(), runID, 0)
	if err != nil {
		g.logger.Error("fetching run logs", "run_id", runID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logs := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		logs = append(logs, map[string]any{
			"message":    line.Message,
			"created_at": line.CreatedAt,
		})
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "logs": logs})
}

// handleDebugMatch returns the full per-tool scoring breakdown for a task.
func (g *Gateway) handleDebugMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report := g.cache.Registry().DebugMatch(req.Content, req.Title)
	g.writeJSON(w, http.StatusOK, report)
}

// handleRefresh rebuilds the manifest registry from disk.
func (g *Gateway) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reg := g.cache.Refresh()
	g.logger.Info("registry refreshed", "agents", reg.AgentCount(), "tools", len(reg.AllTools()))

	g.writeJSON(w, http.StatusOK, map[string]any{
		"status": "refreshed",
		"agents": reg.AgentCount(),
		"tools":  len(reg.AllTools()),
	})
}

// runsToJSON converts runs to their API projection.
func runsToJSON(runs []*store.Run) []map[string]any {
	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, runToJSON(run))
	}
	return out
}

func runToJSON(run *store.Run) map[string]any {
	m := map[string]any{
		"id":         run.ID,
		"agent_key":  run.AgentKey,
		"task_title": run.TaskTitle,
		"confidence": run.Confidence,
		"status":     run.Status,
		"details":    run.Details,
		"created_at": run.CreatedAt,
	}
	if run.FinishedAt != nil {
		m["finished_at"] = *run.FinishedAt
	}
	return m
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("encoding response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
