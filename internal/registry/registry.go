// ABOUTME: AgentRegistry index of agent key to tool definitions with matching queries.
// ABOUTME: Provides best-agent selection, tool search, and API-friendly exports.

package registry

import "strings"

// AgentRegistry is the assembled index of agent capabilities. It is
// immutable after construction: concurrent readers may call any method
// freely. Agent iteration order is the order agents were added, which is
// observable through FindBestAgent's tie-break.
type AgentRegistry struct {
	agents map[string][]ToolDefinition
	keys   []string
}

// newAgentRegistry returns an empty registry.
func newAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string][]ToolDefinition)}
}

// add registers an agent's tools. Agents with zero tools are never added;
// absence signals "no tools". Every tool must already carry the agent key.
func (r *AgentRegistry) add(agentKey string, tools []ToolDefinition) {
	if len(tools) == 0 {
		return
	}
	if _, exists := r.agents[agentKey]; !exists {
		r.keys = append(r.keys, agentKey)
	}
	r.agents[agentKey] = tools
}

// AgentCount returns the number of agents with at least one tool.
func (r *AgentRegistry) AgentCount() int {
	return len(r.keys)
}

// AgentKeys returns the agent keys in registry iteration order.
func (r *AgentRegistry) AgentKeys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// AllTools returns the flat list of all tools, iterating agents in
// registry order and tools in manifest order.
func (r *AgentRegistry) AllTools() []ToolDefinition {
	var tools []ToolDefinition
	for _, key := range r.keys {
		tools = append(tools, r.agents[key]...)
	}
	return tools
}

// AgentCapabilities returns the agent's tools verbatim, or an empty slice
// when the agent key is unknown.
func (r *AgentRegistry) AgentCapabilities(agentKey string) []ToolDefinition {
	tools, ok := r.agents[agentKey]
	if !ok {
		return []ToolDefinition{}
	}
	return tools
}

// FindBestAgent scores every agent's tools against the combined title and
// content and returns the agent with the highest max-tool score along with
// that score. An agent is represented by its single best-matching tool.
// Ties go to the agent that was registered first (strict > comparison).
// Returns ("", 0.0) when both inputs are empty or no agents are registered.
func (r *AgentRegistry) FindBestAgent(taskContent, taskTitle string) (string, float64) {
	if taskContent == "" && taskTitle == "" {
		return "", 0.0
	}

	combined := strings.TrimSpace(taskTitle + " " + taskContent)

	bestAgent := ""
	bestScore := 0.0
	for _, agentKey := range r.keys {
		agentMax := 0.0
		for _, tool := range r.agents[agentKey] {
			if score := tool.MatchesContent(combined); score > agentMax {
				agentMax = score
			}
		}
		if agentMax > bestScore {
			bestScore = agentMax
			bestAgent = agentKey
		}
	}

	return bestAgent, bestScore
}

// SearchTools filters tools by a case-insensitive substring match of query
// against name, description, or any keyword. When category is non-empty the
// tool must also declare a case-insensitively matching category. Results
// keep registry iteration order; this is a filter, not a ranked search.
func (r *AgentRegistry) SearchTools(query, category string) []ToolDefinition {
	queryLower := strings.ToLower(query)
	categoryLower := strings.ToLower(category)

	results := []ToolDefinition{}
	for _, tool := range r.AllTools() {
		if category != "" && !containsFold(tool.Categories, categoryLower) {
			continue
		}
		if strings.Contains(strings.ToLower(tool.Name), queryLower) ||
			strings.Contains(strings.ToLower(tool.Description), queryLower) ||
			anyContainsFold(tool.Keywords, queryLower) {
			results = append(results, tool)
		}
	}
	return results
}

// containsFold reports whether values contains target when both are lowered.
// target must already be lowercase.
func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.ToLower(v) == target {
			return true
		}
	}
	return false
}

// anyContainsFold reports whether any lowered value contains the lowercase
// substring.
func anyContainsFold(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), substr) {
			return true
		}
	}
	return false
}

// ToolSummary is the API-friendly projection of a ToolDefinition.
type ToolSummary struct {
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Categories        []string       `json:"categories"`
	Keywords          []string       `json:"keywords"`
	InputRequirements map[string][]string `json:"input_requirements"`
	OutputFormat      map[string]any `json:"output_format"`
}

// AvailableTools exports all tools grouped by agent key in an API-friendly
// shape.
func (r *AgentRegistry) AvailableTools() map[string][]ToolSummary {
	result := make(map[string][]ToolSummary, len(r.keys))
	for _, agentKey := range r.keys {
		tools := r.agents[agentKey]
		summaries := make([]ToolSummary, 0, len(tools))
		for _, tool := range tools {
			summaries = append(summaries, ToolSummary{
				Name:        tool.Name,
				Description: tool.Description,
				Categories:  tool.Categories,
				Keywords:    tool.Keywords,
				InputRequirements: map[string][]string{
					"required": tool.InputRequirements.Required,
					"optional": tool.InputRequirements.Optional,
				},
				OutputFormat: tool.OutputFormat,
			})
		}
		result[agentKey] = summaries
	}
	return result
}

// ToolScore is one tool's score within a debug matching report.
type ToolScore struct {
	ToolName        string   `json:"tool_name"`
	Score           float64  `json:"score"`
	KeywordsMatched []string `json:"keywords_matched"`
	PatternsMatched []string `json:"patterns_matched"`
}

// AgentDebug aggregates per-tool scores for one agent.
type AgentDebug struct {
	Tools    []ToolScore `json:"tools"`
	MaxScore float64     `json:"max_score"`
}

// Recommendation is the final routing decision of a debug report.
type Recommendation struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
}

// DebugReport holds detailed scoring information for a task.
type DebugReport struct {
	Agents         map[string]AgentDebug `json:"agents"`
	Recommendation Recommendation        `json:"recommendation"`
}

// DebugMatch scores every tool of every agent against the task and returns
// the per-tool breakdown alongside the final recommendation.
func (r *AgentRegistry) DebugMatch(taskContent, taskTitle string) DebugReport {
	combined := strings.TrimSpace(taskTitle + " " + taskContent)

	report := DebugReport{Agents: make(map[string]AgentDebug, len(r.keys))}
	for _, agentKey := range r.keys {
		tools := r.agents[agentKey]
		scores := make([]ToolScore, 0, len(tools))
		maxScore := 0.0
		for _, tool := range tools {
			score := tool.MatchesContent(combined)
			if score > maxScore {
				maxScore = score
			}
			scores = append(scores, ToolScore{
				ToolName:        tool.Name,
				Score:           score,
				KeywordsMatched: tool.MatchedKeywords(combined),
				PatternsMatched: tool.MatchedPatterns(combined),
			})
		}
		report.Agents[agentKey] = AgentDebug{Tools: scores, MaxScore: maxScore}
	}

	agent, confidence := r.FindBestAgent(taskContent, taskTitle)
	report.Recommendation = Recommendation{Agent: agent, Confidence: confidence}
	return report
}
