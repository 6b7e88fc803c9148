// ABOUTME: Tests for AgentRegistry selection, search, and export operations.
// ABOUTME: Covers tie-break order, empty-input short circuits, and category filters.

package registry

import (
	"testing"
)

// agentSpec pairs an agent key with its tools for registry fixtures.
type agentSpec struct {
	key   string
	tools []ToolDefinition
}

// buildRegistry assembles a registry from agent specs in order.
func buildRegistry(t *testing.T, agents ...agentSpec) *AgentRegistry {
	t.Helper()
	reg := newAgentRegistry()
	for _, a := range agents {
		for i := range a.tools {
			a.tools[i].AgentKey = a.key
		}
		reg.add(a.key, a.tools)
	}
	return reg
}

func TestFindBestAgent_PicksHighestMaxScore(t *testing.T) {
	reg := buildRegistry(t,
		agentSpec{"finance", []ToolDefinition{
			newTestTool("invoice-processor", []string{"invoice", "billing"}, nil),
		}},
		agentSpec{"research", []ToolDefinition{
			newTestTool("web-search", []string{"research", "find", "lookup"}, nil),
		}},
	)

	agent, confidence := reg.FindBestAgent("please process this invoice and billing statement", "")
	if agent != "finance" {
		t.Fatalf("expected finance, got %q", agent)
	}
	if !almostEqual(confidence, 0.3) {
		t.Errorf("expected confidence 0.3, got %v", confidence)
	}
}

func TestFindBestAgent_AgentRepresentedByBestTool(t *testing.T) {
	// Two weak tools must not out-vote one strong tool: max, not sum.
	reg := buildRegistry(t,
		agentSpec{"many-weak", []ToolDefinition{
			newTestTool("weak-1", []string{"report", "pdf"}, nil),
			newTestTool("weak-2", []string{"report", "csv"}, nil),
		}},
		agentSpec{"one-strong", []ToolDefinition{
			newTestTool("strong", []string{"report"}, nil),
		}},
	)

	agent, confidence := reg.FindBestAgent("quarterly report", "")
	if agent != "one-strong" {
		t.Fatalf("expected one-strong (max 0.3 beats max 0.15), got %q", agent)
	}
	if !almostEqual(confidence, 0.3) {
		t.Errorf("expected 0.3, got %v", confidence)
	}
}

func TestFindBestAgent_TieBreakFirstRegistered(t *testing.T) {
	toolA := newTestTool("a-tool", []string{"deploy"}, nil)
	toolB := newTestTool("b-tool", []string{"deploy"}, nil)

	reg := buildRegistry(t,
		agentSpec{"alpha", []ToolDefinition{toolA}},
		agentSpec{"beta", []ToolDefinition{toolB}},
	)

	agent, confidence := reg.FindBestAgent("deploy the service", "")
	if agent != "alpha" {
		t.Fatalf("tie must go to the first-registered agent, got %q", agent)
	}
	if !almostEqual(confidence, 0.3) {
		t.Errorf("expected 0.3, got %v", confidence)
	}

	// Same tools registered in the opposite order flip the winner.
	reg = buildRegistry(t,
		agentSpec{"beta", []ToolDefinition{toolB}},
		agentSpec{"alpha", []ToolDefinition{toolA}},
	)
	agent, _ = reg.FindBestAgent("deploy the service", "")
	if agent != "beta" {
		t.Fatalf("tie must go to the first-registered agent, got %q", agent)
	}
}

func TestFindBestAgent_EmptyInputs(t *testing.T) {
	reg := buildRegistry(t,
		agentSpec{"finance", []ToolDefinition{
			newTestTool("invoice-processor", []string{"invoice"}, nil),
		}},
	)

	agent, confidence := reg.FindBestAgent("", "")
	if agent != "" || confidence != 0.0 {
		t.Errorf("expected (\"\", 0.0), got (%q, %v)", agent, confidence)
	}
}

func TestFindBestAgent_TitleOnly(t *testing.T) {
	reg := buildRegistry(t,
		agentSpec{"finance", []ToolDefinition{
			newTestTool("invoice-processor", []string{"invoice"}, nil),
		}},
	)

	agent, confidence := reg.FindBestAgent("", "Invoice for March")
	if agent != "finance" {
		t.Fatalf("expected finance from title-only match, got %q", agent)
	}
	if !almostEqual(confidence, 0.3) {
		t.Errorf("expected 0.3, got %v", confidence)
	}
}

func TestFindBestAgent_NoAgents(t *testing.T) {
	reg := newAgentRegistry()
	agent, confidence := reg.FindBestAgent("anything", "")
	if agent != "" || confidence != 0.0 {
		t.Errorf("expected (\"\", 0.0) on empty registry, got (%q, %v)", agent, confidence)
	}
}

func TestFindBestAgent_Idempotent(t *testing.T) {
	reg := buildRegistry(t,
		agentSpec{"finance", []ToolDefinition{
			newTestTool("invoice-processor", []string{"invoice", "billing"}, []string{`\$\d+`}),
		}},
		agentSpec{"research", []ToolDefinition{
			newTestTool("web-search", []string{"research"}, nil),
		}},
	)

	a1, c1 := reg.FindBestAgent("invoice for $250", "billing")
	a2, c2 := reg.FindBestAgent("invoice for $250", "billing")
	if a1 != a2 || c1 != c2 {
		t.Errorf("repeated calls diverged: (%q, %v) vs (%q, %v)", a1, c1, a2, c2)
	}
}

func TestSearchTools_CategoryFilter(t *testing.T) {
	invoiceChecker := newTestTool("invoice-checker", []string{"invoice"}, nil)
	invoiceChecker.Categories = []string{"ops"}
	invoicePayer := newTestTool("invoice-payer", []string{"invoice"}, nil)
	invoicePayer.Categories = []string{"finance"}

	reg := buildRegistry(t,
		agentSpec{"ops-bot", []ToolDefinition{invoiceChecker}},
		agentSpec{"finance-bot", []ToolDefinition{invoicePayer}},
	)

	results := reg.SearchTools("invoice", "finance")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Name != "invoice-payer" {
		t.Errorf("category filter must exclude invoice-checker, got %q", results[0].Name)
	}
}

func TestSearchTools_MatchesNameDescriptionKeywords(t *testing.T) {
	byName := newTestTool("pdf-export", nil, nil)
	byDescription := newTestTool("renderer", nil, nil)
	byDescription.Description = "Converts documents to PDF"
	byKeyword := newTestTool("doc-tool", []string{"pdf", "docx"}, nil)
	noMatch := newTestTool("emailer", []string{"smtp"}, nil)

	reg := buildRegistry(t,
		agentSpec{"docs", []ToolDefinition{byName, byDescription, byKeyword, noMatch}},
	)

	results := reg.SearchTools("PDF", "")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Stable flattened order: manifest order within the agent.
	if results[0].Name != "pdf-export" || results[1].Name != "renderer" || results[2].Name != "doc-tool" {
		t.Errorf("unexpected order: %q, %q, %q", results[0].Name, results[1].Name, results[2].Name)
	}
}

func TestAgentCapabilities_UnknownKey(t *testing.T) {
	reg := buildRegistry(t,
		agentSpec{"finance", []ToolDefinition{newTestTool("t", nil, nil)}},
	)

	got := reg.AgentCapabilities("missing")
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no tools for unknown agent, got %d", len(got))
	}
}

func TestAllTools_FlattensInRegistryOrder(t *testing.T) {
	reg := buildRegistry(t,
		agentSpec{"b-agent", []ToolDefinition{newTestTool("b1", nil, nil), newTestTool("b2", nil, nil)}},
		agentSpec{"a-agent", []ToolDefinition{newTestTool("a1", nil, nil)}},
	)

	tools := reg.AllTools()
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}
	if tools[0].Name != "b1" || tools[1].Name != "b2" || tools[2].Name != "a1" {
		t.Errorf("flatten order wrong: %q, %q, %q", tools[0].Name, tools[1].Name, tools[2].Name)
	}
}

func TestAvailableTools_Export(t *testing.T) {
	tool := newTestTool("invoice-processor", []string{"invoice"}, nil)
	tool.Description = "Processes invoices"
	tool.Categories = []string{"finance"}
	tool.InputRequirements = InputRequirements{Required: []string{"document"}, Optional: []string{}}
	tool.OutputFormat = map[string]any{"type": "summary"}

	reg := buildRegistry(t, agentSpec{"finance", []ToolDefinition{tool}})

	export := reg.AvailableTools()
	summaries, ok := export["finance"]
	if !ok || len(summaries) != 1 {
		t.Fatalf("expected one summary for finance, got %v", export)
	}
	s := summaries[0]
	if s.Name != "invoice-processor" || s.Description != "Processes invoices" {
		t.Errorf("unexpected summary: %+v", s)
	}
	if len(s.InputRequirements["required"]) != 1 || s.InputRequirements["required"][0] != "document" {
		t.Errorf("input requirements not exported: %+v", s.InputRequirements)
	}
}

func TestDebugMatch(t *testing.T) {
	reg := buildRegistry(t,
		agentSpec{"finance", []ToolDefinition{
			newTestTool("invoice-processor", []string{"invoice", "billing"}, nil),
		}},
		agentSpec{"research", []ToolDefinition{
			newTestTool("web-search", []string{"research"}, nil),
		}},
	)

	report := reg.DebugMatch("please process this invoice", "")

	finance := report.Agents["finance"]
	if len(finance.Tools) != 1 {
		t.Fatalf("expected 1 scored tool for finance, got %d", len(finance.Tools))
	}
	if !almostEqual(finance.Tools[0].Score, 0.15) {
		t.Errorf("expected 0.15, got %v", finance.Tools[0].Score)
	}
	if len(finance.Tools[0].KeywordsMatched) != 1 || finance.Tools[0].KeywordsMatched[0] != "invoice" {
		t.Errorf("unexpected matched keywords: %v", finance.Tools[0].KeywordsMatched)
	}
	if !almostEqual(finance.MaxScore, 0.15) {
		t.Errorf("expected max score 0.15, got %v", finance.MaxScore)
	}
	if report.Recommendation.Agent != "finance" {
		t.Errorf("expected recommendation finance, got %q", report.Recommendation.Agent)
	}
}
