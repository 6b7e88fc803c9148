// ABOUTME: Tests for ToolDefinition content scoring.
// ABOUTME: Covers keyword/pattern terms, invalid-pattern fallback, bounds, and clamping.

package registry

import (
	"math"
	"testing"
)

// newTestTool builds a ToolDefinition with resolved pattern matchers and
// default confidence weights.
func newTestTool(name string, keywords, patterns []string) ToolDefinition {
	tool := ToolDefinition{
		Name:            name,
		AgentKey:        "tester",
		Keywords:        keywords,
		ContentPatterns: patterns,
		ConfidenceWeights: ConfidenceWeights{
			Keywords:  DefaultKeywordWeight,
			Patterns:  DefaultPatternWeight,
			TaskTypes: DefaultTaskTypeWeight,
		},
	}
	tool.resolveMatchers()
	return tool
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMatchesContent_EmptyContent(t *testing.T) {
	tool := newTestTool("invoices", []string{"invoice"}, []string{`\binvoice\b`})
	if got := tool.MatchesContent(""); got != 0.0 {
		t.Errorf("expected 0.0 for empty content, got %v", got)
	}
}

func TestMatchesContent_NoSignals(t *testing.T) {
	tool := newTestTool("empty", nil, nil)
	for _, content := range []string{"anything at all", "invoice billing", "x"} {
		if got := tool.MatchesContent(content); got != 0.0 {
			t.Errorf("tool with no keywords/patterns scored %v on %q", got, content)
		}
	}
}

func TestMatchesContent_KeywordTerm(t *testing.T) {
	// keywords=["invoice","billing"], weight 0.3, one match => (1/2)*0.3
	tool := newTestTool("invoices", []string{"invoice", "billing"}, nil)
	got := tool.MatchesContent("please process this invoice")
	if !almostEqual(got, 0.15) {
		t.Errorf("expected 0.15, got %v", got)
	}
}

func TestMatchesContent_KeywordCaseInsensitive(t *testing.T) {
	tool := newTestTool("invoices", []string{"Invoice"}, nil)
	got := tool.MatchesContent("PLEASE PROCESS THIS INVOICE")
	if !almostEqual(got, 0.3) {
		t.Errorf("expected 0.3, got %v", got)
	}
}

func TestMatchesContent_PatternTerm(t *testing.T) {
	tool := newTestTool("deploys", nil, []string{`deploy(ment)?`, `release v\d+`})
	got := tool.MatchesContent("Deployment window for release v12 opens tomorrow")
	// both patterns match => (2/2)*0.4
	if !almostEqual(got, 0.4) {
		t.Errorf("expected 0.4, got %v", got)
	}
}

func TestMatchesContent_InvalidPatternFallsBackToLiteral(t *testing.T) {
	// "c++ build(" is not a valid regexp; it must degrade to a literal
	// case-insensitive substring, not fail the score.
	tool := newTestTool("builds", nil, []string{"c++ build("})
	got := tool.MatchesContent("the C++ build( step failed")
	if !almostEqual(got, 0.4) {
		t.Errorf("expected literal fallback match 0.4, got %v", got)
	}

	if got := tool.MatchesContent("unrelated text"); got != 0.0 {
		t.Errorf("expected 0.0 for non-matching literal, got %v", got)
	}
}

func TestMatchesContent_ClampedToOne(t *testing.T) {
	tool := newTestTool("greedy", []string{"task"}, []string{"task"})
	tool.ConfidenceWeights = ConfidenceWeights{Keywords: 0.9, Patterns: 0.9}
	got := tool.MatchesContent("task task task")
	if got != 1.0 {
		t.Errorf("expected clamp to 1.0, got %v", got)
	}
}

func TestMatchesContent_Bounds(t *testing.T) {
	tool := newTestTool("bounds", []string{"a", "b", "c"}, []string{"x|y", "["})
	contents := []string{
		"", "a", "abc xyz", "completely unrelated", "AAAxxx[[",
		"a b c x y [ everything",
	}
	for _, content := range contents {
		got := tool.MatchesContent(content)
		if got < 0.0 || got > 1.0 {
			t.Errorf("score out of bounds for %q: %v", content, got)
		}
	}
}

func TestMatchesContent_TaskTypesNeverScored(t *testing.T) {
	tool := newTestTool("typed", nil, nil)
	tool.TaskTypes = []string{"analysis"}
	tool.ConfidenceWeights.TaskTypes = 1.0
	if got := tool.MatchesContent("analysis analysis"); got != 0.0 {
		t.Errorf("task_types must not contribute to the score, got %v", got)
	}
}

func TestMatchedKeywords(t *testing.T) {
	tool := newTestTool("invoices", []string{"invoice", "billing", "refund"}, nil)
	got := tool.MatchedKeywords("billing question about an INVOICE")
	if len(got) != 2 || got[0] != "invoice" || got[1] != "billing" {
		t.Errorf("unexpected matched keywords: %v", got)
	}
}
