// ABOUTME: ToolDefinition value type and confidence scoring against task content.
// ABOUTME: Content patterns resolve to regex or literal matchers once at parse time.

package registry

import (
	"regexp"
	"strings"
)

// Default confidence weights applied when a manifest omits confidence_weights.
const (
	DefaultKeywordWeight  = 0.3
	DefaultPatternWeight  = 0.4
	DefaultTaskTypeWeight = 0.3
)

// ConfidenceWeights holds the per-signal weights used by MatchesContent.
// TaskTypes is parsed and defaulted but has no scoring source; it is a
// reserved slot in the manifest schema, not a bug.
type ConfidenceWeights struct {
	Keywords  float64
	Patterns  float64
	TaskTypes float64
}

// InputRequirements lists the inputs a tool declares it needs.
type InputRequirements struct {
	Required []string
	Optional []string
}

// contentMatcher is one content_pattern resolved at parse time. A pattern
// that is not a valid regular expression degrades to a case-insensitive
// literal substring test instead of failing the load.
type contentMatcher struct {
	re      *regexp.Regexp // nil for literal matchers
	literal string         // lowercased pattern text for the fallback
}

// newContentMatcher compiles the pattern case-insensitively, falling back
// to a literal matcher when compilation fails.
func newContentMatcher(pattern string) contentMatcher {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return contentMatcher{literal: strings.ToLower(pattern)}
	}
	return contentMatcher{re: re}
}

// matches reports whether the matcher hits the content. Regex matchers run
// against the original-case content; literal matchers use the lowered copy.
func (m contentMatcher) matches(content, contentLower string) bool {
	if m.re != nil {
		return m.re.MatchString(content)
	}
	return strings.Contains(contentLower, m.literal)
}

// ToolDefinition describes one declared capability of one agent.
// A ToolDefinition is immutable after parsing; AgentKey always names the
// manifest it was parsed from.
type ToolDefinition struct {
	Name              string
	Description       string
	AgentKey          string
	Categories        []string
	Keywords          []string
	ContentPatterns   []string
	TaskTypes         []string
	InputRequirements InputRequirements
	OutputFormat      map[string]any
	ConfidenceWeights ConfidenceWeights

	matchers []contentMatcher
}

// resolveMatchers precomputes the pattern matchers. Called once at parse
// time so scoring never re-evaluates compile failures on the hot path.
func (t *ToolDefinition) resolveMatchers() {
	t.matchers = make([]contentMatcher, len(t.ContentPatterns))
	for i, pattern := range t.ContentPatterns {
		t.matchers[i] = newContentMatcher(pattern)
	}
}

// MatchesContent scores how well the tool's matching rules fit the given
// task text. The score is deterministic and always within [0.0, 1.0].
func (t ToolDefinition) MatchesContent(content string) float64 {
	if content == "" {
		return 0.0
	}

	contentLower := strings.ToLower(content)
	score := 0.0

	if len(t.Keywords) > 0 {
		matched := 0
		for _, kw := range t.Keywords {
			if strings.Contains(contentLower, strings.ToLower(kw)) {
				matched++
			}
		}
		if matched > 0 {
			score += float64(matched) / float64(len(t.Keywords)) * t.ConfidenceWeights.Keywords
		}
	}

	if len(t.matchers) > 0 {
		matched := 0
		for _, m := range t.matchers {
			if m.matches(content, contentLower) {
				matched++
			}
		}
		if matched > 0 {
			score += float64(matched) / float64(len(t.matchers)) * t.ConfidenceWeights.Patterns
		}
	}

	// TaskTypes carries a weight but contributes nothing to the score.
	return min(score, 1.0)
}

// MatchedKeywords returns the declared keywords present in the content,
// in declaration order. Used by the debug matching report.
func (t ToolDefinition) MatchedKeywords(content string) []string {
	contentLower := strings.ToLower(content)
	var matched []string
	for _, kw := range t.Keywords {
		if strings.Contains(contentLower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// MatchedPatterns returns the declared patterns that hit the content,
// in declaration order.
func (t ToolDefinition) MatchedPatterns(content string) []string {
	contentLower := strings.ToLower(content)
	var matched []string
	for i, m := range t.matchers {
		if m.matches(content, contentLower) {
			matched = append(matched, t.ContentPatterns[i])
		}
	}
	return matched
}
