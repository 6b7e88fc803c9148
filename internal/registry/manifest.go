// ABOUTME: Manifest document schema and per-tool parsing with documented defaults.
// ABOUTME: Converts manifest.yaml tool entries into immutable ToolDefinitions.

package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// manifestDoc mirrors the on-disk manifest.yaml layout. Only the tools
// sequence matters to the registry; other top-level keys are ignored.
// Tool entries are kept as raw nodes so one malformed entry can be skipped
// without losing the rest.
type manifestDoc struct {
	Tools []yaml.Node `yaml:"tools"`
}

// toolEntry is a single entry of the manifest's tools sequence. Every field
// is optional; absent fields take the defaults documented on ToolDefinition.
type toolEntry struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	Categories        []string          `yaml:"categories"`
	TaskMatching      taskMatchingEntry `yaml:"task_matching"`
	InputRequirements inputReqsEntry    `yaml:"input_requirements"`
	OutputFormat      map[string]any    `yaml:"output_format"`
	ConfidenceWeights *weightsEntry     `yaml:"confidence_weights"`
}

type taskMatchingEntry struct {
	Keywords        []string `yaml:"keywords"`
	ContentPatterns []string `yaml:"content_patterns"`
	TaskTypes       []string `yaml:"task_types"`
}

type inputReqsEntry struct {
	Required []string `yaml:"required"`
	Optional []string `yaml:"optional"`
}

type weightsEntry struct {
	Keywords  float64 `yaml:"keywords"`
	Patterns  float64 `yaml:"patterns"`
	TaskTypes float64 `yaml:"task_types"`
}

// parseManifest decodes a manifest document. An absent or empty tools
// sequence is valid and yields an empty document.
func parseManifest(data []byte) (*manifestDoc, error) {
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &doc, nil
}

// parseTool converts one raw tool node into a ToolDefinition owned by
// agentKey. Returns an error when the node cannot be decoded; the caller
// skips the entry and keeps loading the rest of the manifest.
func parseTool(agentKey string, node *yaml.Node) (ToolDefinition, error) {
	var entry toolEntry
	if err := node.Decode(&entry); err != nil {
		return ToolDefinition{}, fmt.Errorf("decoding tool entry: %w", err)
	}

	name := entry.Name
	if name == "" {
		name = "unnamed_tool"
	}

	weights := ConfidenceWeights{
		Keywords:  DefaultKeywordWeight,
		Patterns:  DefaultPatternWeight,
		TaskTypes: DefaultTaskTypeWeight,
	}
	if entry.ConfidenceWeights != nil {
		weights = ConfidenceWeights{
			Keywords:  entry.ConfidenceWeights.Keywords,
			Patterns:  entry.ConfidenceWeights.Patterns,
			TaskTypes: entry.ConfidenceWeights.TaskTypes,
		}
	}

	outputFormat := entry.OutputFormat
	if outputFormat == nil {
		outputFormat = map[string]any{}
	}

	tool := ToolDefinition{
		Name:            name,
		Description:     entry.Description,
		AgentKey:        agentKey,
		Categories:      orEmpty(entry.Categories),
		Keywords:        orEmpty(entry.TaskMatching.Keywords),
		ContentPatterns: orEmpty(entry.TaskMatching.ContentPatterns),
		TaskTypes:       orEmpty(entry.TaskMatching.TaskTypes),
		InputRequirements: InputRequirements{
			Required: orEmpty(entry.InputRequirements.Required),
			Optional: orEmpty(entry.InputRequirements.Optional),
		},
		OutputFormat:      outputFormat,
		ConfidenceWeights: weights,
	}

	tool.resolveMatchers()
	return tool, nil
}

// orEmpty normalizes a nil slice to an empty one so API exports marshal as
// [] rather than null.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
