// ABOUTME: Loads per-agent manifest.yaml documents into an AgentRegistry.
// ABOUTME: A broken manifest or tool entry is logged and skipped, never fatal.

package registry

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// reservedAgentKey is the sentinel agent key that is never scanned.
const reservedAgentKey = "test"

// manifestFilename is the manifest document name inside each agent directory.
const manifestFilename = "manifest.yaml"

// Loader reads agent manifests from a directory tree laid out as
// <agentsDir>/<agent_key>/manifest.yaml.
type Loader struct {
	agentsDir string
	installed []string
	logger    *slog.Logger
}

// NewLoader creates a Loader for the given agents directory. installed is
// the ordered list of agent keys to scan; when empty, agent directories are
// discovered by listing agentsDir.
func NewLoader(agentsDir string, installed []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		agentsDir: agentsDir,
		installed: installed,
		logger:    logger.With("component", "registry"),
	}
}

// Load builds a fresh AgentRegistry by scanning every installed agent key.
// Per-agent failures (missing manifest, parse error) skip that agent only;
// the build itself never fails.
func (l *Loader) Load() *AgentRegistry {
	reg := newAgentRegistry()

	for _, agentKey := range l.agentKeys() {
		if agentKey == reservedAgentKey {
			continue
		}

		doc, err := l.readManifest(agentKey)
		if err != nil {
			continue // already logged
		}

		if len(doc.Tools) == 0 {
			l.logger.Info("no tools defined for agent", "agent", agentKey)
			continue
		}

		tools := make([]ToolDefinition, 0, len(doc.Tools))
		for i := range doc.Tools {
			tool, err := parseTool(agentKey, &doc.Tools[i])
			if err != nil {
				l.logger.Warn("skipping malformed tool entry",
					"agent", agentKey, "error", err)
				continue
			}
			tools = append(tools, tool)
		}

		if len(tools) == 0 {
			continue
		}

		reg.add(agentKey, tools)
		l.logger.Info("loaded agent tools", "agent", agentKey, "tools", len(tools))
	}

	l.logger.Info("registry loaded", "agents", reg.AgentCount())
	return reg
}

// agentKeys returns the configured installed agent keys, or discovers them
// from the agents directory when none are configured. Discovery order is
// lexicographic so registry iteration stays reproducible.
func (l *Loader) agentKeys() []string {
	if len(l.installed) > 0 {
		return l.installed
	}

	entries, err := os.ReadDir(l.agentsDir)
	if err != nil {
		l.logger.Warn("cannot list agents directory", "dir", l.agentsDir, "error", err)
		return nil
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(l.agentsDir, entry.Name(), manifestFilename)
		if _, err := os.Stat(manifestPath); err == nil {
			keys = append(keys, entry.Name())
		}
	}
	sort.Strings(keys)
	return keys
}

// readManifest loads and parses one agent's manifest document. Errors are
// logged here and reported to the caller only to signal "skip this agent".
func (l *Loader) readManifest(agentKey string) (*manifestDoc, error) {
	manifestPath := filepath.Join(l.agentsDir, agentKey, manifestFilename)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("manifest not found for agent", "agent", agentKey, "path", manifestPath)
		} else {
			l.logger.Warn("cannot read manifest", "agent", agentKey, "error", err)
		}
		return nil, err
	}

	doc, err := parseManifest(data)
	if err != nil {
		l.logger.Warn("failed to parse manifest", "agent", agentKey, "error", err)
		return nil, err
	}
	return doc, nil
}
