// ABOUTME: Tests for configuration loading and parsing.
// ABOUTME: Covers YAML loading, env var expansion, validation, and duration parsing.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

agents:
  dir: "./agents"
  installed:
    - finance
    - research

routing:
  min_confidence: 0.25

database:
  path: "./dispatch.db"

storage:
  bucket: "tmates-agent-bundles"
  region: "eu-central-1"
  prefix: "prod"
  presign_ttl: "1h"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("http_addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Agents.Dir != "./agents" {
		t.Errorf("agents.dir = %q", cfg.Agents.Dir)
	}
	if len(cfg.Agents.Installed) != 2 || cfg.Agents.Installed[0] != "finance" {
		t.Errorf("agents.installed = %v", cfg.Agents.Installed)
	}
	if cfg.Routing.MinConfidence != 0.25 {
		t.Errorf("min_confidence = %v", cfg.Routing.MinConfidence)
	}
	if cfg.Storage.Bucket != "tmates-agent-bundles" {
		t.Errorf("bucket = %q", cfg.Storage.Bucket)
	}
	if cfg.Storage.PresignTTL != time.Hour {
		t.Errorf("presign_ttl = %v", cfg.Storage.PresignTTL)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("DISPATCH_TEST_BUCKET", "bucket-from-env")

	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
agents:
  dir: "./agents"
database:
  path: "./dispatch.db"
storage:
  bucket: "${DISPATCH_TEST_BUCKET}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Bucket != "bucket-from-env" {
		t.Errorf("expected env expansion, got %q", cfg.Storage.Bucket)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [broken\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
agents:
  dir: "./agents"
database:
  path: "./dispatch.db"
storage:
  presign_ttl: "soon"
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "presign_ttl") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{HTTPAddr: "localhost:8080"},
			Agents:   AgentsConfig{Dir: "./agents"},
			Database: DatabaseConfig{Path: "./dispatch.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing http_addr", func(c *Config) { c.Server.HTTPAddr = "" }, "server.http_addr"},
		{"missing agents dir", func(c *Config) { c.Agents.Dir = "" }, "agents.dir"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"threshold too high", func(c *Config) { c.Routing.MinConfidence = 1.5 }, "min_confidence"},
		{"threshold negative", func(c *Config) { c.Routing.MinConfidence = -0.1 }, "min_confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
