// ABOUTME: Configuration loading and parsing for the dispatch gateway.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete dispatch configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agents   AgentsConfig   `yaml:"agents"`
	Routing  RoutingConfig  `yaml:"routing"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AgentsConfig locates agent manifests. When Installed is empty, agent
// directories containing a manifest.yaml are discovered from Dir.
type AgentsConfig struct {
	Dir       string   `yaml:"dir"`
	Installed []string `yaml:"installed"`
}

// RoutingConfig holds the task routing threshold. A zero MinConfidence
// selects the registry default.
type RoutingConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
}

// DatabaseConfig holds the run-log database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig holds object storage settings for bundle publishing.
type StorageConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"` // optional S3-compatible endpoint

	PresignTTL    time.Duration `yaml:"-"`
	PresignTTLRaw string        `yaml:"presign_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Agents.Dir == "" {
		return fmt.Errorf("agents.dir is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Routing.MinConfidence < 0 || c.Routing.MinConfidence > 1 {
		return fmt.Errorf("routing.min_confidence must be within [0, 1], got %v", c.Routing.MinConfidence)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Storage.PresignTTLRaw != "" {
		cfg.Storage.PresignTTL, err = time.ParseDuration(cfg.Storage.PresignTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing presign_ttl %q: %w", cfg.Storage.PresignTTLRaw, err)
		}
	}

	return nil
}
