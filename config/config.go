// Package config loads the quilltapd configuration. Defaults are merged
// with the config file using mergo, with file values taking precedence,
// and API keys can always be supplied via environment variables instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ServerSettings holds the HTTP listener configuration.
type ServerSettings struct {
	Listen string `yaml:"listen,omitempty"` // TCP address (default: localhost:8790)
}

// DatabaseSettings holds the SQLite configuration.
type DatabaseSettings struct {
	Path string `yaml:"path,omitempty"` // SQLite file path
}

// LoggingSettings holds logger configuration.
type LoggingSettings struct {
	Level  string `yaml:"level,omitempty"`  // zerolog level name (default: info)
	Pretty bool   `yaml:"pretty,omitempty"` // console writer instead of JSON
}

// ProviderConfig represents the configuration for a single LLM provider.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`      // openai_compatible only
	Host         string `yaml:"host,omitempty"`          // ollama only
	Model        string `yaml:"model,omitempty"`         // default model name
	Organization string `yaml:"organization,omitempty"` // openai only
}

// Config represents the full quilltapd configuration.
type Config struct {
	Server   ServerSettings   `yaml:"server,omitempty"`
	Database DatabaseSettings `yaml:"database,omitempty"`
	Logging  LoggingSettings  `yaml:"logging,omitempty"`

	// Per-provider settings, keyed by the registry identifier
	// (openai, anthropic, google, grok, openrouter, ollama, openai_compatible).
	Providers map[string]*ProviderConfig `yaml:"providers,omitempty"`

	// DefaultProvider is used when a request does not name one.
	DefaultProvider string `yaml:"default_provider,omitempty"`
}

// GetConfigPath returns the default config file path.
// Can be overridden via QUILLTAP_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("QUILLTAP_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.quilltap/config.yaml"
	}
	return filepath.Join(homeDir, ".quilltap", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load reads configuration from the given path, merging it over defaults.
// A missing file is not an error; defaults plus environment variables apply.
func Load(path string) (*Config, error) {
	defaults := Config{
		Server:   ServerSettings{Listen: "localhost:8790"},
		Database: DatabaseSettings{Path: "./quilltap.db"},
		Logging:  LoggingSettings{Level: "info"},
		Providers: map[string]*ProviderConfig{
			"ollama": {Host: "http://localhost:11434"},
		},
		DefaultProvider: "openai",
	}

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err != nil {
		return &defaults, nil
	}

	configYAML, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(configYAML, &fileConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
	}

	if err := mergo.Merge(&defaults, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	if defaults.Providers == nil {
		defaults.Providers = make(map[string]*ProviderConfig)
	}

	defaults.Database.Path = expandPath(defaults.Database.Path)
	return &defaults, nil
}

// Save writes the configuration to the specified path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
