// Package config loads and persists dejavu configuration.
// Config lives at .dejavu/config.yaml inside the workspace; a missing file
// means defaults. GEMINI_API_KEY in the environment always wins over the
// file so keys never need to be written to disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dejavu configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Gateway configuration
	Gateway GatewayConfig `yaml:"gateway"`

	// Local storage
	Storage StorageConfig `yaml:"storage"`

	// Central hub polling
	Sync SyncConfig `yaml:"sync"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GatewayConfig configures the hosted completion API client.
type GatewayConfig struct {
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
}

// StorageConfig configures the local record store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SyncConfig configures the central-hub poll loop.
type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "dejavu",
		Version: "0.3.0",

		Gateway: GatewayConfig{
			Model:           "gemini-2.0-flash",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Timeout:         2 * time.Minute,
			MaxOutputTokens: 8192,
		},

		Storage: StorageConfig{
			DatabasePath: filepath.Join(".dejavu", "dejavu.db"),
		},

		Sync: SyncConfig{
			PollInterval: 30 * time.Second,
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".dejavu", "config.yaml")
}

// Load reads the config from the workspace, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes the config to the workspace, creating .dejavu/ if needed.
// The API key is never persisted.
func (c *Config) Save(workspace string) error {
	clone := *c
	clone.Gateway.APIKey = ""

	data, err := yaml.Marshal(&clone)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := Path(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets environment variables win over file values.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gateway.APIKey = key
	}
	if model := os.Getenv("DEJAVU_MODEL"); model != "" {
		cfg.Gateway.Model = model
	}
	if base := os.Getenv("DEJAVU_BASE_URL"); base != "" {
		cfg.Gateway.BaseURL = base
	}
}

// Validate reports config values that cannot work at all.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway base_url is empty")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync poll_interval must be positive")
	}
	return nil
}
