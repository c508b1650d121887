// Package config handles loading, validating, and writing the agentctx
// configuration from ~/.agentctx/config.yaml.
//
// The config defines:
//   - Where the observation journal and audit log live on disk
//   - Which LLM provider backs the Observer and Reflector
//   - The Observer/Reflector trigger thresholds and per-entry char budget
//   - The operator's task anchor for the current project
//
// See SPEC_FULL.md's AMBIENT STACK section for the schema rationale.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level agentctx configuration.
// Loaded from ~/.agentctx/config.yaml, with sensible defaults for fields
// that are not explicitly set.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Memory    MemoryConfig    `yaml:"memory"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// StorageConfig points at the two files the memory core owns.
type StorageConfig struct {
	ObservationsPath string `yaml:"observationsPath"`
	AuditPath        string `yaml:"auditPath"`
}

// LLMConfig selects and configures the adapter backing the Observer and
// Reflector. Provider is one of "claude", "gemini", or "fake" (fake is
// for local testing without API calls).
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// MemoryConfig controls when the Observer and Reflector fire, and how
// aggressively the sanitizer truncates a single entry.
type MemoryConfig struct {
	ObserverThresholdTokens  int    `yaml:"observerThresholdTokens"`
	ReflectorThresholdTokens int    `yaml:"reflectorThresholdTokens"`
	MaxEntryChars            int    `yaml:"maxEntryChars"`
	Anchor                   string `yaml:"anchor"`
}

// DashboardConfig controls the live audit-feed monitor served over
// websocket.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load reads and parses config.yaml from the given path.
// If the file doesn't exist, returns defaults (not an error).
// Invalid YAML or validation failures return an error.
func Load(path string) (*Config, error) {
	cfg := applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file — use defaults. Normal on first run before
			// `agentctx config init` creates one.
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// WriteDefault writes a default config.yaml with all fields populated
// and a comment header. Used by `agentctx config init` when no config
// file exists yet.
func WriteDefault(path string) error {
	cfg := applyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}

	header := `# agentctx configuration
#
# storage:
#   observationsPath: path to the observation journal (markdown)
#   auditPath: path to the append-only audit log (JSON lines)
#
# llm:
#   provider: "claude" | "gemini" | "fake"
#   model: provider-specific model name; empty uses the provider default
#   apiKey: left empty to read from the provider's standard env var
#
# memory:
#   observerThresholdTokens: session size (approx tokens) that triggers
#     a flush through the Observer
#   reflectorThresholdTokens: journal size (approx tokens) that triggers
#     consolidation through the Reflector after a flush
#   maxEntryChars: per-entry character budget enforced by the sanitizer
#   anchor: the operator's task intent, rendered at the top of every
#     context prefix
#
# dashboard:
#   enabled: serve the live audit feed over websocket

`
	return os.WriteFile(path, []byte(header+string(data)), 0o644)
}

// applyDefaults returns a Config with all fields set to their default
// values.
func applyDefaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".agentctx")

	return &Config{
		Storage: StorageConfig{
			ObservationsPath: filepath.Join(base, "observations.md"),
			AuditPath:        filepath.Join(base, "audit.jsonl"),
		},
		LLM: LLMConfig{
			Provider: "claude",
		},
		Memory: MemoryConfig{
			ObserverThresholdTokens:  30_000,
			ReflectorThresholdTokens: 40_000,
			MaxEntryChars:            2_000,
		},
		Dashboard: DashboardConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    3101,
		},
	}
}

// validate checks the config for logical errors after parsing.
func validate(cfg *Config) error {
	if cfg.Storage.ObservationsPath == "" {
		return fmt.Errorf("storage.observationsPath must not be empty")
	}
	if cfg.Storage.AuditPath == "" {
		return fmt.Errorf("storage.auditPath must not be empty")
	}
	if cfg.Storage.ObservationsPath == cfg.Storage.AuditPath {
		return fmt.Errorf("storage.observationsPath and storage.auditPath must differ")
	}

	switch cfg.LLM.Provider {
	case "claude", "gemini", "fake":
	default:
		return fmt.Errorf("llm.provider %q must be one of claude, gemini, fake", cfg.LLM.Provider)
	}

	if cfg.Memory.ObserverThresholdTokens <= 0 {
		return fmt.Errorf("memory.observerThresholdTokens must be positive")
	}
	if cfg.Memory.ReflectorThresholdTokens <= 0 {
		return fmt.Errorf("memory.reflectorThresholdTokens must be positive")
	}
	if cfg.Memory.MaxEntryChars <= 0 {
		return fmt.Errorf("memory.maxEntryChars must be positive")
	}

	if cfg.Dashboard.Enabled && (cfg.Dashboard.Port < 1 || cfg.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port %d out of range (1-65535)", cfg.Dashboard.Port)
	}

	return nil
}
