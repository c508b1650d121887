package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load with nonexistent file should not error: %v", err)
	}

	if filepath.Base(cfg.Storage.ObservationsPath) != "observations.md" {
		t.Errorf("default observationsPath: expected to end in observations.md, got %q", cfg.Storage.ObservationsPath)
	}
	if filepath.Base(cfg.Storage.AuditPath) != "audit.jsonl" {
		t.Errorf("default auditPath: expected to end in audit.jsonl, got %q", cfg.Storage.AuditPath)
	}
	if cfg.LLM.Provider != "claude" {
		t.Errorf("default provider: expected claude, got %q", cfg.LLM.Provider)
	}
	if cfg.Memory.ObserverThresholdTokens != 30_000 {
		t.Errorf("default observer threshold: expected 30000, got %d", cfg.Memory.ObserverThresholdTokens)
	}
	if cfg.Memory.ReflectorThresholdTokens != 40_000 {
		t.Errorf("default reflector threshold: expected 40000, got %d", cfg.Memory.ReflectorThresholdTokens)
	}
	if cfg.Memory.MaxEntryChars != 2_000 {
		t.Errorf("default maxEntryChars: expected 2000, got %d", cfg.Memory.MaxEntryChars)
	}
	if !cfg.Dashboard.Enabled {
		t.Error("default dashboard: expected enabled")
	}
	if cfg.Dashboard.Port != 3101 {
		t.Errorf("default dashboard port: expected 3101, got %d", cfg.Dashboard.Port)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
storage:
  observationsPath: "/tmp/obs.md"
  auditPath: "/tmp/audit.jsonl"
llm:
  provider: "gemini"
  model: "gemini-2.0-flash"
memory:
  observerThresholdTokens: 1000
  reflectorThresholdTokens: 2000
  maxEntryChars: 500
dashboard:
  enabled: false
  port: 9999
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.ObservationsPath != "/tmp/obs.md" {
		t.Errorf("observationsPath: expected /tmp/obs.md, got %q", cfg.Storage.ObservationsPath)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("provider: expected gemini, got %q", cfg.LLM.Provider)
	}
	if cfg.Memory.ObserverThresholdTokens != 1000 {
		t.Errorf("observerThresholdTokens: expected 1000, got %d", cfg.Memory.ObserverThresholdTokens)
	}
	if cfg.Dashboard.Enabled {
		t.Error("dashboard: expected disabled")
	}
	if cfg.Dashboard.Port != 9999 {
		t.Errorf("dashboard port: expected 9999, got %d", cfg.Dashboard.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`{{{invalid yaml`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_PartialOverrideKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
memory:
  maxEntryChars: 100
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Memory.MaxEntryChars != 100 {
		t.Errorf("maxEntryChars: expected 100, got %d", cfg.Memory.MaxEntryChars)
	}
	// Untouched fields should retain their defaults.
	if cfg.LLM.Provider != "claude" {
		t.Errorf("provider should still be default claude, got %q", cfg.LLM.Provider)
	}
	if cfg.Memory.ObserverThresholdTokens != 30_000 {
		t.Errorf("observerThresholdTokens should still be default 30000, got %d", cfg.Memory.ObserverThresholdTokens)
	}
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
llm:
  provider: "not-a-real-provider"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown llm.provider")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid defaults",
			cfg:     *applyDefaults(),
			wantErr: false,
		},
		{
			name: "empty observationsPath",
			cfg: Config{
				Storage: StorageConfig{ObservationsPath: "", AuditPath: "/tmp/audit.jsonl"},
				LLM:     LLMConfig{Provider: "claude"},
				Memory:  MemoryConfig{ObserverThresholdTokens: 1, ReflectorThresholdTokens: 1, MaxEntryChars: 1},
			},
			wantErr: true,
		},
		{
			name: "observationsPath equals auditPath",
			cfg: Config{
				Storage: StorageConfig{ObservationsPath: "/tmp/same.txt", AuditPath: "/tmp/same.txt"},
				LLM:     LLMConfig{Provider: "claude"},
				Memory:  MemoryConfig{ObserverThresholdTokens: 1, ReflectorThresholdTokens: 1, MaxEntryChars: 1},
			},
			wantErr: true,
		},
		{
			name: "unknown provider",
			cfg: Config{
				Storage: StorageConfig{ObservationsPath: "/tmp/obs.md", AuditPath: "/tmp/audit.jsonl"},
				LLM:     LLMConfig{Provider: "not-real"},
				Memory:  MemoryConfig{ObserverThresholdTokens: 1, ReflectorThresholdTokens: 1, MaxEntryChars: 1},
			},
			wantErr: true,
		},
		{
			name: "non-positive observer threshold",
			cfg: Config{
				Storage: StorageConfig{ObservationsPath: "/tmp/obs.md", AuditPath: "/tmp/audit.jsonl"},
				LLM:     LLMConfig{Provider: "claude"},
				Memory:  MemoryConfig{ObserverThresholdTokens: 0, ReflectorThresholdTokens: 1, MaxEntryChars: 1},
			},
			wantErr: true,
		},
		{
			name: "non-positive reflector threshold",
			cfg: Config{
				Storage: StorageConfig{ObservationsPath: "/tmp/obs.md", AuditPath: "/tmp/audit.jsonl"},
				LLM:     LLMConfig{Provider: "claude"},
				Memory:  MemoryConfig{ObserverThresholdTokens: 1, ReflectorThresholdTokens: 0, MaxEntryChars: 1},
			},
			wantErr: true,
		},
		{
			name: "non-positive maxEntryChars",
			cfg: Config{
				Storage: StorageConfig{ObservationsPath: "/tmp/obs.md", AuditPath: "/tmp/audit.jsonl"},
				LLM:     LLMConfig{Provider: "claude"},
				Memory:  MemoryConfig{ObserverThresholdTokens: 1, ReflectorThresholdTokens: 1, MaxEntryChars: 0},
			},
			wantErr: true,
		},
		{
			name: "dashboard port out of range",
			cfg: Config{
				Storage:   StorageConfig{ObservationsPath: "/tmp/obs.md", AuditPath: "/tmp/audit.jsonl"},
				LLM:       LLMConfig{Provider: "claude"},
				Memory:    MemoryConfig{ObserverThresholdTokens: 1, ReflectorThresholdTokens: 1, MaxEntryChars: 1},
				Dashboard: DashboardConfig{Enabled: true, Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "dashboard disabled ignores bad port",
			cfg: Config{
				Storage:   StorageConfig{ObservationsPath: "/tmp/obs.md", AuditPath: "/tmp/audit.jsonl"},
				LLM:       LLMConfig{Provider: "claude"},
				Memory:    MemoryConfig{ObserverThresholdTokens: 1, ReflectorThresholdTokens: 1, MaxEntryChars: 1},
				Dashboard: DashboardConfig{Enabled: false, Port: 0},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&tt.cfg)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestWriteDefault_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not created: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load after WriteDefault: %v", err)
	}

	if cfg.LLM.Provider != "claude" {
		t.Errorf("roundtrip provider: expected claude, got %q", cfg.LLM.Provider)
	}
	if cfg.Memory.ReflectorThresholdTokens != 40_000 {
		t.Errorf("roundtrip reflectorThresholdTokens: expected 40000, got %d", cfg.Memory.ReflectorThresholdTokens)
	}
}
