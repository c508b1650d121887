// Package main is the CLI entry point for agentctx — a long-lived
// memory substrate for agentic LLM pipelines.
//
// agentctx maintains a priority-tagged observation journal across runs,
// sanitizes everything that reaches it against prompt injection, audits
// every write with a tamper-evident snapshot hash, and assembles a
// cacheable context prefix on demand.
//
// CLI commands (cobra):
//
//	agentctx config init     - Write a default config.yaml
//	agentctx observe TEXT     - Record a manual observation
//	agentctx build-prefix     - Render the stable observation-log prefix
//	agentctx reflect          - Consolidate the journal via the LLM
//	agentctx audit verify     - Check the journal against the audit chain
//	agentctx audit tail       - Show recent audit entries
//	agentctx serve            - Serve the live audit feed over HTTP/websocket
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentctx/agentctx/internal/audit"
	"github.com/agentctx/agentctx/internal/config"
	"github.com/agentctx/agentctx/internal/contextmanager"
	"github.com/agentctx/agentctx/internal/llmadapter"
	"github.com/agentctx/agentctx/internal/monitor"
)

// Build-time variables injected via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// configDir is the global flag for the agentctx config/state directory.
var configDir string

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentctx"
	}
	return filepath.Join(home, ".agentctx")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentctx",
	Short: "agentctx — long-lived memory for agentic LLM pipelines",
	Long: `agentctx is the memory substrate an agent pipeline calls between runs:
an observation journal that survives across sessions, a sanitizer that
defends it against prompt injection carried in conversation text or
external content, an audit chain that makes tampering detectable, and a
context builder that assembles the stable prefix handed to the LLM.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configDir,
		"config-dir",
		defaultConfigDir(),
		"Path to the agentctx config and state directory",
	)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(buildPrefixCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(reflectCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads config.yaml from configDir, falling back to defaults
// if it doesn't exist yet.
func loadConfig() (*config.Config, error) {
	return config.Load(filepath.Join(configDir, "config.yaml"))
}

// newLLMAdapter builds the adapter named by cfg.LLM.Provider. "fake"
// gives a deterministic no-op adapter for local use without API calls.
func newLLMAdapter(cfg *config.Config) (llmadapter.Adapter, error) {
	switch cfg.LLM.Provider {
	case "claude":
		model := cfg.LLM.Model
		if model == "" {
			model = llmadapter.DefaultClaudeModel
		}
		return llmadapter.NewClaude(model, cfg.LLM.APIKey), nil
	case "gemini":
		model := cfg.LLM.Model
		if model == "" {
			model = llmadapter.DefaultGeminiModel
		}
		return llmadapter.NewGemini(context.Background(), model, cfg.LLM.APIKey)
	case "fake":
		return llmadapter.NewFake(""), nil
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", cfg.LLM.Provider)
	}
}

// newContextManager wires a ContextManager from the loaded config. If
// sink is non-nil it's installed as the audit sink, so callers that
// also run a monitor get live updates.
func newContextManager(cfg *config.Config, llm llmadapter.Adapter, sink func(audit.Entry)) *contextmanager.ContextManager {
	cmCfg := contextmanager.Config{
		StoragePath:        cfg.Storage.ObservationsPath,
		AuditPath:          cfg.Storage.AuditPath,
		ObserverThreshold:  cfg.Memory.ObserverThresholdTokens,
		ReflectorThreshold: cfg.Memory.ReflectorThresholdTokens,
		MaxEntryChars:      cfg.Memory.MaxEntryChars,
		Anchor:             cfg.Memory.Anchor,
		AuditSink:          sink,
	}
	return contextmanager.New(cmCfg, llm)
}

// ============================================================================
// agentctx config init
// ============================================================================

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or initialize agentctx configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("creating config directory %s: %w", configDir, err)
		}
		path := filepath.Join(configDir, "config.yaml")
		if err := config.WriteDefault(path); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

// ============================================================================
// agentctx observe TEXT
// ============================================================================

var (
	observeExternal  bool
	observeEventDate string
)

var observeCmd = &cobra.Command{
	Use:   "observe TEXT",
	Short: "Record a single manual observation in the journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var eventDate *time.Time
		if observeEventDate != "" {
			t, err := time.Parse("2006-01-02", observeEventDate)
			if err != nil {
				return fmt.Errorf("invalid --event-date %q: %w", observeEventDate, err)
			}
			eventDate = &t
		}

		cm := newContextManager(cfg, nil, nil)
		entry, err := cm.Observe(args[0], observeExternal, eventDate)
		if err != nil {
			return fmt.Errorf("recording observation: %w", err)
		}

		fmt.Printf("recorded %s observation: %s\n", entry.Priority, entry.Text)
		return nil
	},
}

func init() {
	observeCmd.Flags().BoolVar(&observeExternal, "external", false, "mark the observation as sourced from untrusted external content")
	observeCmd.Flags().StringVar(&observeEventDate, "event-date", "", "date the underlying event occurred (YYYY-MM-DD), defaults to today")
}

// ============================================================================
// agentctx build-prefix / agentctx build
// ============================================================================

var buildPrefixCmd = &cobra.Command{
	Use:   "build-prefix",
	Short: "Render the stable, cacheable observation-log prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cm := newContextManager(cfg, nil, nil)
		prefix, err := cm.BuildPrefix(time.Time{})
		if err != nil {
			return fmt.Errorf("building prefix: %w", err)
		}
		fmt.Println(prefix)
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the full context: anchor, observation log, and buffered session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cm := newContextManager(cfg, nil, nil)
		out, err := cm.Build(time.Time{})
		if err != nil {
			return fmt.Errorf("building context: %w", err)
		}
		fmt.Println(out)
		return nil
	},
}

// ============================================================================
// agentctx reflect
// ============================================================================

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Consolidate the observation journal via the LLM",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		llm, err := newLLMAdapter(cfg)
		if err != nil {
			return err
		}
		cm := newContextManager(cfg, llm, nil)
		rewritten, err := cm.Reflect(cmd.Context())
		if err != nil {
			return fmt.Errorf("reflecting on journal: %w", err)
		}
		if !rewritten {
			fmt.Println("nothing to consolidate")
			return nil
		}
		fmt.Println("reflection complete")
		return nil
	},
}

// ============================================================================
// agentctx audit verify / agentctx audit tail
// ============================================================================

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect or verify the audit chain",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the journal's content against the last recorded audit hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cm := newContextManager(cfg, nil, nil)
		ok, err := cm.VerifyIntegrity()
		if err != nil {
			return fmt.Errorf("verifying integrity: %w", err)
		}
		if !ok {
			fmt.Println("TAMPERED: journal content does not match the last audit hash")
			os.Exit(1)
		}
		fmt.Println("ok")
		return nil
	},
}

var auditTailLimit int

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cm := newContextManager(cfg, nil, nil)
		entries, err := cm.AuditEntries()
		if err != nil {
			return fmt.Errorf("reading audit log: %w", err)
		}
		if auditTailLimit > 0 && len(entries) > auditTailLimit {
			entries = entries[len(entries)-auditTailLimit:]
		}
		for _, e := range entries {
			fmt.Printf("%s  %-9s  delta=%-6d  sha256=%s\n", e.Timestamp, e.Source, e.CharDelta, e.SHA256)
		}
		return nil
	},
}

func init() {
	auditTailCmd.Flags().IntVar(&auditTailLimit, "limit", 20, "number of entries to show (0 for all)")
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

// ============================================================================
// agentctx serve — live audit feed over HTTP/websocket
// ============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live audit feed over HTTP and websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Dashboard.Enabled {
			return fmt.Errorf("dashboard.enabled is false in config")
		}

		llm, err := newLLMAdapter(cfg)
		if err != nil {
			return err
		}

		cm := newContextManager(cfg, llm, nil)
		mon := monitor.New(cm)
		cm.SetAuditSink(mon.BroadcastEntry)

		watcher, err := config.NewWatcher(
			filepath.Dir(cfg.Storage.ObservationsPath),
			filepath.Base(cfg.Storage.ObservationsPath),
			filepath.Base(cfg.Storage.AuditPath),
			config.WatchTargets{
				OnObservationsChange: func() {
					ok, err := cm.VerifyIntegrity()
					if err != nil {
						slog.Error("integrity check after out-of-band write failed", "error", err)
						return
					}
					if !ok {
						slog.Warn("tamper detected: observation journal no longer matches the last audit hash")
					}
				},
			},
		)
		if err != nil {
			return fmt.Errorf("starting storage watcher: %w", err)
		}
		defer watcher.Close()

		addr := fmt.Sprintf("%s:%d", cfg.Dashboard.Host, cfg.Dashboard.Port)
		server := &http.Server{
			Addr:              addr,
			Handler:           mon.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Printf("agentctx monitor listening on http://%s\n", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("monitor server failed: %w", err)
		case <-sigCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		}
	},
}
