// Package monitor serves a minimal live view onto the audit log: a
// health check, an audit-entries REST endpoint, an integrity check, and
// a websocket feed that pushes each new audit entry as it's recorded
// (spec.md §4.3, component C3 — audit observability is an operator
// convenience layered on top of the audit chain, not part of the core
// invariants it protects).
package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/agentctx/agentctx/internal/audit"
)

// Verifier is the subset of *contextmanager.ContextManager the monitor
// depends on, kept narrow so the monitor never needs to import the
// orchestrator package directly.
type Verifier interface {
	VerifyIntegrity() (bool, error)
	AuditEntries() ([]audit.Entry, error)
}

// Monitor serves the live audit feed and implements http.Handler.
type Monitor struct {
	verifier Verifier
	hub      *hub
}

// New starts the broadcast hub and returns a Monitor reading audit
// state through verifier.
func New(verifier Verifier) *Monitor {
	m := &Monitor{verifier: verifier, hub: newHub()}
	go m.hub.run()
	return m
}

// BroadcastEntry pushes e to every connected websocket client. Intended
// to be wired as a contextmanager.Config.AuditSink so every recorded
// entry reaches the feed the instant it's written.
func (m *Monitor) BroadcastEntry(e audit.Entry) {
	m.hub.broadcast(e)
}

// Handler returns the monitor's route table:
//
//	GET /healthz — liveness probe, always 200
//	GET /audit   — every recorded audit entry as a JSON array
//	GET /verify  — {"ok": bool} integrity check against the journal
//	GET /ws      — websocket feed of new audit entries
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", m.handleHealthz)
	mux.HandleFunc("/audit", m.handleAudit)
	mux.HandleFunc("/verify", m.handleVerify)
	mux.HandleFunc("/ws", m.hub.serveWS)
	return mux
}

func (m *Monitor) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (m *Monitor) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	entries, err := m.verifier.AuditEntries()
	if err != nil {
		slog.Error("audit read failed", "error", err)
		http.Error(w, "audit read failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (m *Monitor) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	ok, err := m.verifier.VerifyIntegrity()
	if err != nil {
		slog.Error("integrity check failed", "error", err)
		http.Error(w, "integrity check failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
