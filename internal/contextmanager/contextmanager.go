// Package contextmanager wires the journal, audit chain, sanitizer,
// observer, reflector and context builder into the single entry point a
// pipeline actually calls (spec.md §4.8, component C8).
//
// It owns the in-memory session buffer between flushes and is the only
// component that decides *when* the Observer and Reflector run; the
// components themselves stay stateless between calls.
package contextmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentctx/agentctx/internal/audit"
	"github.com/agentctx/agentctx/internal/contextbuilder"
	"github.com/agentctx/agentctx/internal/journal"
	"github.com/agentctx/agentctx/internal/llmadapter"
	"github.com/agentctx/agentctx/internal/observer"
	"github.com/agentctx/agentctx/internal/priority"
	"github.com/agentctx/agentctx/internal/reflector"
	"github.com/agentctx/agentctx/internal/sanitizer"
)

// Default thresholds, in approximate tokens: the observer threshold is
// measured on the accumulated session text and triggers a flush from
// AddMessage; the reflector threshold is measured on the journal after
// a flush and triggers a reflection (spec.md §4.8).
const (
	DefaultObserverThreshold  = 30_000
	DefaultReflectorThreshold = 40_000
)

// Config configures a ContextManager.
type Config struct {
	StoragePath        string // path to observations.md
	AuditPath          string // path to audit.jsonl
	ObserverThreshold  int    // approx tokens; 0 uses DefaultObserverThreshold
	ReflectorThreshold int    // approx tokens; 0 uses DefaultReflectorThreshold
	MaxEntryChars      int    // 0 uses sanitizer.DefaultMaxEntryChars
	Anchor             string // operator task intent, may be empty

	// AuditSink, if set, is called with every audit entry as it's
	// recorded — the hook the live monitor subscribes through, so it
	// never has to poll audit.jsonl.
	AuditSink func(audit.Entry)
}

// ContextManager is the single facade a pipeline drives: feed it session
// messages and external content, ask it for a context prefix, and it
// handles compression, consolidation and tamper-evident auditing
// underneath.
type ContextManager struct {
	mu sync.Mutex

	journal   *journal.Journal
	auditLog  *audit.Chain
	sanitizer *sanitizer.Sanitizer
	observer  *observer.Observer
	reflector *reflector.Reflector
	builder   *contextbuilder.Builder
	anchor    contextbuilder.Anchor

	observerThreshold  int
	reflectorThreshold int
	auditSink          func(audit.Entry)

	session []contextbuilder.Message
}

// New constructs a ContextManager backed by the given LLM adapter and
// config. It does not touch disk beyond what journal.New/audit.New do
// (lazy file creation on first write).
func New(cfg Config, llm llmadapter.Adapter) *ContextManager {
	observerThreshold := cfg.ObserverThreshold
	if observerThreshold == 0 {
		observerThreshold = DefaultObserverThreshold
	}
	reflectorThreshold := cfg.ReflectorThreshold
	if reflectorThreshold == 0 {
		reflectorThreshold = DefaultReflectorThreshold
	}

	j := journal.New(cfg.StoragePath)
	s := sanitizer.New(cfg.MaxEntryChars)

	return &ContextManager{
		journal:            j,
		auditLog:           audit.New(cfg.AuditPath),
		sanitizer:          s,
		observer:           observer.New(llm, j, s),
		reflector:          reflector.New(llm, j),
		builder:            contextbuilder.New(j),
		anchor:             contextbuilder.NewAnchor(cfg.Anchor),
		observerThreshold:  observerThreshold,
		reflectorThreshold: reflectorThreshold,
		auditSink:          cfg.AuditSink,
	}
}

// SetAuditSink installs or replaces the audit sink after construction —
// useful when the sink itself (e.g. a live monitor) needs a reference
// to this ContextManager before it can be built.
func (cm *ContextManager) SetAuditSink(sink func(audit.Entry)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.auditSink = sink
}

// recordAudit appends an audit entry and forwards it to AuditSink, if
// configured, so a live monitor never has to poll audit.jsonl.
func (cm *ContextManager) recordAudit(source audit.Source, previous, current string) error {
	entry, err := cm.auditLog.Append(source, previous, current)
	if err != nil {
		return err
	}
	if cm.auditSink != nil {
		cm.auditSink(entry)
	}
	return nil
}

// AddMessage appends a session turn to the in-memory buffer. Once the
// buffer's approximate token size crosses ObserverThreshold, it is
// flushed through the Observer and cleared (spec.md §4.8 step 2).
func (cm *ContextManager) AddMessage(ctx context.Context, role, content string) error {
	cm.mu.Lock()
	cm.session = append(cm.session, contextbuilder.Message{Role: role, Content: content})
	shouldFlush := approxTokens(sessionContentLen(cm.session)) >= cm.observerThreshold
	cm.mu.Unlock()

	if !shouldFlush {
		return nil
	}
	return cm.flushSession(ctx)
}

// FlushSession forces an immediate Observer pass over the buffered
// session, regardless of size, and clears the buffer. AddMessage calls
// this automatically at the threshold; callers may also call it
// directly at the end of a run.
func (cm *ContextManager) FlushSession(ctx context.Context) error {
	return cm.flushSession(ctx)
}

func (cm *ContextManager) flushSession(ctx context.Context) error {
	cm.mu.Lock()
	pending := cm.session
	cm.session = nil
	cm.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	previous, err := cm.journal.ReadRaw()
	if err != nil {
		return fmt.Errorf("reading journal before flush: %w", err)
	}

	observerMessages := make([]observer.Message, len(pending))
	for i, m := range pending {
		observerMessages[i] = observer.Message{Role: m.Role, Content: m.Content}
	}

	entries, err := cm.observer.Compress(ctx, observerMessages, nil)
	if err != nil {
		return fmt.Errorf("flushing session through observer: %w", err)
	}
	if len(entries) > 0 {
		current, err := cm.journal.ReadRaw()
		if err != nil {
			return fmt.Errorf("reading journal after flush: %w", err)
		}
		if err := cm.recordAudit(audit.SourceObserver, previous, current); err != nil {
			return fmt.Errorf("recording observer audit entry: %w", err)
		}
	}

	// maybeReflect runs regardless of whether this flush produced new
	// entries — the journal may already be over ReflectorThreshold from
	// earlier flushes (spec.md §4.8 step 5).
	return cm.maybeReflect(ctx)
}

// Observe records a single manual observation, bypassing the Observer.
// A leading priority glyph on text is honored; otherwise the entry
// defaults to priority.Routine. Text is always sanitized and audited
// with source "manual" (spec.md §4.8 step 4).
func (cm *ContextManager) Observe(text string, external bool, eventDate *time.Time) (journal.Entry, error) {
	p, body, ok := journal.LeadingPriority(text)
	if !ok {
		p, body = priority.Routine, text
	}

	result := cm.sanitizer.SanitizeForObservation(body, 0)
	if result.WasTruncated {
		p = priority.Critical
	}

	today := journal.Today()
	ed := today
	if eventDate != nil {
		ed = *eventDate
	}

	entry := journal.Entry{
		Priority:   p,
		ObservedOn: today,
		EventDate:  ed,
		Text:       result.Text,
		External:   external,
	}

	previous, err := cm.journal.ReadRaw()
	if err != nil {
		return journal.Entry{}, fmt.Errorf("reading journal before manual observation: %w", err)
	}
	if err := cm.journal.Append(entry); err != nil {
		return journal.Entry{}, fmt.Errorf("appending manual observation: %w", err)
	}
	current, err := cm.journal.ReadRaw()
	if err != nil {
		return journal.Entry{}, fmt.Errorf("reading journal after manual observation: %w", err)
	}
	if err := cm.recordAudit(audit.SourceManual, previous, current); err != nil {
		return journal.Entry{}, fmt.Errorf("recording manual audit entry: %w", err)
	}

	return entry, nil
}

// Reflect forces an immediate Reflector pass over the journal,
// regardless of its current size, and records an audit entry if it was
// rewritten. Unlike FlushSession, this calls the Reflector directly —
// it doesn't depend on the in-memory session buffer, so it works even
// when invoked as the first call against a freshly constructed
// ContextManager (e.g. from a CLI command).
func (cm *ContextManager) Reflect(ctx context.Context) (bool, error) {
	previous, err := cm.journal.ReadRaw()
	if err != nil {
		return false, fmt.Errorf("reading journal before reflection: %w", err)
	}

	rewritten, err := cm.reflector.Reflect(ctx)
	if err != nil {
		return false, fmt.Errorf("reflecting on journal: %w", err)
	}
	if !rewritten {
		return false, nil
	}

	current, err := cm.journal.ReadRaw()
	if err != nil {
		return false, fmt.Errorf("reading journal after reflection: %w", err)
	}
	if err := cm.recordAudit(audit.SourceReflector, previous, current); err != nil {
		return false, fmt.Errorf("recording reflector audit entry: %w", err)
	}
	return true, nil
}

// maybeReflect runs the Reflector and records an audit entry if the
// journal has grown past ReflectorThreshold (spec.md §4.8 step 3).
func (cm *ContextManager) maybeReflect(ctx context.Context) error {
	count, err := cm.journal.TokenCountApprox()
	if err != nil {
		return fmt.Errorf("measuring journal size: %w", err)
	}
	if count < cm.reflectorThreshold {
		return nil
	}

	_, err = cm.Reflect(ctx)
	return err
}

// BuildPrefix renders the anchor (if set) and the observation log into
// the stable, cacheable context prefix. today defaults to the current
// UTC date if zero.
func (cm *ContextManager) BuildPrefix(today time.Time) (string, error) {
	prefix, err := cm.builder.BuildPrefix(today)
	if err != nil {
		return "", err
	}
	return joinBlocks(cm.anchor.Render(), prefix), nil
}

// Build renders the anchor, the observation log, and the current
// in-memory session buffer into the complete context string a pipeline
// hands to its LLM.
func (cm *ContextManager) Build(today time.Time) (string, error) {
	cm.mu.Lock()
	session := make([]contextbuilder.Message, len(cm.session))
	copy(session, cm.session)
	cm.mu.Unlock()

	body, err := cm.builder.Build(session, today)
	if err != nil {
		return "", err
	}
	return joinBlocks(cm.anchor.Render(), body), nil
}

// VerifyIntegrity reports whether the journal's current raw content
// matches the hash recorded in the last audit entry. A false result
// means the journal was modified outside this package — by a direct
// filesystem edit, not through Observe/AddMessage (spec.md §4.3,
// component C3, scenario S5).
func (cm *ContextManager) VerifyIntegrity() (bool, error) {
	raw, err := cm.journal.ReadRaw()
	if err != nil {
		return false, fmt.Errorf("reading journal for verification: %w", err)
	}
	return cm.auditLog.Verify(raw)
}

// VerifyIntegrityStrict is VerifyIntegrity but returns ErrTamperDetected
// instead of a false result, for callers that want to treat tampering as
// a hard failure rather than a boolean to branch on.
func (cm *ContextManager) VerifyIntegrityStrict() error {
	ok, err := cm.VerifyIntegrity()
	if err != nil {
		return err
	}
	if !ok {
		return ErrTamperDetected
	}
	return nil
}

// AuditEntries returns every recorded audit entry, oldest first.
func (cm *ContextManager) AuditEntries() ([]audit.Entry, error) {
	return cm.auditLog.AllEntries()
}

func joinBlocks(blocks ...string) string {
	var out string
	for _, b := range blocks {
		if b == "" {
			continue
		}
		if out == "" {
			out = b
			continue
		}
		out = out + "\n\n" + b
	}
	return out
}

// approxTokens mirrors journal.TokenCountApprox's 4-chars-per-token
// heuristic for in-memory text that hasn't been written to the journal
// yet.
func approxTokens(chars int) int {
	return chars / 4
}

// sessionContentLen sums the raw content length of the buffered session
// messages, matching spec.md §4.8's trigger definition (sum of message
// content only, not the formatted "[role]: content" transcript).
func sessionContentLen(session []contextbuilder.Message) int {
	total := 0
	for _, m := range session {
		total += len(m.Content)
	}
	return total
}
