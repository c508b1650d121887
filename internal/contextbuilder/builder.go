// Package contextbuilder assembles the two-block context string handed
// to the LLM at the start of each session: a stable observation-log
// prefix (Block 1) and the live, mutating session transcript (Block 2)
// (spec.md §4.6, component C6).
//
// The prefix is deliberately stable across a session so that vendor
// prompt caches can amortize it. The only per-request-dynamic part —
// each entry's relative: lag — is derived from the "today" the caller
// pins to the request time, not from the wall clock inside Builder.
package contextbuilder

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentctx/agentctx/internal/journal"
)

const (
	block1Header = "## Observation Log\n\n"
	block2Header = "## Current Session\n\n"
)

// Message is one turn of the live session transcript.
type Message struct {
	Role    string
	Content string
}

// Builder renders the journal and a session transcript into context
// strings.
type Builder struct {
	journal *journal.Journal
}

// New returns a Builder reading from j.
func New(j *journal.Journal) *Builder {
	return &Builder{journal: j}
}

// BuildPrefix renders Block 1: the stable, cacheable observation log.
// Returns "" if the journal has no entries. today defaults to the
// current UTC date if zero.
func (b *Builder) BuildPrefix(today time.Time) (string, error) {
	entries, err := b.journal.Entries()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	if today.IsZero() {
		today = journal.Today()
	}

	rendered := make([]string, len(entries))
	for i, e := range entries {
		rendered[i] = e.Render(today)
	}
	return block1Header + strings.Join(rendered, "\n\n"), nil
}

// Build concatenates Block 1 (the observation log prefix) with Block 2
// (the current session), omitting either block if its source is empty.
func (b *Builder) Build(sessionMessages []Message, today time.Time) (string, error) {
	prefix, err := b.BuildPrefix(today)
	if err != nil {
		return "", err
	}
	sessionText := FormatSession(sessionMessages)

	switch {
	case prefix != "" && sessionText != "":
		return prefix + "\n\n" + block2Header + sessionText, nil
	case prefix != "":
		return prefix, nil
	case sessionText != "":
		return block2Header + sessionText, nil
	default:
		return "", nil
	}
}

// FormatSession renders session messages as "[role]: content" lines
// joined by newlines (spec.md §4.6). Missing role renders as "unknown".
func FormatSession(messages []Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		role := m.Role
		if role == "" {
			role = "unknown"
		}
		lines[i] = fmt.Sprintf("[%s]: %s", role, m.Content)
	}
	return strings.Join(lines, "\n")
}
