// Package reflector implements the LLM-driven consolidator that
// rewrites the observation journal in place, merging redundant entries
// while preserving the invariants the journal depends on (spec.md §4.5,
// component C5).
//
// The Reflector trusts the LLM with merge semantics (picking the
// correct observed_on/event_date on merge, never dropping an unresolved
// CRITICAL entry — the system prompt encodes that policy). The only
// hard safeguard in code is the zero-parse gate: a non-empty but
// garbled response must never destroy history.
package reflector

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentctx/agentctx/internal/journal"
	"github.com/agentctx/agentctx/internal/llmadapter"
)

// systemPrompt is the fixed Reflector instruction (spec.md §6.3).
const systemPrompt = `You are a memory consolidation agent for an AI agent system.

You will receive an observation log. Your job is to consolidate it:
1. Merge related or redundant observations into single, more precise entries
2. Remove observations that have been fully superseded by newer ones
3. Preserve all three priority markers (🔴, 🟡, 🟢) exactly as-is
4. For merged entries, keep the most recent observed_on date and the earliest event_date
5. Keep every 🔴 entry unless it is genuinely superseded and resolved

Return the consolidated log in EXACTLY this format — no other text:

PRIORITY observed_on:YYYY-MM-DD event_date:YYYY-MM-DD
Observation text here

PRIORITY observed_on:YYYY-MM-DD event_date:YYYY-MM-DD [EXT]
External observation text here

Separate each entry with a single blank line.`

// Reflector consolidates a journal in place via the LLM.
type Reflector struct {
	llm     llmadapter.Adapter
	journal *journal.Journal
}

// New returns a Reflector operating on journal.
func New(llm llmadapter.Adapter, j *journal.Journal) *Reflector {
	return &Reflector{llm: llm, journal: j}
}

// Reflect consolidates the journal in place. Returns true if the
// journal was rewritten, false if reflection was skipped: an empty
// journal, or an LLM response that parsed to zero entries (spec.md §4.5,
// §8 property 7).
func (r *Reflector) Reflect(ctx context.Context) (bool, error) {
	raw, err := r.journal.ReadRaw()
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}

	originalEntries, err := r.journal.Entries()
	if err != nil {
		return false, err
	}
	if len(originalEntries) == 0 {
		return false, nil
	}

	response, err := r.llm.Call(ctx, []llmadapter.Message{{Role: "user", Content: raw}}, systemPrompt)
	if err != nil {
		return false, fmt.Errorf("reflector llm call: %w", err)
	}

	newEntries := journal.Parse(response)

	// Safety gate: a garbled but non-empty response must not silently
	// destroy the log (spec.md §4.5 step 4, §8 property 7, scenario S4).
	if len(newEntries) == 0 {
		return false, nil
	}

	if err := r.journal.Overwrite(newEntries); err != nil {
		return false, fmt.Errorf("overwriting journal after reflection: %w", err)
	}
	return true, nil
}
