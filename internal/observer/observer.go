// Package observer implements the LLM-driven compressor that turns a raw
// session transcript into priority-tagged observation journal entries
// (spec.md §4.4, component C4).
//
// The Observer is not trying to be deterministic — it's a lossy
// summarizer whose output is itself untrusted input, so every accepted
// line is run through the sanitizer before it's allowed near the
// journal.
package observer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentctx/agentctx/internal/journal"
	"github.com/agentctx/agentctx/internal/llmadapter"
	"github.com/agentctx/agentctx/internal/priority"
	"github.com/agentctx/agentctx/internal/sanitizer"
)

// systemPrompt is the fixed Observer instruction (spec.md §6.3).
const systemPrompt = `You are a memory extraction agent for an AI agent system.

Read the conversation messages below and extract key observations: facts, decisions, errors, warnings, and patterns that would be useful in future runs.

Format each observation as a single line starting with a priority marker:
  🔴  critical issues that MUST influence the next run (errors, failures, expired tokens, blocked paths)
  🟡  patterns and signals worth tracking (trends, anomalies, recurring themes)
  🟢  routine context (timing, metadata, completions, normal outcomes)

Rules:
- One observation per line, maximum ~200 characters
- Start each line with the emoji and a space, then the observation text
- Only include observations useful in future runs — skip pleasantries and ephemeral details
- If nothing is worth recording, return an empty response`

// Message is one turn of the session transcript handed to the Observer.
type Message struct {
	Role    string
	Content string
}

// Observer compresses session transcripts into journal entries.
type Observer struct {
	llm       llmadapter.Adapter
	journal   *journal.Journal
	sanitizer *sanitizer.Sanitizer
}

// New returns an Observer writing into journal, sanitizing every line
// through sanitizer before it's appended.
func New(llm llmadapter.Adapter, j *journal.Journal, s *sanitizer.Sanitizer) *Observer {
	return &Observer{llm: llm, journal: j, sanitizer: s}
}

// Compress formats messages, asks the LLM for observations, parses and
// sanitizes the response, and appends each accepted entry to the
// journal. Returns the entries that were appended.
//
// If messages is empty, returns immediately without calling the LLM
// (spec.md §4.4 step 1, §8 property 8).
func (o *Observer) Compress(ctx context.Context, messages []Message, eventDate *time.Time) ([]journal.Entry, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	today := journal.Today()
	ed := today
	if eventDate != nil {
		ed = *eventDate
	}

	response, err := o.llm.Call(ctx, toAdapterMessages(messages), systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("observer llm call: %w", err)
	}

	return o.parseAndWrite(response, today, ed)
}

// parseAndWrite accepts lines that begin with a recognized priority
// glyph, sanitizes each, and appends it to the journal. Lines without a
// glyph are discarded (spec.md §4.4 step 4).
func (o *Observer) parseAndWrite(response string, observedOn, eventDate time.Time) ([]journal.Entry, error) {
	var entries []journal.Entry

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p, text, ok := journal.LeadingPriority(line)
		if !ok {
			continue
		}

		result := o.sanitizer.SanitizeForObservation(text, 0)
		if result.WasTruncated {
			p = priority.Critical
		}

		entry := journal.Entry{
			Priority:   p,
			ObservedOn: observedOn,
			EventDate:  eventDate,
			Text:       result.Text,
		}

		if err := o.journal.Append(entry); err != nil {
			return entries, fmt.Errorf("appending observation: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// formatTranscript renders messages as "[role]: content" lines, joined
// by newlines — the flat transcript form the Observer hands to the LLM
// (spec.md §4.4 step 2, §4.6).
func formatTranscript(messages []Message) string {
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

func toAdapterMessages(messages []Message) []llmadapter.Message {
	return []llmadapter.Message{{Role: "user", Content: formatTranscript(messages)}}
}
