package observer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentctx/agentctx/internal/journal"
	"github.com/agentctx/agentctx/internal/llmadapter"
	"github.com/agentctx/agentctx/internal/priority"
	"github.com/agentctx/agentctx/internal/sanitizer"
)

func newTestObserver(t *testing.T, response string) (*Observer, *journal.Journal) {
	t.Helper()
	j := journal.New(filepath.Join(t.TempDir(), "observations.md"))
	llm := llmadapter.NewFake(response)
	return New(llm, j, sanitizer.New(0)), j
}

func TestCompress_EmptySessionSkipsLLMCall(t *testing.T) {
	o, _ := newTestObserver(t, "should never be used")

	entries, err := o.Compress(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no entries for an empty session, got %+v", entries)
	}
}

func TestCompress_WritesOnlyGlyphPrefixedLines(t *testing.T) {
	response := "🔴 token expired mid-run\nthis line has no glyph and should be dropped\n🟢 run completed in 4m12s"
	o, j := newTestObserver(t, response)

	entries, err := o.Compress(context.Background(), []Message{{Role: "user", Content: "did the run succeed?"}}, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].Priority != priority.Critical || entries[1].Priority != priority.Routine {
		t.Errorf("unexpected priorities: %+v", entries)
	}

	stored, err := j.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("journal has %d entries, want 2", len(stored))
	}
}

func TestCompress_TruncationUpgradesToCritical(t *testing.T) {
	j := journal.New(filepath.Join(t.TempDir(), "observations.md"))
	longText := strings.Repeat("this observation is way too long for the entry budget. ", 20)
	llm := llmadapter.NewFake("🟢 " + longText)
	o := New(llm, j, sanitizer.New(50))

	entries, err := o.Compress(context.Background(), []Message{{Role: "user", Content: "log everything"}}, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Priority != priority.Critical {
		t.Errorf("a truncated entry must be upgraded to Critical, got %v", entries[0].Priority)
	}
}

func TestCompress_BlankResponseProducesNoEntries(t *testing.T) {
	o, _ := newTestObserver(t, "")

	entries, err := o.Compress(context.Background(), []Message{{Role: "user", Content: "nothing worth remembering happened"}}, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries for a blank response, got %+v", entries)
	}
}
