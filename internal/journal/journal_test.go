package journal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentctx/agentctx/internal/priority"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := parseDate(s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func TestAppendAndEntries(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "observations.md"))

	e1 := Entry{Priority: priority.Critical, ObservedOn: mustDate(t, "2026-07-30"), EventDate: mustDate(t, "2026-07-29"), Text: "token expired"}
	e2 := Entry{Priority: priority.Routine, ObservedOn: mustDate(t, "2026-07-30"), EventDate: mustDate(t, "2026-07-30"), Text: "run completed"}

	if err := j.Append(e1); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Append(e2); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Text != "token expired" || entries[1].Text != "run completed" {
		t.Errorf("entries out of order or mangled: %+v", entries)
	}
	if entries[0].Priority != priority.Critical {
		t.Errorf("entries[0].Priority = %v, want Critical", entries[0].Priority)
	}
}

func TestSerializeNeverCarriesRelativeField(t *testing.T) {
	e := Entry{Priority: priority.Signal, ObservedOn: mustDate(t, "2026-07-30"), EventDate: mustDate(t, "2026-07-20"), Text: "recurring timeout"}
	if strings.Contains(e.Serialize(), "relative:") {
		t.Error("Serialize must never write a relative: field")
	}
	if !strings.Contains(e.Render(mustDate(t, "2026-07-30")), "relative:") {
		t.Error("Render must include a relative: field")
	}
}

func TestRelativeLag(t *testing.T) {
	today := mustDate(t, "2026-07-31")
	cases := []struct {
		eventDate string
		want      string
	}{
		{"2026-07-31", "today"},
		{"2026-07-30", "1_day_ago"},
		{"2026-07-21", "10_days_ago"},
	}
	for _, c := range cases {
		e := Entry{EventDate: mustDate(t, c.eventDate)}
		if got := e.RelativeLag(today); got != c.want {
			t.Errorf("RelativeLag(%s vs today) = %q, want %q", c.eventDate, got, c.want)
		}
	}
}

func TestExternalFlagRoundTrips(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "observations.md"))
	e := Entry{Priority: priority.Routine, ObservedOn: mustDate(t, "2026-07-30"), EventDate: mustDate(t, "2026-07-30"), Text: "fetched docs", External: true}

	if err := j.Append(e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || !entries[0].External {
		t.Fatalf("External flag did not round trip: %+v", entries)
	}
}

func TestParseSkipsUnparseableBlocks(t *testing.T) {
	raw := "🔴 observed_on:2026-07-30 event_date:2026-07-29\ngood entry\n\nnot a valid header at all\n\n🟢 observed_on:2026-07-30 event_date:2026-07-30\nanother good entry\n"
	entries := Parse(raw)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (malformed block should be skipped): %+v", len(entries), entries)
	}
}

func TestParseAcceptsLegacyRelativeField(t *testing.T) {
	raw := "🟡 observed_on:2026-07-30 event_date:2026-07-20 relative:10_days_ago\nold style entry\n"
	entries := Parse(raw)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Text != "old style entry" {
		t.Errorf("Text = %q", entries[0].Text)
	}
}

func TestOverwriteReplacesEntireFile(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "observations.md"))
	if err := j.Append(Entry{Priority: priority.Routine, ObservedOn: mustDate(t, "2026-07-01"), EventDate: mustDate(t, "2026-07-01"), Text: "old"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	replacement := []Entry{
		{Priority: priority.Critical, ObservedOn: mustDate(t, "2026-07-31"), EventDate: mustDate(t, "2026-07-31"), Text: "consolidated"},
	}
	if err := j.Overwrite(replacement); err != nil {
		t.Fatalf("Overwrite: %v", err)
	}

	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "consolidated" {
		t.Fatalf("Overwrite did not replace file contents: %+v", entries)
	}
}

func TestOverwriteEmptySliceProducesEmptyFile(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "observations.md"))
	if err := j.Append(Entry{Priority: priority.Routine, ObservedOn: mustDate(t, "2026-07-01"), EventDate: mustDate(t, "2026-07-01"), Text: "old"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Overwrite(nil); err != nil {
		t.Fatalf("Overwrite: %v", err)
	}

	raw, err := j.ReadRaw()
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if raw != "" {
		t.Errorf("expected empty file after Overwrite(nil), got %q", raw)
	}
}

func TestReadRawOnMissingFileIsEmptyNotError(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "does-not-exist.md"))
	raw, err := j.ReadRaw()
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if raw != "" {
		t.Errorf("expected empty string, got %q", raw)
	}
}

func TestTokenCountApprox(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "observations.md"))
	if err := j.Append(Entry{Priority: priority.Routine, ObservedOn: mustDate(t, "2026-07-01"), EventDate: mustDate(t, "2026-07-01"), Text: "1234567890"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	count, err := j.TokenCountApprox()
	if err != nil {
		t.Fatalf("TokenCountApprox: %v", err)
	}
	if count <= 0 {
		t.Errorf("TokenCountApprox = %d, want > 0", count)
	}
}

func TestLeadingPriority(t *testing.T) {
	p, text, ok := LeadingPriority("🔴 token expired")
	if !ok || p != priority.Critical || text != "token expired" {
		t.Errorf("got (%v, %q, %v), want (Critical, \"token expired\", true)", p, text, ok)
	}

	p, text, ok = LeadingPriority("🟡: recurring pattern")
	if !ok || p != priority.Signal || text != "recurring pattern" {
		t.Errorf("got (%v, %q, %v), want (Signal, \"recurring pattern\", true)", p, text, ok)
	}

	_, _, ok = LeadingPriority("no glyph here")
	if ok {
		t.Error("LeadingPriority on a line with no glyph should report not ok")
	}
}
