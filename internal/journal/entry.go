// Package journal implements the observation journal: the persistent,
// append-or-overwrite, tamper-evident (via the audit package) record of
// everything the memory core has chosen to remember.
//
// See spec.md §3 (data model) and §4.2 (journal contract) and §6.1 (the
// on-disk observations.md grammar) for the authoritative format.
package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentctx/agentctx/internal/priority"
)

const dateLayout = "2006-01-02"

// Entry is the atomic unit of the journal: a single priority-tagged
// observation, possibly about an event that occurred before it was
// observed.
//
// Entries are immutable once constructed — the journal as a whole is
// only mutated via Journal.Append and Journal.Overwrite (spec.md §3
// invariant 3).
type Entry struct {
	Priority   priority.Priority
	ObservedOn time.Time // calendar date the entry was written, UTC midnight
	EventDate  time.Time // calendar date the underlying event occurred
	Text       string
	External   bool // true if the source was untrusted external content
}

// Today returns the current UTC calendar date, truncated to midnight.
// Used as the default for ObservedOn/EventDate and for relative-lag
// computation wherever a caller doesn't pin a specific "today".
func Today() time.Time {
	return dateOnly(time.Now().UTC())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RelativeLag computes the entry's event_date lag relative to today,
// mapped to "today", "1_day_ago", or "N_days_ago" (spec.md §3, derived
// field — never stored).
func (e Entry) RelativeLag(today time.Time) string {
	delta := int(dateOnly(today).Sub(dateOnly(e.EventDate)).Hours() / 24)
	switch delta {
	case 0:
		return "today"
	case 1:
		return "1_day_ago"
	default:
		return fmt.Sprintf("%d_days_ago", delta)
	}
}

// Render returns the form of the entry injected into the context window:
// the serialized header plus a dynamically computed relative: field,
// followed by the entry text. The relative field is never persisted —
// it's re-derived at render time against the caller's "today" so that
// the stored journal stays identical across runs (spec.md §4.6).
func (e Entry) Render(today time.Time) string {
	ext := ""
	if e.External {
		ext = " [EXT]"
	}
	header := fmt.Sprintf("%s observed_on:%s event_date:%s relative:%s%s",
		e.Priority.Glyph(),
		e.ObservedOn.Format(dateLayout),
		e.EventDate.Format(dateLayout),
		e.RelativeLag(today),
		ext,
	)
	return header + "\n" + e.Text
}

// Serialize returns the on-disk storage form written to observations.md:
// no relative: field (it's computed at render time, never stored) —
// spec.md §3 invariant 4 and §6.1.
func (e Entry) Serialize() string {
	ext := ""
	if e.External {
		ext = " [EXT]"
	}
	header := fmt.Sprintf("%s observed_on:%s event_date:%s%s",
		e.Priority.Glyph(),
		e.ObservedOn.Format(dateLayout),
		e.EventDate.Format(dateLayout),
		ext,
	)
	return header + "\n" + e.Text
}

// parseDate parses a YYYY-MM-DD date, as found in journal headers.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// trimMarker strips a leading priority glyph from a line along with the
// optional ":"/"-" separator and surrounding space, as produced by an
// LLM that didn't follow the "glyph, space, text" instruction exactly.
// Used by the Observer and by ContextManager.Observe when parsing a
// caller-supplied leading marker.
func trimMarker(line string, glyph string) string {
	rest := strings.TrimPrefix(line, glyph)
	return strings.TrimLeft(strings.TrimLeft(rest, " :-"), " ")
}

// LeadingPriority inspects line for a leading priority glyph and returns
// the parsed Priority, the remaining text with the marker and its
// separator stripped, and whether a marker was found.
func LeadingPriority(line string) (p priority.Priority, text string, ok bool) {
	for _, g := range priority.Glyphs() {
		if strings.HasPrefix(line, g) {
			parsed, _ := priority.FromGlyph(g)
			return parsed, trimMarker(line, g), true
		}
	}
	return priority.Routine, line, false
}
