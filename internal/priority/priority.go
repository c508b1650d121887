// Package priority defines the three-valued severity tag attached to every
// observation in the memory journal.
//
// The on-disk and wire format uses fixed unicode glyphs (🔴/🟡/🟢) as the
// type tag, but the glyph is never passed around as a bare string inside
// the core: everything internal to agentctx operates on the Priority sum
// type and only converts to/from the glyph at the journal's parse/render
// boundary (spec.md design note: "Priority as string glyphs").
package priority

import "fmt"

// Priority is one of three ordered severity levels. Order is semantic —
// Critical is the most severe — not merely a display convention.
type Priority int

const (
	// Routine is normal context: timing, metadata, completions.
	Routine Priority = iota
	// Signal is a pattern or trend worth tracking.
	Signal
	// Critical must influence the next run: errors, failures, expired
	// tokens, blocked paths. Sticky — the Observer and
	// ContextManager.Observe upgrade any truncated entry to Critical.
	Critical
)

const (
	glyphCritical = "🔴"
	glyphSignal   = "🟡"
	glyphRoutine  = "🟢"
)

// Glyph returns the fixed unicode marker used in both the serialized
// journal format and the rendered context window.
func (p Priority) Glyph() string {
	switch p {
	case Critical:
		return glyphCritical
	case Signal:
		return glyphSignal
	default:
		return glyphRoutine
	}
}

// String implements fmt.Stringer for logging.
func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case Signal:
		return "signal"
	case Routine:
		return "routine"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// FromGlyph parses a leading priority glyph, returning the Priority and
// true if the glyph was recognized.
func FromGlyph(glyph string) (Priority, bool) {
	switch glyph {
	case glyphCritical:
		return Critical, true
	case glyphSignal:
		return Signal, true
	case glyphRoutine:
		return Routine, true
	default:
		return Routine, false
	}
}

// Glyphs returns all three glyphs in severity order, most severe first.
// Used by parsers that need to test a line against each marker in turn.
func Glyphs() []string {
	return []string{glyphCritical, glyphSignal, glyphRoutine}
}
