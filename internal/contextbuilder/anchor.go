package contextbuilder

import "strings"

const anchorHeader = "## Task Anchor\n\n"

// Anchor holds the operator's original task intent for a session and
// renders it at the top of every context prefix (spec.md §4.7,
// component C7). Immutable after construction.
type Anchor struct {
	intent string
}

// NewAnchor trims intent and returns an Anchor. An all-whitespace intent
// renders as empty.
func NewAnchor(intent string) Anchor {
	return Anchor{intent: strings.TrimSpace(intent)}
}

// Intent returns the trimmed intent string.
func (a Anchor) Intent() string {
	return a.intent
}

// Render returns "## Task Anchor\n\n<intent>", or "" if the intent is
// empty.
func (a Anchor) Render() string {
	if a.intent == "" {
		return ""
	}
	return anchorHeader + a.intent
}

// IsSet reports whether the anchor has a non-empty intent — the Go
// analogue of the original implementation's __bool__.
func (a Anchor) IsSet() bool {
	return a.intent != ""
}
