// Package sanitizer defends the observation journal against prompt
// injection payloads arriving through conversation text and external
// content. It is a conservative, best-effort textual filter: it cannot
// catch novel payloads, but it denies the canonical injection shapes and
// bounds blast radius via a per-entry character budget (spec.md §4.1).
package sanitizer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxEntryChars is the default per-entry character budget
// (~500 tokens at 4 chars/token).
const DefaultMaxEntryChars = 2_000

const truncationSuffix = " … [TRUNCATED]"

// rule pairs a compiled pattern with a descriptive name. Rules are
// evaluated in their order in the rules slice, and order matters: specific patterns (e.g. <system>...</system>) must run
// before generic ones so a specific match's substitution doesn't shadow
// a later, broader rule's coverage (spec.md §4.1 point 4, §6.2).
type rule struct {
	name string
	re   *regexp.Regexp
}

// rules is the ordered redaction ruleset from spec.md §6.2. Each match
// is replaced in place by the literal "[REDACTED]".
var rules = []rule{
	{
		name: "ignore-previous-instructions",
		re: regexp.MustCompile(`(?i)(ignore|disregard|forget|override)\s+(all\s+)?` +
			`(previous|prior|above)\s+(instructions?|context|prompts?|directions?|constraints?)`),
	},
	{
		name: "you-are-now",
		re:   regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s+\w+`),
	},
	{
		name: "new-instructions-colon",
		re:   regexp.MustCompile(`(?i)(new|updat\w*|revis\w*|secret|hidden)\s+instructions?\s*:`),
	},
	{
		name: "forget-everything",
		re:   regexp.MustCompile(`(?i)forget\s+(everything|all|your|what|prior\w*)`),
	},
	{
		name: "act-as",
		re: regexp.MustCompile(`(?i)(act|behave|pretend|roleplay)\s+as\s+(if\s+)?` +
			`(you\s+(are|were)\s+)?(a|an|the)\s+\w+`),
	},
	{
		name: "markdown-system-header",
		re:   regexp.MustCompile(`(?i)#{1,3}\s*(system|instructions?|prompt)\s*:`),
	},
	{
		name: "system-tags",
		re:   regexp.MustCompile(`(?is)<\s*system\s*>.*?<\s*/\s*system\s*>`),
	},
	{
		name: "instructions-tags",
		re:   regexp.MustCompile(`(?is)<\s*instructions?\s*>.*?<\s*/\s*instructions?\s*>`),
	},
	{
		name: "inst-tokens",
		re:   regexp.MustCompile(`(?s)\[INST\].*?\[/INST\]`),
	},
	{
		name: "im-start-block",
		re:   regexp.MustCompile(`(?s)<\|im_start\|>.*?(<\|im_end\|>|\z)`),
	},
	{
		name: "im-start-bare",
		re:   regexp.MustCompile(`\|\s*im_start\s*\|`),
	},
}

// Result is the outcome of a sanitize pass.
type Result struct {
	Text           string
	WasTruncated   bool
	InjectionCount int
}

// Sanitizer redacts injection patterns and enforces a per-entry
// character budget before text is allowed anywhere near the journal.
type Sanitizer struct {
	maxEntryChars int
}

// New returns a Sanitizer with the given default per-entry budget.
// Pass 0 to use DefaultMaxEntryChars.
func New(maxEntryChars int) *Sanitizer {
	if maxEntryChars <= 0 {
		maxEntryChars = DefaultMaxEntryChars
	}
	return &Sanitizer{maxEntryChars: maxEntryChars}
}

// SanitizeForObservation applies the ordered redaction ruleset, trims
// whitespace, and truncates to budget (or maxChars if non-zero),
// appending " … [TRUNCATED]" and setting WasTruncated when the budget is
// exceeded. Truncation is not an error — callers upgrade the entry's
// priority to Critical when WasTruncated is true (spec.md §3 invariant 2).
func (s *Sanitizer) SanitizeForObservation(text string, maxChars int) Result {
	budget := s.maxEntryChars
	if maxChars > 0 {
		budget = maxChars
	}

	cleaned, count := s.stripInjections(text)

	truncated := false
	if utf8.RuneCountInString(cleaned) > budget {
		runes := []rune(cleaned)
		cleaned = strings.TrimRight(string(runes[:budget]), " \t\n\r") + truncationSuffix
		truncated = true
	}

	return Result{Text: cleaned, WasTruncated: truncated, InjectionCount: count}
}

// WrapExternal redacts injections from untrusted external content and
// wraps it in the <external_content> sentinel delimiters used wherever
// external text is injected into the context (spec.md §4.1, GLOSSARY).
func (s *Sanitizer) WrapExternal(content string) string {
	cleaned, _ := s.stripInjections(content)
	return "<external_content>\n" + strings.TrimSpace(cleaned) + "\n</external_content>"
}

// stripInjections runs the ordered ruleset over content and trims the
// result. Returns the cleaned text and the total number of
// substitutions made across all rules.
func (s *Sanitizer) stripInjections(content string) (string, int) {
	count := 0
	for _, r := range rules {
		var n int
		content, n = replaceAllCounting(r.re, content, "[REDACTED]")
		count += n
	}
	return strings.TrimSpace(content), count
}

// replaceAllCounting behaves like regexp.ReplaceAllString but also
// returns the number of matches replaced, mirroring Python's re.subn
// used by the original implementation this sanitizer is grounded on.
func replaceAllCounting(re *regexp.Regexp, input, replacement string) (string, int) {
	matches := re.FindAllStringIndex(input, -1)
	if len(matches) == 0 {
		return input, 0
	}
	return re.ReplaceAllString(input, replacement), len(matches)
}
