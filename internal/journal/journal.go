package journal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agentctx/agentctx/internal/priority"
)

// headerPattern matches one entry header line:
//
//	<GLYPH> observed_on:YYYY-MM-DD event_date:YYYY-MM-DD [relative:X]? [[EXT]]?
//
// The relative: field is accepted and discarded (spec.md §3 invariant 4 —
// legacy content may carry it; new writes never do).
var headerPattern = regexp.MustCompile(
	`^(🔴|🟡|🟢)` +
		`\s+observed_on:(\d{4}-\d{2}-\d{2})` +
		`\s+event_date:(\d{4}-\d{2}-\d{2})` +
		`(?:\s+relative:\S+)?` +
		`(\s+\[EXT\])?\s*$`,
)

// blockSeparator splits raw journal content into entry blocks on runs of
// two or more newlines (spec.md §4.2 parser contract).
var blockSeparator = regexp.MustCompile(`\n{2,}`)

// Journal is the persistent, ordered sequence of observation entries
// backing a single observations.md file. Exclusively owned by the
// Context Manager for the lifetime of the process (spec.md §5) — it is
// not safe for concurrent use from multiple owners against the same
// path.
type Journal struct {
	path string
}

// New returns a handle to the journal at path. The file is not created
// until the first Append or Overwrite (spec.md §3: "created lazily on
// first write").
func New(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the backing file path.
func (j *Journal) Path() string {
	return j.path
}

// ReadRaw returns the full raw file content, or "" if the file doesn't
// exist yet.
func (j *Journal) ReadRaw() (string, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading journal %s: %w", j.path, err)
	}
	return string(data), nil
}

// Entries parses the current file content into entries, silently
// skipping unparseable blocks (spec.md §7: robustness against human
// edits and partial LLM output).
func (j *Journal) Entries() ([]Entry, error) {
	raw, err := j.ReadRaw()
	if err != nil {
		return nil, err
	}
	return Parse(raw), nil
}

// Parse parses raw journal content into entries. Exported so the
// Reflector can reuse it on an LLM's consolidated response (spec.md
// §4.5 step 3) without going through a file.
func Parse(raw string) []Entry {
	var entries []Entry
	for _, block := range blockSeparator.Split(strings.TrimSpace(raw), -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		header, text, _ := strings.Cut(block, "\n")
		m := headerPattern.FindStringSubmatch(header)
		if m == nil {
			continue
		}

		p, ok := priority.FromGlyph(m[1])
		if !ok {
			continue
		}
		observedOn, err := parseDate(m[2])
		if err != nil {
			continue
		}
		eventDate, err := parseDate(m[3])
		if err != nil {
			continue
		}

		entries = append(entries, Entry{
			Priority:   p,
			ObservedOn: observedOn,
			EventDate:  eventDate,
			Text:       strings.TrimSpace(text),
			External:   m[4] != "",
		})
	}
	return entries
}

// Append writes a single new entry to the end of the journal, creating
// the parent directory (mode 0o700, owner-only) and the file itself if
// they don't yet exist (spec.md §3, §4.2).
//
// Appends are O(n) in current file size because the separator logic
// must read the existing content first; this is deliberate, per
// spec.md §4.2 — the file is expected to stay below ~100 KB.
func (j *Journal) Append(e Entry) error {
	if err := j.ensureFile(); err != nil {
		return err
	}

	raw, err := j.ReadRaw()
	if err != nil {
		return err
	}

	separator := ""
	if strings.TrimSpace(raw) != "" {
		separator = "\n\n"
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening journal %s for append: %w", j.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(separator + e.Serialize() + "\n"); err != nil {
		return fmt.Errorf("appending to journal %s: %w", j.path, err)
	}
	return nil
}

// Overwrite rewrites the entire journal from the supplied entries,
// preserving the given order. An empty slice produces an empty file.
// Used exclusively by the Reflector (spec.md §3 invariant 3).
func (j *Journal) Overwrite(entries []Entry) error {
	if err := j.ensureFile(); err != nil {
		return err
	}

	var content string
	if len(entries) > 0 {
		rendered := make([]string, len(entries))
		for i, e := range entries {
			rendered[i] = e.Serialize()
		}
		content = strings.Join(rendered, "\n\n") + "\n"
	}

	if err := os.WriteFile(j.path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("overwriting journal %s: %w", j.path, err)
	}
	return nil
}

// TokenCountApprox returns a cheap approximation of the journal's token
// count (1 token ≈ 4 bytes), used only as a trigger signal for the
// Reflector — never as a correctness quantity (spec.md §4.2).
func (j *Journal) TokenCountApprox() (int, error) {
	raw, err := j.ReadRaw()
	if err != nil {
		return 0, err
	}
	return len(raw) / 4, nil
}

// ensureFile creates the parent directory (owner-only permissions) and
// touches the file if either is missing.
func (j *Journal) ensureFile() error {
	dir := filepath.Dir(j.path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating journal directory %s: %w", dir, err)
		}
		slog.Info("journal directory created", "dir", dir)
	}

	if _, err := os.Stat(j.path); os.IsNotExist(err) {
		f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("creating journal %s: %w", j.path, err)
		}
		f.Close()
	}
	return nil
}
