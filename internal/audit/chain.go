// Package audit implements the append-only log of content hashes that
// makes tampering with the observation journal detectable.
//
// Unlike a linked hash chain (each entry's hash depending on the
// previous entry's hash), this chain records snapshots: each AuditEntry
// carries the SHA-256 digest of the journal's full raw content
// immediately after the write that produced it. Verify(x) holds when
// sha256(x) equals the last recorded snapshot hash. There is no
// cryptographic linking between audit entries themselves — the goal is
// detecting out-of-band edits to the journal, not authenticating the
// audit log itself (spec.md §1 Non-goals, §4.3).
package audit

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashContent returns the hex-encoded SHA-256 digest of content.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
