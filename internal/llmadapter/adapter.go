// Package llmadapter defines the narrow capability the memory core needs
// from an LLM vendor client, and ships concrete adapters over it.
//
// Vendor transport (HTTP, retries, auth, streaming framing) is an
// external collaborator — spec.md §1 lists "LLM transport adapters" as
// out of the core's scope, modeled here as a single call/stream
// capability (spec.md §6.5). The memory core (Observer, Reflector)
// depends only on the Adapter interface, never on a concrete vendor
// client.
package llmadapter

import "context"

// Message is a single turn in a conversation, in the role/content shape
// every adapter normalizes to and from.
type Message struct {
	Role    string
	Content string
}

// Adapter is the minimal capability the memory core needs from an LLM
// client: a blocking call and a lazy streaming call, both taking a
// conversation and a system prompt. Only Call is used by the core
// today (spec.md §6.5); Stream exists so concrete adapters satisfy the
// same surface vendor SDKs expose.
type Adapter interface {
	// Call sends messages with the given system prompt and returns the
	// full response text.
	Call(ctx context.Context, messages []Message, system string) (string, error)

	// Stream sends messages with the given system prompt and returns a
	// channel of response text chunks. The channel is closed when the
	// response completes; a non-nil error is sent on errCh (buffered,
	// capacity 1) if the call fails before completion.
	Stream(ctx context.Context, messages []Message, system string) (chunks <-chan string, errCh <-chan error)
}
