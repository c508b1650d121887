package llmadapter

import "context"

// RecordedCall captures the arguments of one Call/Stream invocation,
// for assertions in tests that exercise the Observer, Reflector, or
// Context Manager against a scripted LLM.
type RecordedCall struct {
	Messages []Message
	System   string
}

// Fake is a deterministic Adapter that returns a fixed response string,
// grounded on the original implementation's FakeLLMAdapter test double
// (original_source/src/agentctx/testing.py). It lets anything built on
// top of the memory core test Observer/Reflector/ContextManager flows
// without a live LLM — exactly what spec.md §8's S1–S4 scenarios need.
type Fake struct {
	Response string
	Calls    []RecordedCall
}

// NewFake returns a Fake that always answers with response.
func NewFake(response string) *Fake {
	return &Fake{Response: response}
}

// Call records the invocation and returns the fixed response.
func (f *Fake) Call(_ context.Context, messages []Message, system string) (string, error) {
	f.Calls = append(f.Calls, RecordedCall{Messages: messages, System: system})
	return f.Response, nil
}

// Stream records the invocation and yields the fixed response as a
// single chunk.
func (f *Fake) Stream(_ context.Context, messages []Message, system string) (<-chan string, <-chan error) {
	f.Calls = append(f.Calls, RecordedCall{Messages: messages, System: system})

	chunks := make(chan string, 1)
	errCh := make(chan error, 1)
	chunks <- f.Response
	close(chunks)
	close(errCh)
	return chunks, errCh
}
