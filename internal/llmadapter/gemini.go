package llmadapter

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel matches the original implementation's default
// (original_source's GeminiAdapter).
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini is an Adapter over the Google Gemini API. Authentication
// follows the client library's own resolution (GOOGLE_API_KEY env var,
// or an explicit apiKey); the client always targets the Gemini API
// backend, never Vertex AI.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini constructs a Gemini adapter for the given model and API
// key. An empty apiKey relies on the client library reading the API key
// from the environment (GOOGLE_API_KEY).
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Call sends messages to Gemini and returns the response text.
//
// Gemini uses role "model" instead of "assistant" and has no system
// role in the content list — system instructions are prepended to the
// first user message instead, the same fallback the original Python
// adapter used (original_source's adapters/gemini.py).
func (g *Gemini) Call(ctx context.Context, messages []Message, system string) (string, error) {
	contents := toGeminiContents(messages, system)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}

// Stream sends messages to Gemini and yields text chunks as they
// arrive.
func (g *Gemini) Stream(ctx context.Context, messages []Message, system string) (<-chan string, <-chan error) {
	contents := toGeminiContents(messages, system)

	chunks := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunks)

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, nil) {
			if err != nil {
				errCh <- fmt.Errorf("gemini streaming: %w", err)
				return
			}
			if text := resp.Text(); text != "" {
				chunks <- text
			}
		}
	}()

	return chunks, errCh
}

func toGeminiContents(messages []Message, system string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))

	prependSystem := system != ""
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}

		text := m.Content
		if prependSystem && role == "user" {
			text = system + "\n\n" + text
			prependSystem = false
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		})
	}

	return contents
}
