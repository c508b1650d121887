package llmadapter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultClaudeModel is used when no model is specified, matching the
// original implementation's default (original_source's ClaudeAdapter).
const DefaultClaudeModel = "claude-haiku-4-5-20251001"

// Claude is an Adapter over the real Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// ClaudeOption configures a Claude adapter.
type ClaudeOption func(*Claude)

// WithClaudeMaxTokens overrides the default max_tokens per call.
func WithClaudeMaxTokens(n int64) ClaudeOption {
	return func(c *Claude) { c.maxTokens = n }
}

// NewClaude constructs a Claude adapter. apiKey may be empty to rely on
// the ANTHROPIC_API_KEY environment variable, which the SDK reads by
// default.
func NewClaude(model, apiKey string, opts ...ClaudeOption) *Claude {
	if model == "" {
		model = DefaultClaudeModel
	}

	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}

	c := &Claude{
		client:    anthropic.NewClient(clientOpts...),
		model:     anthropic.Model(model),
		maxTokens: 4_096,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends messages to Claude and returns the first text block of the
// response.
func (c *Claude) Call(ctx context.Context, messages []Message, system string) (string, error) {
	params := c.buildParams(messages, system)

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages.new: %w", err)
	}

	for _, block := range resp.Content {
		if text := block.AsText(); text.Text != "" {
			return text.Text, nil
		}
	}
	return "", nil
}

// Stream sends messages to Claude and yields text deltas as they
// arrive.
func (c *Claude) Stream(ctx context.Context, messages []Message, system string) (<-chan string, <-chan error) {
	params := c.buildParams(messages, system)

	chunks := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunks)

		stream := c.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.AsAny(); text != nil {
					if d, ok := text.(anthropic.TextDelta); ok && d.Text != "" {
						chunks <- d.Text
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("claude streaming: %w", err)
		}
	}()

	return chunks, errCh
}

func (c *Claude) buildParams(messages []Message, system string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  toClaudeMessages(messages),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

func toClaudeMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
