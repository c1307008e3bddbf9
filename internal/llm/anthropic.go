package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// wrapAnthropicError unwraps the SDK's typed API error to carry its HTTP
// status code, so safeMessage can map 401/429/404 without depending on
// the SDK's error type directly.
func wrapAnthropicError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.StatusCode, Err: fmt.Errorf("anthropic: %s: %w", op, err)}
	}
	return fmt.Errorf("anthropic: %s: %w", op, err)
}

const defaultAnthropicMaxTokens = 8192

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider builds an Anthropic-backed Provider.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicProvider) ProviderName() string { return "anthropic" }
func (p *AnthropicProvider) ModelName() string    { return p.model }

func (p *AnthropicProvider) buildParams(messages []Message) anthropic.MessageNewParams {
	var system string
	var turns []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  turns,
		MaxTokens: defaultAnthropicMaxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

func (p *AnthropicProvider) ChatStream(ctx context.Context, messages []Message, onDelta StreamFunc) (string, error) {
	params := p.buildParams(messages)
	stream := p.client.Messages.NewStreaming(ctx, params)

	var full string
	for stream.Next() {
		event := stream.Current()
		if event.Type != "content_block_delta" {
			continue
		}
		if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
			continue
		}
		full += event.Delta.Text
		if onDelta != nil {
			if err := onDelta(event.Delta.Text); err != nil {
				return full, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full, wrapAnthropicError("stream", err)
	}
	return full, nil
}

func (p *AnthropicProvider) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	params := p.buildParams(messages)
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapAnthropicError("messages.new", err)
	}
	var full string
	for _, block := range message.Content {
		if block.Type == "text" {
			full += block.Text
		}
	}
	return full, nil
}

func (p *AnthropicProvider) ContextWindowSize(_ context.Context) int {
	if w, ok := contextWindows[p.model]; ok {
		return w
	}
	return 200_000
}

func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("hi"))},
	})
	return err == nil
}

var _ Provider = (*AnthropicProvider)(nil)
