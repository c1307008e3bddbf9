package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// wrapOpenAIError unwraps the SDK's typed API error to carry its HTTP
// status code, so safeMessage can map 401/429/404 without depending on
// the SDK's error type directly.
func wrapOpenAIError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.StatusCode, Err: fmt.Errorf("openai: %s: %w", op, err)}
	}
	return fmt.Errorf("openai: %s: %w", op, err)
}

// OpenAIProvider talks to the OpenAI chat completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider builds an OpenAI-backed Provider.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) ProviderName() string { return "openai" }
func (p *OpenAIProvider) ModelName() string    { return p.model }

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		switch m.Role {
		case "system":
			out[i] = openai.SystemMessage(m.Content)
		case "assistant":
			out[i] = openai.AssistantMessage(m.Content)
		default:
			out[i] = openai.UserMessage(m.Content)
		}
	}
	return out
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []Message, onDelta StreamFunc) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	var full string
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full += delta
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full, wrapOpenAIError("stream", err)
	}
	return full, nil
}

func (p *OpenAIProvider) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
	}
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapOpenAIError("chat completion", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) ContextWindowSize(_ context.Context) int {
	if w, ok := contextWindows[p.model]; ok {
		return w
	}
	return 128_000
}

func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.List(ctx)
	return err == nil
}

var _ Provider = (*OpenAIProvider)(nil)
