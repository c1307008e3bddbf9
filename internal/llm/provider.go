// Package llm abstracts over the chat-completion backends Blinder can
// route pseudonymized prompts to. Every provider receives only blinded
// text — none of them ever sees a real name, account number, or case
// reference.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message is a single turn in a chat conversation.
type Message struct {
	Role    string
	Content string
}

// ErrProviderMisconfigured is returned by Create when the requested
// provider is missing a required credential.
var ErrProviderMisconfigured = errors.New("llm: provider misconfigured")

// StatusError wraps a provider error with the HTTP status code behind it,
// so callers can map 401/429/404 to a fixed, user-safe message without
// needing to know each provider's own error type.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code behind the error.
func (e *StatusError) StatusCode() int { return e.Code }

// StreamFunc receives one content delta at a time during a streaming
// chat completion.
type StreamFunc func(delta string) error

// Provider is the common surface every chat backend implements.
type Provider interface {
	// ChatStream streams a completion, invoking onDelta for each chunk
	// of content as it arrives, and returns the full accumulated text.
	ChatStream(ctx context.Context, messages []Message, onDelta StreamFunc) (string, error)
	// ChatComplete returns a full completion with no incremental callback.
	ChatComplete(ctx context.Context, messages []Message) (string, error)
	// ContextWindowSize returns the model's context window, in tokens.
	ContextWindowSize(ctx context.Context) int
	// IsAvailable reports whether the backend is reachable right now.
	IsAvailable(ctx context.Context) bool
	// ModelName returns the configured model identifier.
	ModelName() string
	// ProviderName returns the backend name ("ollama", "openai", "anthropic").
	ProviderName() string
}

// contextWindows holds known context sizes for models whose provider API
// doesn't expose this at request time.
var contextWindows = map[string]int{
	"gpt-4o":                     128_000,
	"gpt-4o-mini":                128_000,
	"gpt-4-turbo":                128_000,
	"gpt-4":                      8_192,
	"gpt-3.5-turbo":              16_385,
	"o1":                         200_000,
	"o1-mini":                    128_000,
	"o3-mini":                    200_000,
	"claude-sonnet-4-5-20250929": 200_000,
	"claude-haiku-4-5-20251001":  200_000,
	"claude-3-5-sonnet-20241022": 200_000,
	"claude-3-haiku-20240307":    200_000,
}

// Config carries the settings needed to construct any supported provider.
type Config struct {
	OllamaBaseURL    string
	OllamaModel      string
	OpenAIAPIKey     string
	OpenAIModel      string
	AnthropicAPIKey  string
	AnthropicModel   string
}

// Create builds a Provider for the named backend ("ollama", "openai", or
// "anthropic"), overriding its default model when model is non-empty.
func Create(provider, model string, cfg Config) (Provider, error) {
	switch provider {
	case "", "ollama":
		m := model
		if m == "" {
			m = cfg.OllamaModel
		}
		return NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: openai api key is required", ErrProviderMisconfigured)
		}
		m := model
		if m == "" {
			m = cfg.OpenAIModel
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, m), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: anthropic api key is required", ErrProviderMisconfigured)
		}
		m := model
		if m == "" {
			m = cfg.AnthropicModel
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, m), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderMisconfigured, provider)
	}
}
