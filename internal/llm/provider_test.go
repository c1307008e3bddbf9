package llm

import (
	"errors"
	"testing"
)

func TestCreateDefaultsToOllama(t *testing.T) {
	p, err := Create("", "", Config{OllamaModel: "llama3"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ProviderName() != "ollama" {
		t.Fatalf("expected ollama provider, got %s", p.ProviderName())
	}
}

func TestCreateOpenAIRequiresKey(t *testing.T) {
	_, err := Create("openai", "", Config{})
	if !errors.Is(err, ErrProviderMisconfigured) {
		t.Fatalf("expected ErrProviderMisconfigured, got %v", err)
	}
}

func TestCreateAnthropicRequiresKey(t *testing.T) {
	_, err := Create("anthropic", "", Config{})
	if !errors.Is(err, ErrProviderMisconfigured) {
		t.Fatalf("expected ErrProviderMisconfigured, got %v", err)
	}
}

func TestCreateUnknownProvider(t *testing.T) {
	_, err := Create("not-a-backend", "", Config{})
	if !errors.Is(err, ErrProviderMisconfigured) {
		t.Fatalf("expected ErrProviderMisconfigured, got %v", err)
	}
}

func TestToOllamaMessagesPreservesOrder(t *testing.T) {
	msgs := []Message{{Role: "system", Content: "a"}, {Role: "user", Content: "b"}}
	out := toOllamaMessages(msgs)
	if len(out) != 2 || out[0].Content != "a" || out[1].Content != "b" {
		t.Fatalf("unexpected conversion: %+v", out)
	}
}
