package promptctx

import (
	"context"
	"strings"
	"testing"

	"github.com/Nisrin888/blinder/internal/llm"
)

type stubProvider struct {
	window  int
	reply   string
	replyOK bool
}

func (s stubProvider) ChatStream(_ context.Context, _ []llm.Message, _ llm.StreamFunc) (string, error) {
	return s.reply, nil
}
func (s stubProvider) ChatComplete(_ context.Context, _ []llm.Message) (string, error) {
	if !s.replyOK {
		return "", nil
	}
	return s.reply, nil
}
func (s stubProvider) ContextWindowSize(_ context.Context) int { return s.window }
func (s stubProvider) IsAvailable(_ context.Context) bool      { return true }
func (s stubProvider) ModelName() string                       { return "stub" }
func (s stubProvider) ProviderName() string                    { return "stub" }

func TestSystemPromptFallsBackToGeneral(t *testing.T) {
	p := SystemPrompt("unknown-domain")
	if !strings.Contains(p, "DOMAIN: General") {
		t.Fatalf("expected fallback to general domain prompt, got: %s", p)
	}
}

func TestSystemPromptLegal(t *testing.T) {
	p := SystemPrompt("legal")
	if !strings.Contains(p, "DOMAIN: Legal") || !strings.Contains(p, "plaintiff") {
		t.Fatalf("expected legal expert prompt content, got: %s", p)
	}
}

func TestDetectDomainFallsBackOnUnrecognized(t *testing.T) {
	got := DetectDomain(context.Background(), "hello", stubProvider{reply: "astrology", replyOK: true})
	if got != "general" {
		t.Fatalf("expected general fallback, got %s", got)
	}
}

func TestDetectDomainRecognizesSupported(t *testing.T) {
	got := DetectDomain(context.Background(), "hello", stubProvider{reply: "Finance.", replyOK: true})
	if got != "finance" {
		t.Fatalf("expected finance, got %s", got)
	}
}

func TestBuildMessagesStuffsSmallDocuments(t *testing.T) {
	b := NewBuilder(stubProvider{window: 100_000})
	msgs := b.BuildMessages(context.Background(), []string{"[PERSON_1] signed the agreement."}, nil,
		"what did [PERSON_1] sign?", []string{"[PERSON_1] (PERSON)"}, "legal", nil)

	if len(msgs) != 4 {
		t.Fatalf("expected system + document + assistant ack + user messages, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Content, "### BEGIN DOCUMENT ###") {
		t.Fatalf("expected document wrapper in stuffed message: %s", msgs[1].Content)
	}
	if !strings.Contains(msgs[1].Content, "PSEUDONYM LEGEND") {
		t.Fatalf("expected pseudonym legend in stuffed message")
	}
}

func TestBuildMessagesUsesRetrievedChunksDirectly(t *testing.T) {
	b := NewBuilder(stubProvider{window: 100_000})
	msgs := b.BuildMessages(context.Background(), []string{"full doc text"}, nil,
		"query", nil, "general", []string{"chunk one", "chunk two"})

	found := false
	for _, m := range msgs {
		if strings.Contains(m.Content, "chunk one") && strings.Contains(m.Content, "chunk two") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected retrieved chunks to appear in messages: %+v", msgs)
	}
}

func TestChunkWordsOverlap(t *testing.T) {
	words := make([]string, 0, 600)
	for i := 0; i < 600; i++ {
		words = append(words, "word")
	}
	chunks := chunkWords(strings.Join(words, " "), 512, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
}
