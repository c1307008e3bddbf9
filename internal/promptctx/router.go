package promptctx

import (
	"context"
	"strings"

	"github.com/Nisrin888/blinder/internal/llm"
)

// DetectDomain asks the provider to classify text into a supported
// domain with a single non-streaming call, falling back to "general" on
// any ambiguity or error.
func DetectDomain(ctx context.Context, text string, provider llm.Provider) string {
	messages := []llm.Message{
		{Role: "system", Content: RouterPrompt},
		{Role: "user", Content: text},
	}
	result, err := provider.ChatComplete(ctx, messages)
	if err != nil {
		return "general"
	}
	domain := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(result)), ".")
	if isSupportedDomain(domain) {
		return domain
	}
	return "general"
}
