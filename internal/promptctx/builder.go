package promptctx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Nisrin888/blinder/internal/llm"
)

// Builder assembles the LLM message list using an adaptive strategy:
// stuff full documents when they fit the model's context window, fall
// back to keyword retrieval when they don't, or use pre-retrieved
// chunks directly when hybrid retrieval already ran.
type Builder struct {
	Provider  llm.Provider
	Threshold float64 // fraction of the context window usable for input, default 0.8
}

// NewBuilder constructs a Builder with the default stuffing threshold.
func NewBuilder(provider llm.Provider) *Builder {
	return &Builder{Provider: provider, Threshold: 0.8}
}

// BuildMessages assembles the full message list for a chat turn.
//
// When retrievedChunks is non-nil, it is used directly (hybrid RAG
// mode) instead of blindedDocuments. Otherwise the full documents are
// stuffed if they fit the context budget; if not, a keyword-overlap
// fallback selects the most relevant chunks.
func (b *Builder) BuildMessages(
	ctx context.Context,
	blindedDocuments []string,
	history []llm.Message,
	newPrompt string,
	pseudonymLegend []string,
	domain string,
	retrievedChunks []string,
) []llm.Message {
	systemPrompt := SystemPrompt(domain)

	if retrievedChunks != nil {
		docText := strings.Join(retrievedChunks, "\n\n---\n\n")
		return buildStuffed(systemPrompt, docText, history, newPrompt, pseudonymLegend)
	}

	contextWindow := b.Provider.ContextWindowSize(ctx)
	maxTokens := int(float64(contextWindow) * b.Threshold)

	docText := combineDocuments(blindedDocuments)
	totalEstimate := estimateTokens(systemPrompt + docText + newPrompt)
	for _, m := range history {
		totalEstimate += estimateTokens(m.Content)
	}

	if totalEstimate < maxTokens {
		return buildStuffed(systemPrompt, docText, history, newPrompt, pseudonymLegend)
	}

	relevant := retrieveRelevant(blindedDocuments, newPrompt, maxTokens, history, systemPrompt)
	return buildStuffed(systemPrompt, relevant, history, newPrompt, pseudonymLegend)
}

func combineDocuments(documents []string) string {
	if len(documents) == 0 {
		return ""
	}
	var parts []string
	for i, doc := range documents {
		parts = append(parts, fmt.Sprintf("--- Document %d ---\n%s", i+1, doc))
	}
	return strings.Join(parts, "\n\n")
}

func buildStuffed(systemPrompt, docContent string, history []llm.Message, newPrompt string, pseudonymLegend []string) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: systemPrompt}}

	if docContent != "" {
		legendText := ""
		if len(pseudonymLegend) > 0 {
			var b strings.Builder
			b.WriteString("\n\n### PSEUDONYM LEGEND ###\n")
			b.WriteString("The following pseudonyms are used in these documents. Use ONLY these exact pseudonyms in your responses:\n")
			for _, p := range pseudonymLegend {
				b.WriteString("- " + p + "\n")
			}
			b.WriteString("### END LEGEND ###\n")
			legendText = b.String()
		}

		messages = append(messages, llm.Message{
			Role: "user",
			Content: "### BEGIN DOCUMENT ###\n" + docContent + "\n### END DOCUMENT ###\n" +
				legendText + "\n" +
				"The above documents have been provided for analysis. All identifying information has been replaced with pseudonyms for privacy. Use ONLY the exact pseudonyms listed above in your responses.",
		})
		messages = append(messages, llm.Message{
			Role: "assistant",
			Content: "I have received the documents. I will use ONLY the exact pseudonyms from the documents " +
				"(like [PERSON_1], [ORG_1], etc.) and will never create new pseudonym formats. How can I help you analyze these documents?",
		})
	}

	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: newPrompt})
	return messages
}

// retrieveRelevant chunks documents into word-based windows and returns
// the highest keyword-overlap chunks that fit the remaining token budget.
func retrieveRelevant(documents []string, query string, maxTokens int, history []llm.Message, systemPrompt string) string {
	var chunks []string
	for _, doc := range documents {
		chunks = append(chunks, chunkWords(doc, 512, 50)...)
	}
	if len(chunks) == 0 {
		return ""
	}

	queryTokens := tokenSet(query)
	type scoredChunk struct {
		overlap int
		text    string
	}
	var scored []scoredChunk
	for _, c := range chunks {
		overlap := len(intersect(queryTokens, tokenSet(c)))
		scored = append(scored, scoredChunk{overlap, c})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].overlap > scored[j].overlap })

	historyTokens := 0
	for _, m := range history {
		historyTokens += estimateTokens(m.Content)
	}
	budget := maxTokens - estimateTokens(systemPrompt) - estimateTokens(query) - historyTokens - 500

	var selected []string
	used := 0
	for _, sc := range scored {
		t := estimateTokens(sc.text)
		if used+t > budget {
			break
		}
		selected = append(selected, sc.text)
		used += t
	}
	return strings.Join(selected, "\n\n---\n\n")
}

func chunkWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) <= size {
		return []string{text}
	}
	var chunks []string
	start := 0
	for start < len(words) {
		end := start + size
		clamped := end
		if clamped > len(words) {
			clamped = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:clamped], " "))
		if clamped == len(words) {
			break
		}
		start = end - overlap
	}
	return chunks
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

// estimateTokens is a rough approximation: ~4 characters per token for
// English text. Used only for context-budget decisions, never for
// precise accounting.
func estimateTokens(text string) int {
	return len(text) / 4
}
