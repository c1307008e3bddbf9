// Package retriever implements hybrid retrieval over a session's chunk
// store: reciprocal rank fusion across pseudonym-exact, lexical, and
// vector signals.
package retriever

import (
	"context"
	"regexp"
	"sort"
)

const (
	perSignalCap = 50
	missingRank  = 51
	defaultRRFK  = 60
	pseudonymW   = 2.0
	lexicalW     = 1.0
	vectorW      = 1.0
)

var pseudonymRe = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*_\d+\]`)

// Chunk is the minimal shape the retriever needs from a stored chunk.
type Chunk struct {
	ID   string
	Text string
}

// Scored pairs a chunk identifier with its fused RRF score.
type Scored struct {
	ChunkID string
	Score   float64
}

// ChunkSource supplies the three ranked-signal queries against a
// session's chunk store. Implementations back onto SQLite FTS5 for
// lexical and a linear cosine scan for vector; pseudonym-exact ranking
// needs no index and is computed in-process from chunk text.
type ChunkSource interface {
	// LexicalRank returns chunk IDs ranked by BM25-style relevance to
	// query, most relevant first, capped to limit.
	LexicalRank(ctx context.Context, sessionID, query string, limit int) ([]string, error)
	// VectorRank returns chunk IDs ranked by cosine similarity to
	// queryEmbedding, most similar first, capped to limit.
	VectorRank(ctx context.Context, sessionID string, queryEmbedding []float32, limit int) ([]string, error)
	// ChunksContaining returns, for the session, the chunks whose text
	// contains at least one of the given pseudonyms, with a count of how
	// many distinct pseudonyms each one contains.
	ChunksContaining(ctx context.Context, sessionID string, pseudonyms []string) (map[string]int, error)
}

// HybridSearch runs all three signals and returns chunks ranked by
// reciprocal rank fusion, truncated to topK.
func HybridSearch(ctx context.Context, src ChunkSource, sessionID, queryText string, queryEmbedding []float32, topK, rrfK int) ([]Scored, error) {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	ranks := make(map[string][3]int) // chunkID -> [pseudonymRank, lexicalRank, vectorRank], 0 = unset

	pseudonyms := uniquePseudonyms(queryText)
	if len(pseudonyms) > 0 {
		counts, err := src.ChunksContaining(ctx, sessionID, pseudonyms)
		if err == nil {
			type pc struct {
				id    string
				count int
			}
			var ordered []pc
			for id, c := range counts {
				ordered = append(ordered, pc{id, c})
			}
			sort.Slice(ordered, func(i, j int) bool { return ordered[i].count > ordered[j].count })
			for i, p := range ordered {
				if i >= perSignalCap {
					break
				}
				entry := ranks[p.id]
				entry[0] = i + 1
				ranks[p.id] = entry
			}
		}
	}

	if lex, err := src.LexicalRank(ctx, sessionID, queryText, perSignalCap); err == nil {
		for i, id := range lex {
			entry := ranks[id]
			entry[1] = i + 1
			ranks[id] = entry
		}
	}

	if queryEmbedding != nil {
		if vec, err := src.VectorRank(ctx, sessionID, queryEmbedding, perSignalCap); err == nil {
			for i, id := range vec {
				entry := ranks[id]
				entry[2] = i + 1
				ranks[id] = entry
			}
		}
	}

	var scored []Scored
	for id, r := range ranks {
		score := fuse(r, rrfK)
		scored = append(scored, Scored{ChunkID: id, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func fuse(ranks [3]int, rrfK int) float64 {
	weights := [3]float64{pseudonymW, lexicalW, vectorW}
	var score float64
	for i, r := range ranks {
		if r == 0 {
			r = missingRank
		}
		score += weights[i] / float64(rrfK+r)
	}
	return score
}

func uniquePseudonyms(text string) []string {
	matches := pseudonymRe.FindAllString(text, -1)
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// AdaptiveTopK computes the retrieval breadth for a request given the
// context budget already consumed by history, the new prompt, and fixed
// overhead, per the adaptive sizing rule.
func AdaptiveTopK(contextWindow, historyTokens, promptTokens, configuredCap int) int {
	overhead := 500 + historyTokens + promptTokens + 1000
	maxTokens := int(0.8 * float64(contextWindow))
	budget := maxTokens - overhead
	if budget < 1000 {
		budget = 1000
	}
	topK := budget / 512
	if topK < 3 {
		topK = 3
	}
	if topK > configuredCap {
		topK = configuredCap
	}
	return topK
}
