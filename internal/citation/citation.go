// Package citation scores document chunks against an LLM response to
// identify supporting sources, either by matching inline [N] markers
// the model placed itself or, failing that, by BM25-lite keyword
// scoring over the source chunks.
package citation

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Chunk is a scoreable unit of source text with its origin metadata.
type Chunk struct {
	DocumentID string
	Filename   string
	ChunkIndex int
	Text       string // blinded text
}

// Citation links part of a response to a source chunk.
type Citation struct {
	DocumentID     string
	Filename       string
	ChunkIndex     int
	Score          float64
	SnippetBlinded string
	Marker         int // inline [N] marker; 0 means BM25-only, no marker
}

const (
	defaultMaxCitations = 3
	defaultMinScore     = 0.05
	defaultSnippetWords = 40
	defaultChunkSize    = 512
	defaultChunkOverlap = 50
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true, "with": true,
	"was": true, "are": true, "not": true, "but": true, "has": true, "had": true,
	"have": true, "been": true, "from": true, "they": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "can": true, "its": true, "his": true,
	"her": true, "their": true, "our": true, "all": true, "any": true, "each": true,
	"one": true, "two": true, "also": true, "than": true, "then": true, "when": true,
	"where": true, "which": true, "who": true, "whom": true, "how": true, "what": true,
	"into": true, "out": true,
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)
var markerRe = regexp.MustCompile(`\[(\d+)\]`)

func tokenize(text string) []string {
	var out []string
	for _, t := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if len(t) > 2 && !stopwords[t] {
			out = append(out, t)
		}
	}
	return out
}

// Extract scores each chunk against the response with BM25-lite IDF
// weighting and returns the top-scoring, deduplicated-by-document
// citations above the minimum score threshold.
func Extract(responseText string, documents []Chunk) []Citation {
	allChunks := prepareChunks(documents)
	if len(allChunks) == 0 {
		return nil
	}
	responseTokens := tokenize(responseText)
	if len(responseTokens) == 0 {
		return nil
	}

	docCount := len(allChunks)
	docFreq := make(map[string]int)
	chunkTokenSets := make([]map[string]bool, len(allChunks))
	for i, c := range allChunks {
		set := make(map[string]bool)
		for _, t := range tokenize(c.Text) {
			set[t] = true
		}
		chunkTokenSets[i] = set
		for t := range set {
			docFreq[t]++
		}
	}

	type scored struct {
		score float64
		idx   int
	}
	var results []scored
	for idx, set := range chunkTokenSets {
		var score float64
		for _, t := range responseTokens {
			if set[t] {
				df := docFreq[t]
				idf := math.Log((float64(docCount)-float64(df)+0.5)/(float64(df)+0.5) + 1)
				score += idf
			}
		}
		results = append(results, scored{score, idx})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	maxScore := results[0].score
	if maxScore <= 0 {
		maxScore = 1.0
	}

	seenDocs := make(map[string]bool)
	var citations []Citation
	for _, r := range results {
		if len(citations) >= defaultMaxCitations {
			break
		}
		chunk := allChunks[r.idx]
		normalized := r.score / maxScore
		if normalized < defaultMinScore {
			break
		}
		if seenDocs[chunk.DocumentID] {
			continue
		}
		seenDocs[chunk.DocumentID] = true

		citations = append(citations, Citation{
			DocumentID:     chunk.DocumentID,
			Filename:       chunk.Filename,
			ChunkIndex:     chunk.ChunkIndex,
			Score:          roundTo(normalized, 3),
			SnippetBlinded: extractSnippet(chunk.Text, responseTokens),
		})
	}
	return citations
}

// SourceMeta identifies one numbered source available to the model for
// inline citation.
type SourceMeta struct {
	Index      int
	DocumentID string
	Filename   string
}

// ExtractInline finds [N] markers the model placed in its response and
// resolves each to its corresponding source, scoring relevance by plain
// token overlap rather than IDF (there's no useful document-frequency
// signal over a handful of numbered sources).
func ExtractInline(responseText string, sources []SourceMeta, sourceTexts []string) []Citation {
	markersFound := make(map[int]bool)
	for _, m := range markerRe.FindAllStringSubmatch(responseText, -1) {
		n := 0
		for _, ch := range m[1] {
			n = n*10 + int(ch-'0')
		}
		markersFound[n] = true
	}

	byIndex := make(map[int]SourceMeta)
	for _, s := range sources {
		byIndex[s.Index] = s
	}

	var nums []int
	for n := range markersFound {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	responseTokens := tokenize(responseText)
	responseTokenSet := make(map[string]bool)
	for _, t := range responseTokens {
		responseTokenSet[t] = true
	}

	var citations []Citation
	for _, n := range nums {
		meta, ok := byIndex[n]
		if !ok {
			continue
		}
		srcIdx := n - 1
		if srcIdx < 0 || srcIdx >= len(sourceTexts) {
			continue
		}
		sourceText := sourceTexts[srcIdx]

		snippet := extractSnippet(sourceText, responseTokens)

		sourceTokenSet := make(map[string]bool)
		for _, t := range tokenize(sourceText) {
			sourceTokenSet[t] = true
		}
		overlap := 0
		for t := range responseTokenSet {
			if sourceTokenSet[t] {
				overlap++
			}
		}
		total := len(responseTokenSet)
		if total == 0 {
			total = 1
		}
		score := float64(overlap) / float64(total)
		if score > 1.0 {
			score = 1.0
		}

		citations = append(citations, Citation{
			DocumentID:     meta.DocumentID,
			Filename:       meta.Filename,
			ChunkIndex:     0,
			Score:          roundTo(score, 3),
			SnippetBlinded: snippet,
			Marker:         n,
		})
	}
	return citations
}

func prepareChunks(documents []Chunk) []Chunk {
	var result []Chunk
	for _, doc := range documents {
		words := strings.Fields(doc.Text)
		if len(words) <= defaultChunkSize {
			result = append(result, doc)
			continue
		}
		start := 0
		ci := 0
		for start < len(words) {
			end := start + defaultChunkSize
			clamped := end
			if clamped > len(words) {
				clamped = len(words)
			}
			result = append(result, Chunk{
				DocumentID: doc.DocumentID,
				Filename:   doc.Filename,
				ChunkIndex: ci,
				Text:       strings.Join(words[start:clamped], " "),
			})
			ci++
			if clamped == len(words) {
				break
			}
			start = end - defaultChunkOverlap
		}
	}
	return result
}

func extractSnippet(chunkText string, responseTokens []string) string {
	words := strings.Fields(chunkText)
	if len(words) <= defaultSnippetWords {
		return chunkText
	}

	responseSet := make(map[string]bool)
	for _, t := range responseTokens {
		responseSet[t] = true
	}

	bestScore := -1
	bestStart := 0
	for i := 0; i <= len(words)-defaultSnippetWords; i++ {
		window := words[i : i+defaultSnippetWords]
		overlap := 0
		seen := make(map[string]bool)
		for _, w := range window {
			cleaned := strings.ToLower(strings.Trim(w, ".,;:!?\"'()[]"))
			if seen[cleaned] {
				continue
			}
			seen[cleaned] = true
			if responseSet[cleaned] {
				overlap++
			}
		}
		if overlap > bestScore {
			bestScore = overlap
			bestStart = i
		}
	}

	snippet := strings.Join(words[bestStart:bestStart+defaultSnippetWords], " ")
	if bestStart > 0 {
		snippet = "..." + snippet
	}
	if bestStart+defaultSnippetWords < len(words) {
		snippet += "..."
	}
	return snippet
}

func roundTo(v float64, places int) float64 {
	mul := math.Pow(10, float64(places))
	return math.Round(v*mul) / mul
}
