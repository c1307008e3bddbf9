// Package chunker splits blinded prose or tabular text into overlapping
// windows suitable for embedding and retrieval, and computes an
// approximate token count for each chunk using a real BPE tokenizer.
package chunker

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultChunkSize    = 512
	defaultChunkOverlap = 50
	tabularSeparator    = " | "
)

// Chunk is one retrievable fragment of a processed document.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

var encoding = mustEncoding()

func mustEncoding() *tiktoken.Tiktoken {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return enc
}

// CountTokens returns a precise BPE token count for text, falling back to
// a word-count estimate if the encoder failed to initialise.
func CountTokens(text string) int {
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}

// IsTabular reports whether text looks like a pipe-delimited table: at
// least 2 of its first 6 lines contain at least 2 " | " separators.
func IsTabular(text string) bool {
	lines := strings.Split(text, "\n")
	limit := len(lines)
	if limit > 6 {
		limit = 6
	}
	matches := 0
	for i := 0; i < limit; i++ {
		if strings.Count(lines[i], tabularSeparator) >= 2 {
			matches++
		}
	}
	return matches >= 2
}

// ChunkProse splits text into sliding windows of chunkSize tokens with
// chunkOverlap tokens of overlap between consecutive windows.
func ChunkProse(text string, chunkSize, chunkOverlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []Chunk
	step := chunkSize - chunkOverlap
	for start := 0; start < len(tokens); start += step {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		body := strings.Join(tokens[start:end], " ")
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       body,
			TokenCount: CountTokens(body),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// ChunkTabular splits a pipe-delimited table into chunks that each carry
// the header line so column context survives retrieval. Data lines are
// packed up to chunkSize minus the header's token count, floored at
// chunkSize/2 so an oversized header can't starve the data budget.
func ChunkTabular(text string, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) == 0 {
		return nil
	}
	header := lines[0]
	headerTokens := CountTokens(header)
	budget := chunkSize - headerTokens
	if budget < chunkSize/2 {
		budget = chunkSize / 2
	}

	var chunks []Chunk
	var buf []string
	bufTokens := 0
	flush := func() {
		if len(buf) == 0 {
			return
		}
		body := header + "\n" + strings.Join(buf, "\n")
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       body,
			TokenCount: headerTokens + bufTokens,
		})
		buf = nil
		bufTokens = 0
	}

	for _, line := range lines[1:] {
		lineTokens := CountTokens(line)
		if bufTokens+lineTokens > budget && len(buf) > 0 {
			flush()
		}
		buf = append(buf, line)
		bufTokens += lineTokens
	}
	flush()
	return chunks
}

// Split dispatches to ChunkTabular or ChunkProse based on IsTabular.
func Split(text string, chunkSize, chunkOverlap int) []Chunk {
	if IsTabular(text) {
		return ChunkTabular(text, chunkSize)
	}
	return ChunkProse(text, chunkSize, chunkOverlap)
}
