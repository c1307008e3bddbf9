package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/Nisrin888/blinder/internal/cache"
)

// EmbeddingDimensions is the fixed dense vector width produced by Embed.
const EmbeddingDimensions = 384

// EmbeddingModel is the pluggable interface for the text-embedding
// producer. The core ships only a deterministic local fallback; a real
// transformer-backed client can be substituted without touching the
// chunker.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder wraps an EmbeddingModel with a content-addressed cache so
// identical blinded chunk text is never re-embedded within a deployment.
type Embedder struct {
	model EmbeddingModel
	store cache.Store
}

// NewEmbedder builds an Embedder over model, caching results in store.
func NewEmbedder(model EmbeddingModel, store cache.Store) *Embedder {
	return &Embedder{model: model, store: store}
}

// Embed returns the embedding vector for text, consulting the cache
// first and populating it on a miss.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentHash(text)
	if cached, ok := e.store.Get(key); ok {
		return decodeVector(cached), nil
	}

	vecs, err := e.model.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	vec := vecs[0]
	e.store.Set(key, encodeVector(vec))
	return vec, nil
}

// EmbedBatch embeds up to 64 texts per call, consulting the cache for
// each before falling through to the model for the remainder.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	const maxBatch = 64
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := contentHash(t)
		if cached, ok := e.store.Get(key); ok {
			results[i] = decodeVector(cached)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	for start := 0; start < len(missTexts); start += maxBatch {
		end := start + maxBatch
		if end > len(missTexts) {
			end = len(missTexts)
		}
		vecs, err := e.model.Embed(ctx, missTexts[start:end])
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			idx := missIdx[start+j]
			results[idx] = vec
			e.store.Set(contentHash(missTexts[start+j]), encodeVector(vec))
		}
	}
	return results, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EncodeVector packs a float32 vector into little-endian bytes, for
// storage in a cache or database blob column.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector reverses EncodeVector.
func DecodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func encodeVector(vec []float32) []byte { return EncodeVector(vec) }
func decodeVector(buf []byte) []float32 { return DecodeVector(buf) }

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, or 0 if either is zero-length or zero-norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize L2-normalises a vector in place.
func Normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
