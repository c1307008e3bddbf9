package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/Nisrin888/blinder/internal/cache"
)

func TestIsTabularDetectsPipeDelimited(t *testing.T) {
	text := "age | name\n65 | Alice\n45 | Bob\n"
	if !IsTabular(text) {
		t.Fatalf("expected tabular detection to succeed")
	}
}

func TestIsTabularRejectsProse(t *testing.T) {
	if IsTabular("This is a plain paragraph of prose without pipes.") {
		t.Fatalf("expected prose to not be detected as tabular")
	}
}

func TestChunkProseOverlap(t *testing.T) {
	words := make([]string, 0, 600)
	for i := 0; i < 600; i++ {
		words = append(words, "word")
	}
	chunks := ChunkProse(strings.Join(words, " "), 512, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for 600 words, got %d", len(chunks))
	}
}

func TestChunkTabularKeepsHeader(t *testing.T) {
	var lines []string
	lines = append(lines, "age | name")
	for i := 0; i < 50; i++ {
		lines = append(lines, "30 | [PERSON_1]")
	}
	chunks := ChunkTabular(strings.Join(lines, "\n"), 512)
	for _, c := range chunks {
		if !strings.HasPrefix(c.Text, "age | name") {
			t.Fatalf("expected every chunk to retain header, got %q", c.Text)
		}
	}
}

func TestEmbedderCachesResults(t *testing.T) {
	store := cache.NewMemoryStore()
	e := NewEmbedder(FallbackEmbeddingModel{}, store)

	v1, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v1) != len(v2) {
		t.Fatalf("expected same-length vectors from cache")
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected identical cached vector at index %d", i)
		}
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{1, 0, 0}
	if sim := CosineSimilarity(v, v); sim < 0.999 {
		t.Fatalf("expected cosine similarity ~1 for identical vectors, got %f", sim)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if sim := CosineSimilarity(a, b); sim > 0.001 || sim < -0.001 {
		t.Fatalf("expected cosine similarity ~0 for orthogonal vectors, got %f", sim)
	}
}
