package retriever

import (
	"context"
	"testing"
)

type fakeSource struct {
	lexical    []string
	vector     []string
	containing map[string]int
}

func (f fakeSource) LexicalRank(_ context.Context, _ string, _ string, _ int) ([]string, error) {
	return f.lexical, nil
}
func (f fakeSource) VectorRank(_ context.Context, _ string, _ []float32, _ int) ([]string, error) {
	return f.vector, nil
}
func (f fakeSource) ChunksContaining(_ context.Context, _ string, _ []string) (map[string]int, error) {
	return f.containing, nil
}

func TestHybridSearchPseudonymDominance(t *testing.T) {
	src := fakeSource{
		lexical:    []string{"B"},      // A rank 51 (missing), B rank 1
		vector:     []string{"A", "B"}, // A rank 1, B rank 2
		containing: map[string]int{"A": 1},
	}
	// A: pseudonym rank 1, lexical missing, vector rank 1
	// B: pseudonym missing, lexical rank 1, vector rank 2
	results, err := HybridSearch(context.Background(), src, "sess", "[PERSON_1] settlement", []float32{1, 0}, 10, 60)
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 scored results, got %d", len(results))
	}
	if results[0].ChunkID != "A" {
		t.Fatalf("expected pseudonym-bearing chunk A to rank first, got %+v", results)
	}
}

func TestAdaptiveTopKRespectsCapAndFloor(t *testing.T) {
	topK := AdaptiveTopK(8192, 500, 200, 10)
	if topK < 3 || topK > 10 {
		t.Fatalf("expected topK within [3,10], got %d", topK)
	}

	tiny := AdaptiveTopK(1000, 5000, 5000, 10)
	if tiny != 3 {
		t.Fatalf("expected floor of 3 for a tiny budget, got %d", tiny)
	}
}

func TestUniquePseudonymsDedups(t *testing.T) {
	got := uniquePseudonyms("[PERSON_1] met [PERSON_1] and [ORG_2]")
	if len(got) != 2 {
		t.Fatalf("expected 2 unique pseudonyms, got %v", got)
	}
}
