package entitymap

import (
	"testing"

	"github.com/Nisrin888/blinder/internal/detector"
	"github.com/Nisrin888/blinder/internal/vault"
)

func TestNormalizeStripsTitle(t *testing.T) {
	if got := normalize("Dr. John Smith"); got != "john smith" {
		t.Fatalf("want %q got %q", "john smith", got)
	}
}

func TestResolvePromptEntitiesExactMatch(t *testing.T) {
	v := vault.New(make([]byte, 32))
	v.AddEntity("John Smith", "PERSON")

	spans := []detector.Span{{Text: "John Smith", Label: "PERSON", Start: 0, End: 10}}
	ResolvePromptEntities(spans, v)

	p, ok := v.GetPseudonym("John Smith")
	if !ok || p != "[PERSON_1]" {
		t.Fatalf("expected exact match preserved, got %s ok=%v", p, ok)
	}
}

func TestResolvePromptEntitiesNormalizedTitleMatch(t *testing.T) {
	v := vault.New(make([]byte, 32))
	pseudonym := v.AddEntity("John Smith", "PERSON")

	spans := []detector.Span{{Text: "Dr. John Smith", Label: "PERSON", Start: 0, End: 14}}
	ResolvePromptEntities(spans, v)

	got, ok := v.GetPseudonym("Dr. John Smith")
	if !ok || got != pseudonym {
		t.Fatalf("expected alias to resolve to %s, got %s ok=%v", pseudonym, got, ok)
	}
}

func TestResolvePromptEntitiesTypeMismatchBlocks(t *testing.T) {
	v := vault.New(make([]byte, 32))
	v.AddEntity("Acme Corp", "ORG")

	spans := []detector.Span{{Text: "Acme Corp.", Label: "PERSON", Start: 0, End: 10}}
	ResolvePromptEntities(spans, v)

	if _, ok := v.GetPseudonym("Acme Corp."); ok {
		t.Fatalf("unexpected match")
	}
}

func TestResolvePromptEntitiesTokenOverlap(t *testing.T) {
	v := vault.New(make([]byte, 32))
	pseudonym := v.AddEntity("John Michael Smith", "PERSON")

	spans := []detector.Span{{Text: "John Smith", Label: "PERSON", Start: 0, End: 10}}
	ResolvePromptEntities(spans, v)

	got, ok := v.GetPseudonym("John Smith")
	if !ok || got != pseudonym {
		t.Fatalf("expected token-overlap match to %s, got %s ok=%v", pseudonym, got, ok)
	}
}
