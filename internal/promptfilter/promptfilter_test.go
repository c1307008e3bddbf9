package promptfilter

import (
	"testing"

	"github.com/Nisrin888/blinder/internal/detector"
)

func TestFilterSuppressesThresholdNumbers(t *testing.T) {
	text := "how many records from 2022 are over 60?"
	spans := []detector.Span{
		{Text: "2022", Label: "DATE", Start: 22, End: 26},
		{Text: "60", Label: "DATE", Start: 36, End: 38},
	}
	kept := Filter(text, spans)
	if len(kept) != 0 {
		t.Fatalf("expected both spans suppressed, got %+v", kept)
	}
}

func TestFilterKeepsAlwaysPII(t *testing.T) {
	text := "contact john@example.com"
	spans := []detector.Span{{Text: "john@example.com", Label: "EMAIL", Start: 8, End: 24}}
	kept := Filter(text, spans)
	if len(kept) != 1 {
		t.Fatalf("expected EMAIL to be kept, got %+v", kept)
	}
}

func TestFilterKeepsYearNearPerson(t *testing.T) {
	text := "list all clients filed in 2022 with John Smith"
	spans := []detector.Span{
		{Text: "2022", Label: "DATE", Start: 26, End: 30},
		{Text: "John Smith", Label: "PERSON", Start: 36, End: 46},
	}
	kept := Filter(text, spans)
	found := false
	for _, s := range kept {
		if s.Label == "DATE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected year kept when PERSON is nearby, got %+v", kept)
	}
}

func TestFilterSuppressesLocationInAggregation(t *testing.T) {
	text := "how many clients are from California?"
	spans := []detector.Span{{Text: "California", Label: "LOCATION", Start: 26, End: 36}}
	kept := Filter(text, spans)
	if len(kept) != 0 {
		t.Fatalf("expected LOCATION suppressed, got %+v", kept)
	}
}
