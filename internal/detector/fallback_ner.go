package detector

import (
	"context"
	"regexp"
	"strings"
)

// FallbackNER is a dictionary/heuristic implementation of NERModel, used
// when no external NER model is configured. It recognises capitalised
// runs preceded by an honorific as PERSON, a fixed set of organisation
// suffixes as ORG, known location names as LOCATION, ISO-style dates as
// DATE, and a small statute-citation shape as LEGAL_REF.
type FallbackNER struct{}

var (
	honorificPersonRe = regexp.MustCompile(
		`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof|Judge|Justice|Hon)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	capitalizedRunRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2}\b`)
	orgSuffixRe      = regexp.MustCompile(
		`\b[A-Z][A-Za-z&.,\s]*\b(?:Inc|LLC|Corp|Corporation|Ltd|Company|Co|LLP|PLC)\b\.?`)
	dateRe     = regexp.MustCompile(`\b(?:19|20)\d{2}-\d{2}-\d{2}\b|\b(?:19|20)\d{2}\b`)
	legalRefRe = regexp.MustCompile(`\b\d+\s+U\.S\.C\.?\s+§?\s*\d+\b`)
)

var knownLocations = map[string]bool{
	"New York": true, "Los Angeles": true, "Chicago": true, "Houston": true,
	"San Francisco": true, "Boston": true, "Seattle": true, "Miami": true,
	"London": true, "Paris": true, "Tokyo": true, "Berlin": true,
}

// Detect implements NERModel.
func (FallbackNER) Detect(_ context.Context, text string) ([]Span, error) {
	var spans []Span

	for _, m := range honorificPersonRe.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, Span{
			Text: text[m[2]:m[3]], Label: "PERSON",
			Start: m[2], End: m[3], Confidence: 0.80, Gate: "B",
		})
	}

	for _, m := range orgSuffixRe.FindAllStringIndex(text, -1) {
		spans = append(spans, Span{
			Text: text[m[0]:m[1]], Label: "ORG",
			Start: m[0], End: m[1], Confidence: 0.80, Gate: "B",
		})
	}

	for loc := range knownLocations {
		start := 0
		for {
			idx := strings.Index(text[start:], loc)
			if idx < 0 {
				break
			}
			abs := start + idx
			spans = append(spans, Span{
				Text: loc, Label: "LOCATION",
				Start: abs, End: abs + len(loc), Confidence: 0.80, Gate: "B",
			})
			start = abs + len(loc)
		}
	}

	for _, m := range dateRe.FindAllStringIndex(text, -1) {
		spans = append(spans, Span{
			Text: text[m[0]:m[1]], Label: "DATE",
			Start: m[0], End: m[1], Confidence: 0.80, Gate: "B",
		})
	}

	for _, m := range legalRefRe.FindAllStringIndex(text, -1) {
		spans = append(spans, Span{
			Text: text[m[0]:m[1]], Label: "LEGAL_REF",
			Start: m[0], End: m[1], Confidence: 0.80, Gate: "B",
		})
	}

	// Generic capitalised-run fallback for PERSON when no honorific
	// precedes it — lowest-priority signal, easily displaced by merge.
	for _, m := range capitalizedRunRe.FindAllStringIndex(text, -1) {
		candidate := text[m[0]:m[1]]
		if knownLocations[candidate] {
			continue
		}
		spans = append(spans, Span{
			Text: candidate, Label: "PERSON",
			Start: m[0], End: m[1], Confidence: 0.60, Gate: "B",
		})
	}

	return spans, nil
}
