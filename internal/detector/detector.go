// Package detector finds spans of personally identifying or otherwise
// sensitive text using two gates: a fast pattern-based gate (Gate A) that
// always runs, and a slower model-based gate (Gate B, NER) that can be
// skipped. The two gates run concurrently when both are enabled, and their
// output is merged by discarding overlapping lower-priority spans.
package detector

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Span is one detected entity occurrence.
type Span struct {
	Text       string
	Label      string
	Start      int
	End        int
	Confidence float64
	Gate       string // "A" or "B"
}

const maxChunkChars = 5000

type patternRule struct {
	label      string
	re         *regexp.Regexp
	confidence float64
}

// Gate A rules: fixed regex/dictionary patterns, no model dependency.
var gateARules = []patternRule{
	{"EMAIL", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), 0.95},
	{"PHONE", regexp.MustCompile(`\b(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`), 0.85},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), 0.95},
	{"CREDIT_CARD", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), 0.9},
	{"IP_ADDRESS", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), 0.8},
	{"URL", regexp.MustCompile(`https?://[^\s]+`), 0.9},
	{"IBAN", regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`), 0.85},
	{"BANK_ACCOUNT", regexp.MustCompile(`\b\d{8,17}\b`), 0.5},
	{"DRIVER_LICENSE", regexp.MustCompile(`\b[A-Z]{1,2}\d{6,8}\b`), 0.6},
	{"PASSPORT", regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`), 0.55},
	{"MEDICAL_LICENSE", regexp.MustCompile(`\bMD-\d{6,8}\b`), 0.85},
	{"LEGAL_CASE_NUMBER", regexp.MustCompile(`\b\d{2}-[A-Z]{2}-\d{5}\b`), 0.85},
}

// NERModel is the pluggable interface for Gate B. The core ships a
// dictionary/heuristic fallback; a real model client can be substituted
// without touching the detector.
type NERModel interface {
	Detect(ctx context.Context, text string) ([]Span, error)
}

// Detect runs Gate A, and Gate B unless skipNER is true, merging their
// output. When ner is nil, Gate B is skipped regardless of skipNER.
func Detect(ctx context.Context, text string, ner NERModel, skipNER bool) []Span {
	var gateASpans, gateBSpans []Span
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		gateASpans = runGateA(text)
	}()

	if !skipNER && ner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			spans, err := ner.Detect(ctx, text)
			if err == nil {
				gateBSpans = spans
			}
		}()
	}

	wg.Wait()

	all := make([]Span, 0, len(gateASpans)+len(gateBSpans))
	all = append(all, gateASpans...)
	all = append(all, gateBSpans...)
	return Merge(all)
}

// runGateA chunks text on line boundaries at up to 5000 chars per window
// and applies the fixed regex table, translating offsets back to absolute.
func runGateA(text string) []Span {
	var spans []Span
	for _, chunk := range chunkByLines(text, maxChunkChars) {
		for _, rule := range gateARules {
			for _, loc := range rule.re.FindAllStringIndex(text[chunk.start:chunk.end], -1) {
				absStart := chunk.start + loc[0]
				absEnd := chunk.start + loc[1]
				spans = append(spans, Span{
					Text:       text[absStart:absEnd],
					Label:      rule.label,
					Start:      absStart,
					End:        absEnd,
					Confidence: rule.confidence,
					Gate:       "A",
				})
			}
		}
	}
	return spans
}

type window struct{ start, end int }

// chunkByLines splits text into windows of at most maxChars characters,
// ending each window after the last newline inside it. A window with no
// newline after its first character is cut at exactly maxChars, so a match
// on such a line can straddle the cut.
func chunkByLines(text string, maxChars int) []window {
	if len(text) <= maxChars {
		return []window{{0, len(text)}}
	}
	var windows []window
	start := 0
	for start < len(text) {
		end := start + maxChars
		if end >= len(text) {
			windows = append(windows, window{start, len(text)})
			break
		}
		nl := strings.LastIndexByte(text[start:end], '\n')
		if nl <= 0 {
			windows = append(windows, window{start, end})
			start = end
			continue
		}
		windows = append(windows, window{start, start + nl + 1})
		start = start + nl + 1
	}
	return windows
}

// Merge sorts spans by (-length, -confidence), keeps a span only if it
// does not overlap any already-kept span, then re-sorts by start offset.
func Merge(spans []Span) []Span {
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		li, lj := sorted[i].End-sorted[i].Start, sorted[j].End-sorted[j].Start
		if li != lj {
			return li > lj
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var kept []Span
	for _, s := range sorted {
		overlaps := false
		for _, k := range kept {
			if s.Start < k.End && s.End > k.Start {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}
