// Package promptfilter suppresses detector spans in user prompts that are
// actually analytical parameters — thresholds, dates used as filters,
// locations used as grouping dimensions — rather than real PII.
package promptfilter

import (
	"regexp"
	"strings"

	"github.com/Nisrin888/blinder/internal/detector"
)

const contextWindow = 60
const personProximityWindow = 80

var alwaysPII = map[string]bool{
	"PERSON": true, "EMAIL": true, "PHONE": true, "SSN": true,
	"CREDIT_CARD": true, "BANK_ACCOUNT": true, "IBAN": true,
	"DRIVER_LICENSE": true, "PASSPORT": true, "IP_ADDRESS": true,
	"MEDICAL_LICENSE": true,
}

var contextDependent = map[string]bool{
	"DATE": true, "DATE_TIME": true, "LOCATION": true, "ORG": true, "NORP": true,
}

var (
	thresholdRe   = regexp.MustCompile(`(?i)\b(over|under|above|below|between|more than|less than|at least|at most|greater than|fewer than)\b`)
	aggregationRe = regexp.MustCompile(`(?i)\b(how many|count|average|avg|mean|top|sum|total|maximum|minimum|max|min)\b`)
	filterRe      = regexp.MustCompile(`(?i)\b(group by|in|from|per|filter|where)\b`)
	rangeRe       = regexp.MustCompile(`(?i)\b(between|range|from\s+.+\s+to)\b`)
	currencyRe    = regexp.MustCompile(`[$€£]`)
	percentRe     = regexp.MustCompile(`%`)
	yearRe        = regexp.MustCompile(`^(19|20)\d{2}$`)
	digitRe       = regexp.MustCompile(`\d`)
)

func localContext(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func isStandaloneNumber(s string) bool {
	stripped := strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "%", "", "K", "", "M", "").Replace(s)
	stripped = strings.TrimPrefix(strings.TrimSpace(stripped), "-")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			if r != '.' {
				return false
			}
		}
	}
	return true
}

func personNearby(text string, start, end int, spans []detector.Span) bool {
	lo := start - personProximityWindow
	hi := end + personProximityWindow
	for _, s := range spans {
		if s.Label != "PERSON" {
			continue
		}
		if s.Start < hi && s.End > lo {
			return true
		}
	}
	return false
}

// Filter suppresses false-positive spans from a user prompt's detector
// output and returns the kept subset.
func Filter(text string, spans []detector.Span) []detector.Span {
	var kept []detector.Span
	for _, s := range spans {
		if alwaysPII[s.Label] {
			kept = append(kept, s)
			continue
		}
		if !contextDependent[s.Label] {
			kept = append(kept, s)
			continue
		}
		if shouldSuppress(text, s, spans) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func shouldSuppress(text string, s detector.Span, all []detector.Span) bool {
	ctx := localContext(text, s.Start, s.End)
	hasThreshold := thresholdRe.MatchString(ctx)
	hasAggregation := aggregationRe.MatchString(ctx)
	hasFilter := filterRe.MatchString(ctx)
	hasRange := rangeRe.MatchString(ctx)
	hasCurrency := currencyRe.MatchString(ctx)
	hasPercent := percentRe.MatchString(ctx)

	switch s.Label {
	case "DATE", "DATE_TIME":
		if isStandaloneNumber(s.Text) {
			if hasThreshold || hasAggregation || hasCurrency || hasPercent || hasRange {
				return true
			}
		}
		if yearRe.MatchString(s.Text) {
			if hasFilter && !personNearby(text, s.Start, s.End, all) {
				return true
			}
		}
		if (hasFilter || hasRange) && !personNearby(text, s.Start, s.End, all) {
			return true
		}
		return false
	case "LOCATION":
		if !digitRe.MatchString(s.Text) && (hasFilter || hasAggregation) {
			return true
		}
		return false
	case "ORG":
		if (hasAggregation || hasFilter) && !personNearby(text, s.Start, s.End, all) {
			return true
		}
		return false
	default:
		return false
	}
}
