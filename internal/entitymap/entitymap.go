// Package entitymap canonicalises entity spans across documents and
// prompts: it never creates new vault entries, only re-points a span's
// surface text to an existing pseudonym when one plausibly refers to the
// same entity.
package entitymap

import (
	"strings"

	"github.com/Nisrin888/blinder/internal/detector"
	"github.com/Nisrin888/blinder/internal/vault"
)

var titles = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true, "dr": true,
	"prof": true, "judge": true, "justice": true, "hon": true, "sr": true, "jr": true,
}

// normalize lowercases, strips a leading honorific title, and trims
// surrounding punctuation/whitespace.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	fields := strings.SplitN(s, " ", 2)
	if len(fields) == 2 {
		candidate := strings.TrimSuffix(fields[0], ".")
		if titles[candidate] {
			s = strings.TrimSpace(fields[1])
		}
	}
	return strings.Trim(s, ".,;:!? \t\n")
}

func tokenOverlap(a, b string) int {
	setA := make(map[string]bool)
	for _, t := range strings.Fields(a) {
		setA[t] = true
	}
	count := 0
	seen := make(map[string]bool)
	for _, t := range strings.Fields(b) {
		if setA[t] && !seen[t] {
			seen[t] = true
			count++
		}
	}
	return count
}

// ResolvePromptEntities links each span to an existing vault entry by
// exact match, normalised-title match, or token overlap (same entity
// type only), registering the surface text as an alias on a match. Spans
// with no match are returned unchanged for the caller to treat as new.
func ResolvePromptEntities(spans []detector.Span, v *vault.Vault) []detector.Span {
	entries := v.Entries()

	for i, s := range spans {
		if _, ok := v.GetPseudonym(s.Text); ok {
			continue // exact match already resolved
		}

		normSpan := normalize(s.Text)
		var matchedPseudonym string

		for pseudonym, entry := range entries {
			if entry.EntityType != s.Label {
				continue
			}
			normEntry := normalize(entry.RealValue)
			if normEntry == normSpan {
				matchedPseudonym = pseudonym
				break
			}
			for _, alias := range entry.Aliases {
				if normalize(alias) == normSpan {
					matchedPseudonym = pseudonym
					break
				}
			}
			if matchedPseudonym != "" {
				break
			}
			if tokenOverlap(normEntry, normSpan) >= 2 {
				matchedPseudonym = pseudonym
				break
			}
		}

		if matchedPseudonym != "" {
			_ = v.AddAlias(matchedPseudonym, s.Text)
		}
		spans[i] = s
	}

	return spans
}
