// Package depseudo restores pseudonym tokens in LLM output to real
// values, and provides a streaming reassembler that holds back
// in-progress pseudonym tokens that straddle SSE chunk boundaries.
package depseudo

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Nisrin888/blinder/internal/vault"
)

var pseudonymRe = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*_\d+\]`)

var humanise = map[string]string{
	"PROF":    "the professor",
	"ARTICLE": "the article",
	"AUTHOR":  "the author",
	"COMPANY": "the company",
	"CLIENT":  "the client",
	"JUDGE":   "the judge",
}

// Restore finds every pseudonym occurrence in text, replaces it (and its
// possessive form) with the vault's real value, or with a humanised
// placeholder if the LLM hallucinated a pseudonym the vault never issued.
func Restore(text string, v *vault.Vault) string {
	matches := pseudonymRe.FindAllString(text, -1)
	if matches == nil {
		return text
	}

	seen := make(map[string]bool)
	var unique []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			unique = append(unique, m)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return len(unique[i]) > len(unique[j]) })

	result := text
	for _, pseudonym := range unique {
		replacement := resolve(pseudonym, v)
		possessive := pseudonym + "'s"
		result = strings.ReplaceAll(result, possessive, replacement+"'s")
		result = strings.ReplaceAll(result, pseudonym, replacement)
	}
	return result
}

func resolve(pseudonym string, v *vault.Vault) string {
	if real, ok := v.GetRealValue(pseudonym); ok {
		return real
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(pseudonym, "["), "]")
	idx := strings.LastIndex(inner, "_")
	if idx < 0 {
		return inner
	}
	entityType := inner[:idx]
	if h, ok := humanise[entityType]; ok {
		return h
	}
	return inner
}

// StreamBuffer reassembles a stream of text deltas, holding back a
// suffix that could be the prefix of a pseudonym token until it either
// completes or is proven not to be one.
type StreamBuffer struct {
	pending string
}

// Push appends a new delta and returns the portion that is safe to emit
// now (i.e. cannot be the prefix of a still-incoming pseudonym).
func (b *StreamBuffer) Push(delta string) string {
	combined := b.pending + delta
	safe, pending := splitSafe(combined)
	b.pending = pending
	return safe
}

// Flush returns any remaining buffered text at end of stream, unresolved
// pseudonym prefixes included verbatim.
func (b *StreamBuffer) Flush() string {
	out := b.pending
	b.pending = ""
	return out
}

// splitSafe returns (emit-now, hold-back) where hold-back is the longest
// suffix that could still become a bracket token start.
func splitSafe(s string) (string, string) {
	idx := strings.LastIndexByte(s, '[')
	if idx < 0 {
		return s, ""
	}
	candidate := s[idx:]
	if strings.ContainsRune(candidate, ']') {
		return s, ""
	}
	// candidate might still be completing; check it looks plausible
	// (only [, letters, digits, underscore so far).
	if looksLikePseudonymPrefix(candidate) {
		return s[:idx], candidate
	}
	return s, ""
}

func looksLikePseudonymPrefix(s string) bool {
	for i, r := range s {
		if i == 0 {
			if r != '[' {
				return false
			}
			continue
		}
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return true
}
