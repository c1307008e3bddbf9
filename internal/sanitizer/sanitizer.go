// Package sanitizer normalises text and detects prompt-injection, jailbreak,
// homoglyph, and delimiter-injection threats before the text is ever handed
// to the detector or the LLM.
//
// Sanitize is pure and idempotent: running it twice on the same input
// produces the same cleaned text and the same threat set on the second pass.
package sanitizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Severity levels for a detected threat.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Reserved delimiters used to wrap document content sent to the LLM. Their
// presence in user-supplied text is itself a high-severity threat.
const (
	BeginDelimiter = "### BEGIN DOCUMENT ###"
	EndDelimiter   = "### END DOCUMENT ###"
)

// Threat describes one detected issue in a piece of text.
type Threat struct {
	ThreatType     string `json:"threat_type"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	MatchedPattern string `json:"matched_pattern"`
}

// Result is the outcome of running Sanitize on a text.
type Result struct {
	IsSafe      bool
	Threats     []Threat
	CleanedText string
}

type injectionPattern struct {
	re          *regexp.Regexp
	severity    string
	description string
}

var injectionPatterns = []injectionPattern{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`), SeverityHigh, "Attempt to override system instructions"},
	{regexp.MustCompile(`(?i)ignore\s+all\s+prior`), SeverityHigh, "Attempt to override prior instructions"},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?above`), SeverityHigh, "Attempt to disregard above context"},
	{regexp.MustCompile(`(?i)repeat\s+your\s+system\s+prompt`), SeverityHigh, "Attempt to extract system prompt"},
	{regexp.MustCompile(`(?i)what\s+are\s+your\s+instructions`), SeverityHigh, "Attempt to extract system instructions"},
	{regexp.MustCompile(`(?i)print\s+your\s+prompt`), SeverityHigh, "Attempt to extract prompt"},
	{regexp.MustCompile(`(?i)you\s+are\s+now\b`), SeverityMedium, "Persona override attempt"},
	{regexp.MustCompile(`(?i)act\s+as\s+if`), SeverityMedium, "Persona override attempt"},
	{regexp.MustCompile(`(?i)pretend\s+you\s+are`), SeverityMedium, "Persona override attempt"},
	{regexp.MustCompile(`(?i)do\s+anything\s+now`), SeverityHigh, "DAN jailbreak attempt"},
	{regexp.MustCompile(`(?i)developer\s+mode`), SeverityHigh, "Developer mode jailbreak attempt"},
	{regexp.MustCompile(`(?i)\bjailbreak\b`), SeverityHigh, "Explicit jailbreak keyword"},
	{regexp.MustCompile(`\bDAN\b`), SeverityMedium, "Possible DAN jailbreak reference"},
}

type homoglyph struct {
	latin     rune
	lookalike rune
	script    string
}

var homoglyphs = []homoglyph{
	{'a', 'а', "Cyrillic"}, {'c', 'с', "Cyrillic"}, {'e', 'е', "Cyrillic"},
	{'o', 'о', "Cyrillic"}, {'p', 'р', "Cyrillic"}, {'x', 'х', "Cyrillic"},
	{'y', 'у', "Cyrillic"}, {'s', 'ѕ', "Cyrillic"}, {'i', 'і', "Cyrillic"},
	{'A', 'А', "Cyrillic"}, {'B', 'В', "Cyrillic"}, {'C', 'С', "Cyrillic"},
	{'E', 'Е', "Cyrillic"}, {'H', 'Н', "Cyrillic"}, {'K', 'К', "Cyrillic"},
	{'M', 'М', "Cyrillic"}, {'O', 'О', "Cyrillic"}, {'P', 'Р', "Cyrillic"},
	{'T', 'Т', "Cyrillic"}, {'X', 'Х', "Cyrillic"},
	{'o', 'ο', "Greek"}, {'v', 'ν', "Greek"},
}

var invisibleChars = map[rune]bool{
	'​': true, '‌': true, '‍': true, '﻿': true,
}

var formatCharsKeep = map[rune]bool{'­': true}

var latinRe = regexp.MustCompile(`[a-zA-Z]`)

func isBidi(r rune) bool {
	return (r >= 0x202A && r <= 0x202E) || (r >= 0x2066 && r <= 0x2069)
}

func isTag(r rune) bool {
	return r >= 0xE0001 && r <= 0xE007F
}

// Sanitize runs the full pipeline: NFKC normalisation and invisible-char
// stripping, homoglyph detection against the original text, then
// injection and delimiter-injection detection against the cleaned text.
func Sanitize(text string) Result {
	var threats []Threat

	cleaned := stripUnicodeThreats(text)

	threats = append(threats, detectHomoglyphs(text)...)
	threats = append(threats, detectInjection(cleaned)...)
	threats = append(threats, detectDelimiterInjection(cleaned)...)

	isSafe := true
	for _, t := range threats {
		if t.Severity == SeverityHigh {
			isSafe = false
			break
		}
	}

	return Result{IsSafe: isSafe, Threats: threats, CleanedText: cleaned}
}

func stripUnicodeThreats(text string) string {
	normalized := norm.NFKC.String(text)

	out := make([]rune, 0, len(normalized))
	for _, ch := range normalized {
		if invisibleChars[ch] {
			continue
		}
		if isBidi(ch) {
			continue
		}
		if isTag(ch) {
			continue
		}
		if unicode.Is(unicode.Cf, ch) && !formatCharsKeep[ch] {
			continue
		}
		out = append(out, ch)
	}
	return string(out)
}

func detectHomoglyphs(text string) []Threat {
	if !latinRe.MatchString(text) {
		return nil
	}

	var found []Threat
	seen := make(map[rune]bool)
	for _, h := range homoglyphs {
		if !seen[h.lookalike] && containsRune(text, h.lookalike) {
			seen[h.lookalike] = true
			found = append(found, Threat{
				ThreatType: "homoglyph",
				Description: fmt.Sprintf("%s character U+%04X resembling Latin '%c' found in text",
					h.script, h.lookalike, h.latin),
				Severity:       SeverityMedium,
				MatchedPattern: string(h.lookalike),
			})
		}
	}
	return found
}

func containsRune(s string, r rune) bool {
	for _, ch := range s {
		if ch == r {
			return true
		}
	}
	return false
}

func detectInjection(text string) []Threat {
	var threats []Threat
	for _, p := range injectionPatterns {
		if match := p.re.FindString(text); match != "" {
			threats = append(threats, Threat{
				ThreatType:     "prompt_injection",
				Description:    p.description,
				Severity:       p.severity,
				MatchedPattern: match,
			})
		}
	}
	return threats
}

func detectDelimiterInjection(text string) []Threat {
	var threats []Threat
	for _, d := range []string{BeginDelimiter, EndDelimiter} {
		if strings.Contains(text, d) {
			threats = append(threats, Threat{
				ThreatType:     "delimiter_injection",
				Description:    fmt.Sprintf("Text contains reserved delimiter: %s", d),
				Severity:       SeverityHigh,
				MatchedPattern: d,
			})
		}
	}
	return threats
}

// WrapDocumentContent wraps text in the reserved delimiters for inclusion
// in an LLM context message.
func WrapDocumentContent(text string) string {
	return BeginDelimiter + "\n" + text + "\n" + EndDelimiter
}
