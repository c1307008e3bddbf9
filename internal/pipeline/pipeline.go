// Package pipeline composes the sanitiser, detector, prompt filter, and
// entity mapper into the two ingest paths (document text, user prompt)
// the rest of the system calls into.
package pipeline

import (
	"context"
	"errors"

	"github.com/Nisrin888/blinder/internal/detector"
	"github.com/Nisrin888/blinder/internal/entitymap"
	"github.com/Nisrin888/blinder/internal/promptfilter"
	"github.com/Nisrin888/blinder/internal/sanitizer"
	"github.com/Nisrin888/blinder/internal/vault"
)

// ErrHighSeverityThreat is returned when the sanitiser finds a
// high-severity threat; the caller must not proceed to the LLM.
var ErrHighSeverityThreat = errors.New("pipeline: high severity threat detected")

// HighSeverityThreatError carries the threats that caused the abort.
type HighSeverityThreatError struct {
	Threats []sanitizer.Threat
}

func (e *HighSeverityThreatError) Error() string { return ErrHighSeverityThreat.Error() }
func (e *HighSeverityThreatError) Unwrap() error { return ErrHighSeverityThreat }

// Pipeline bundles the shared NER model used by Process* calls.
type Pipeline struct {
	NER     detector.NERModel
	SkipNER bool
}

// New builds a Pipeline with the given NER model (may be nil, meaning
// pattern-only detection).
func New(ner detector.NERModel, skipNER bool) *Pipeline {
	return &Pipeline{NER: ner, SkipNER: skipNER}
}

// ProcessDocument sanitises and blinds raw document text, returning the
// blinded text, the PII span count, and any non-fatal threats. Aborts
// with HighSeverityThreatError if the sanitiser flags a high-severity
// issue.
func (p *Pipeline) ProcessDocument(ctx context.Context, text string, v *vault.Vault) (blinded string, piiCount int, threats []sanitizer.Threat, err error) {
	san := sanitizer.Sanitize(text)
	if !san.IsSafe {
		return "", 0, san.Threats, &HighSeverityThreatError{Threats: san.Threats}
	}
	spans := detector.Detect(ctx, san.CleanedText, p.NER, p.SkipNER)
	blinded = v.PseudonymizeText(san.CleanedText, spans)
	return blinded, len(spans), san.Threats, nil
}

// ProcessPrompt sanitises a user prompt, detects PII with both gates,
// filters false positives, resolves entities against the existing
// vault, and blinds. Aborts identically to ProcessDocument on a
// high-severity threat.
func (p *Pipeline) ProcessPrompt(ctx context.Context, text string, v *vault.Vault) (blinded string, threats []sanitizer.Threat, err error) {
	san := sanitizer.Sanitize(text)
	if !san.IsSafe {
		return "", san.Threats, &HighSeverityThreatError{Threats: san.Threats}
	}
	spans := detector.Detect(ctx, san.CleanedText, p.NER, false)
	spans = promptfilter.Filter(san.CleanedText, spans)
	spans = entitymap.ResolvePromptEntities(spans, v)
	blinded = v.PseudonymizeText(san.CleanedText, spans)
	return blinded, san.Threats, nil
}
