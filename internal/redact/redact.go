// Package redact scrubs work items before their content reaches any LLM
// provider. PII is replaced with surrogates, detected secrets are masked.
// Scrubbing happens once, at submission, so the stored transcript and every
// provider prompt see the same sanitized text.
package redact

import (
	"fmt"
	"strings"

	"github.com/HexmosTech/deidentify"
	"github.com/rs/zerolog/log"
	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/mailcouncil/pkg/models"
)

// Options selects which scrubbing stages run.
type Options struct {
	RedactPII   bool
	MaskSecrets bool
}

// Scrubber sanitizes work-item text. Construct once at startup; safe for
// concurrent use.
type Scrubber struct {
	opts     Options
	deid     *deidentify.Deidentifier
	detector *detect.Detector
}

// NewScrubber builds a scrubber for the enabled stages. Loading the secret
// detection ruleset can fail; PII replacement cannot.
func NewScrubber(opts Options) (*Scrubber, error) {
	s := &Scrubber{opts: opts}
	if opts.RedactPII {
		s.deid = deidentify.NewDeidentifier()
	}
	if opts.MaskSecrets {
		detector, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("error loading secret detection rules: %w", err)
		}
		s.detector = detector
	}
	return s, nil
}

// Enabled reports whether any scrubbing stage is configured.
func (s *Scrubber) Enabled() bool {
	return s.opts.RedactPII || s.opts.MaskSecrets
}

// WorkItem returns a scrubbed copy of the item; the input is never mutated.
// Query, subject and body are scrubbed. The sender address is kept verbatim:
// spoofed senders are evidence the agents must see, not PII to hide.
func (s *Scrubber) WorkItem(item models.WorkItem) models.WorkItem {
	if !s.Enabled() {
		return item
	}

	out := item
	out.Query = s.text(item.Query)
	if item.Email != nil {
		email := *item.Email
		email.Subject = s.text(email.Subject)
		email.Body = s.text(email.Body)
		email.Signals = append([]models.Signal(nil), email.Signals...)
		out.Email = &email
	}
	return out
}

func (s *Scrubber) text(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}

	out := in
	if s.detector != nil {
		out = s.maskSecrets(out)
	}
	if s.deid != nil {
		scrubbed, err := s.deid.Text(out)
		if err != nil {
			// A scrub failure must not block triage of the item itself.
			log.Warn().Err(err).Msg("PII redaction failed, continuing with unredacted text")
		} else {
			out = scrubbed
		}
	}
	return out
}

func (s *Scrubber) maskSecrets(in string) string {
	out := in
	for _, finding := range s.detector.DetectString(in) {
		if finding.Secret == "" {
			continue
		}
		out = strings.ReplaceAll(out, finding.Secret, "[REDACTED:"+finding.RuleID+"]")
	}
	return out
}
