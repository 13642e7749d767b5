package tool

import "regexp"

// Redactor masks personal identifiers in free text before it is stored.
// The default implementation is a best-effort pattern pass, not a privacy
// guarantee.
type Redactor interface {
	Redact(text string) string
}

type redactRule struct {
	re   *regexp.Regexp
	mask string
}

type PatternRedactor struct {
	rules []redactRule
}

func NewPatternRedactor() *PatternRedactor {
	return &PatternRedactor{rules: []redactRule{
		{re: regexp.MustCompile(`\b\d{6}-?[1-8]\d{6}\b`), mask: "[주민번호]"},
		{re: regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), mask: "[이메일]"},
		{re: regexp.MustCompile(`\b01[016789][-. ]?\d{3,4}[-. ]?\d{4}\b`), mask: "[전화번호]"},
		{re: regexp.MustCompile(`\b0\d{1,2}-\d{3,4}-\d{4}\b`), mask: "[전화번호]"},
	}}
}

func (p *PatternRedactor) Redact(text string) string {
	for _, r := range p.rules {
		text = r.re.ReplaceAllString(text, r.mask)
	}
	return text
}

type noopRedactor struct{}

func (noopRedactor) Redact(text string) string { return text }

// NoRedaction disables masking.
var NoRedaction Redactor = noopRedactor{}
