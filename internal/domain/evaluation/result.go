package evaluation

import (
	"encoding/json"
	"time"
)

// Severity tags a finding as either a risk signal or a positive signal.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityOK      Severity = "ok"
)

// Symbol returns the glyph shown in front of a finding message.
func (s Severity) Symbol() string {
	if s == SeverityOK {
		return "✔"
	}
	return "⚠"
}

// Finding is a single human-readable observation produced by the pipeline.
type Finding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	return f.Severity.Symbol() + " " + f.Message
}

// CertificateInfo describes the leaf certificate presented by a domain.
type CertificateInfo struct {
	Domain    string    `json:"domain"`
	NotBefore time.Time `json:"not_before"`
	AgeYears  int       `json:"age_years"`
	Issuer    string    `json:"issuer,omitempty"`
}

// Result is the outcome of evaluating one URL. Findings are ordered by the
// step that produced them.
type Result struct {
	URL         string           `json:"url,omitempty"`
	Domain      string           `json:"domain,omitempty"`
	FinalURL    string           `json:"final_url,omitempty"`
	Score       int              `json:"score"`
	Findings    []Finding        `json:"findings"`
	Certificate *CertificateInfo `json:"certificate,omitempty"`
	CheckedAt   time.Time        `json:"checked_at,omitzero"`
	DurationMs  int64            `json:"duration_ms,omitempty"`
	// Cancelled marks a URL whose evaluation did not run to completion
	// because the batch context ended. Its score and findings carry no signal.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Messages renders findings in display form, preserving order.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		out = append(out, f.String())
	}
	return out
}

// Warnings counts the warning findings.
func (r Result) Warnings() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// MarshalJSON adds the flattened "messages" field next to the structured findings.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	p := plain(r)
	p.Findings = findings
	return json.Marshal(struct {
		plain
		Messages []string `json:"messages"`
	}{plain: p, Messages: r.Messages()})
}
