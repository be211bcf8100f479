package evaluation

// Accumulator collects the score and findings of a single evaluation.
// It is not safe for concurrent use; each evaluation owns one.
type Accumulator struct {
	score    int
	findings []Finding
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{findings: make([]Finding, 0, 8)}
}

// Warn records a risk signal and raises the score by one.
func (a *Accumulator) Warn(message string) {
	a.score++
	a.append(SeverityWarning, message)
}

// Note records a warning that does not affect the score.
func (a *Accumulator) Note(message string) {
	a.append(SeverityWarning, message)
}

// OK records a positive finding.
func (a *Accumulator) OK(message string) {
	a.append(SeverityOK, message)
}

// Score returns the current score.
func (a *Accumulator) Score() int {
	return a.score
}

// Findings returns a copy of the recorded findings.
func (a *Accumulator) Findings() []Finding {
	out := make([]Finding, len(a.findings))
	copy(out, a.findings)
	return out
}

// Result snapshots the accumulator into a Result.
func (a *Accumulator) Result() Result {
	return Result{
		Score:    a.score,
		Findings: a.Findings(),
	}
}

func (a *Accumulator) append(sev Severity, message string) {
	a.findings = append(a.findings, Finding{Severity: sev, Message: message})
}
