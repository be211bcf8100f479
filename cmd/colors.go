package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// formatFinding renders a finding with its symbol, coloured by severity.
func formatFinding(f evaluation.Finding) string {
	if f.Severity == evaluation.SeverityOK {
		return colorSuccess(f.String())
	}
	return colorWarn(f.String())
}

// formatScore colours a risk score: green when clean, yellow for one signal,
// red beyond that.
func formatScore(score int) string {
	label := fmt.Sprintf("score %d", score)
	switch {
	case score == 0:
		return colorSuccess(label)
	case score == 1:
		return colorWarn(label)
	default:
		return colorError(label)
	}
}
