package cmd

import (
	"github.com/khanhnv2901/phishcheck/internal/shared/security"
)

// resolveResultsPath returns a path inside the run's directory. Run IDs are
// validated so they cannot climb out of the results directory.
func resolveResultsPath(resultsDir, runID string, parts ...string) (string, error) {
	if err := security.ValidateRunID(runID); err != nil {
		return "", err
	}
	return security.ResolveWithin(resultsDir, append([]string{runID}, parts...)...)
}
