package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	sharedErrors "github.com/khanhnv2901/phishcheck/internal/shared/errors"
)

// ErrPathEscape indicates the resolved path would escape the trusted root directory.
var ErrPathEscape = errors.New("path escapes base directory")

var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ResolveWithin joins the provided path elements under base and ensures the
// result never traverses outside of it. The returned path is absolute.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", errors.New("base directory is required")
	}

	cleanBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	target, err := filepath.Abs(filepath.Join(append([]string{cleanBase}, elems...)...))
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(cleanBase, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}

	return target, nil
}

// ValidateRunID rejects run identifiers that are not a single safe path
// segment. Run IDs become directory names under the results directory.
func ValidateRunID(id string) error {
	if !runIDPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", sharedErrors.ErrInvalidRunID, id)
	}
	return nil
}

// RunDir resolves the directory holding one run's artifacts.
func RunDir(resultsDir, runID string) (string, error) {
	if err := ValidateRunID(runID); err != nil {
		return "", err
	}
	return ResolveWithin(resultsDir, runID)
}
