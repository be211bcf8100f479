package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	sharedErrors "github.com/khanhnv2901/phishcheck/internal/shared/errors"
)

func TestResolveResultsPath(t *testing.T) {
	base := t.TempDir()

	path, err := resolveResultsPath(base, "run-20240101T000000Z-000001", "results.json")
	if err != nil {
		t.Fatalf("resolveResultsPath failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(base, "run-20240101T000000Z-000001") {
		t.Fatalf("path resolved outside run dir: %s", path)
	}

	for _, id := range []string{"", ".", "..", "bad/id", `bad\id`} {
		if _, err := resolveResultsPath(base, id); !errors.Is(err, sharedErrors.ErrInvalidRunID) {
			t.Errorf("expected run ID %q to be rejected, got %v", id, err)
		}
	}
}
