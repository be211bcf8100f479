package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sharedErrors "github.com/khanhnv2901/phishcheck/internal/shared/errors"
)

func TestResolveWithinValidPath(t *testing.T) {
	base := t.TempDir()

	resolved, err := ResolveWithin(base, "run-1", "results.json")
	if err != nil {
		t.Fatalf("ResolveWithin returned error: %v", err)
	}
	if !strings.HasPrefix(resolved, base) {
		t.Fatalf("expected resolved path %s to stay within base %s", resolved, base)
	}

	// ensure path is actually usable
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		t.Fatalf("failed to create parent dirs: %v", err)
	}
	if err := os.WriteFile(resolved, []byte("{}"), 0o600); err != nil {
		t.Fatalf("failed to write resolved file: %v", err)
	}
}

func TestResolveWithinEmptyBase(t *testing.T) {
	if _, err := ResolveWithin("", "run"); err == nil || err.Error() != "base directory is required" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveWithin(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		elems   []string
		want    string
		wantErr bool
	}{
		{"no elements", nil, base, false},
		{"single dot", []string{"."}, base, false},
		{"nested", []string{"a", "b", "results.json"}, filepath.Join(base, "a", "b", "results.json"), false},
		{"dot dot in middle", []string{"a", "b", "..", "c"}, filepath.Join(base, "a", "c"), false},
		{"absolute element stays inside", []string{"/etc/passwd"}, filepath.Join(base, "etc", "passwd"), false},
		{"escape", []string{"..", "outside"}, "", true},
		{"double escape", []string{"..", "..", "etc"}, "", true},
		{"relative escape", []string{"a", "..", "..", "etc"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(base, tt.elems...)
			if tt.wantErr {
				if !errors.Is(err, ErrPathEscape) {
					t.Fatalf("expected ErrPathEscape, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"20240101T120000Z", true},
		{"run-1.batch_2", true},
		{"", false},
		{"..", false},
		{"a..b", false},
		{"../etc", false},
		{"a/b", false},
		{`a\b`, false},
		{".hidden", false},
		{strings.Repeat("x", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateRunID(tt.id)
			if tt.valid && err != nil {
				t.Errorf("ValidateRunID(%q) = %v, want nil", tt.id, err)
			}
			if !tt.valid && !errors.Is(err, sharedErrors.ErrInvalidRunID) {
				t.Errorf("ValidateRunID(%q) = %v, want ErrInvalidRunID", tt.id, err)
			}
		})
	}
}

func TestRunDir(t *testing.T) {
	base := t.TempDir()

	dir, err := RunDir(base, "run-42")
	if err != nil {
		t.Fatalf("RunDir: %v", err)
	}
	if dir != filepath.Join(base, "run-42") {
		t.Errorf("RunDir = %s", dir)
	}

	if _, err := RunDir(base, "../run"); !errors.Is(err, sharedErrors.ErrInvalidRunID) {
		t.Errorf("expected ErrInvalidRunID, got %v", err)
	}
}
