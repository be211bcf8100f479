package cmd

import (
	"errors"
	"fmt"
)

// errNoURLs is returned when neither arguments nor --file supplied a URL.
var errNoURLs = errors.New("no URLs to check (pass URLs as arguments or use --file)")

// URLFileError reports a problem reading a URL list file.
type URLFileError struct {
	Path string
	Line int
	Err  error
}

func (e *URLFileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("url file %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("url file %s: %v", e.Path, e.Err)
}

func (e *URLFileError) Unwrap() error { return e.Err }

// SaveError signals that results were evaluated but could not be persisted.
type SaveError struct {
	RunID string
	Err   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save run %s: %v", e.RunID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
