package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultFetchTimeout bounds the page fetch of a single evaluation.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultCertTimeout bounds the TLS dial and handshake of the certificate probe.
	DefaultCertTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a fetched page is scanned.
	DefaultMaxBodyBytes = 5 << 20
	// DefaultMaxRedirects mirrors the redirect budget of common HTTP client libraries.
	DefaultMaxRedirects = 30
	// DefaultTLSPort is where the certificate probe connects.
	DefaultTLSPort = "443"
	// MaxRequestBodyBytes limits API request payloads.
	MaxRequestBodyBytes = 1 << 20
)

const (
	// ResultsFilename is the file written for each saved evaluation run.
	ResultsFilename = "results.json"
	// TelemetryFilename is the append-only run summary log inside the results directory.
	TelemetryFilename = "telemetry.jsonl"
)
