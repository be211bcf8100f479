// Package constants centralizes defaults shared across the CLI, the API server
// and the evaluation pipeline.
//
// Timeouts, body limits and file permissions live here so cmd/ and internal/
// reference the same values without introducing import cycles.
package constants
