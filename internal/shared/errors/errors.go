package errors

import "errors"

// Domain errors
var (
	// Evaluation errors
	ErrFetch       = errors.New("unable to access the website")
	ErrCertificate = errors.New("unable to verify domain certificate")
	ErrInvalidURL  = errors.New("invalid url")
	ErrEmptyURL    = errors.New("url is required")

	// Results store errors
	ErrRunNotFound  = errors.New("evaluation run not found")
	ErrInvalidRunID = errors.New("invalid run ID")

	// Repository errors
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
)
