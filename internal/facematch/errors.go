package facematch

import "errors"

// Validation errors are caused by the caller's input and are not retried.
//
//nolint:staticcheck // ST1005: messages are returned to API clients verbatim
var (
	ErrInvalidImage   = errors.New("Invalid image format")
	ErrNoFaceDetected = errors.New("No face detected in image")
	ErrMultipleFaces  = errors.New("Multiple faces detected, please use image with single face")
)

// Lookup errors.
//
//nolint:staticcheck // ST1005: see above
var (
	ErrSessionNotFound = errors.New("Session not found")
	ErrJobNotFound     = errors.New("Job not found")
)

// ErrEncodingFailed reports an oracle failure after a face was detected.
//
//nolint:staticcheck // ST1005: see above
var ErrEncodingFailed = errors.New("Failed to extract face encoding")

// IsValidationError reports whether err was caused by invalid caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidImage) || errors.Is(err, ErrNoFaceDetected) || errors.Is(err, ErrMultipleFaces)
}
