// Package oracle defines the face embedding capability the matcher depends on
// and an HTTP client for the external face embedding server.
package oracle

import (
	"context"
	"errors"
)

// Embedding is a fixed-length face descriptor produced by the oracle.
type Embedding []float32

// Location is a face bounding box in pixel coordinates of the submitted image.
type Location struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Oracle detects faces, extracts embeddings and compares them.
// Implementations must be safe for concurrent use.
type Oracle interface {
	// Detect returns the face locations found in image.
	// Undecodable input fails with *InvalidImageError.
	Detect(ctx context.Context, image []byte) ([]Location, error)
	// Encode returns one embedding per location, in the same order.
	Encode(ctx context.Context, image []byte, locations []Location) ([]Embedding, error)
	// Distance is a symmetric, non-negative dissimilarity. Lower means more similar.
	Distance(a, b Embedding) float64
}

// InvalidImageError reports input that could not be decoded as an image.
type InvalidImageError struct {
	Reason string
	Err    error
}

func (e *InvalidImageError) Error() string {
	if e.Err != nil {
		return "invalid image: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid image: " + e.Reason
}

func (e *InvalidImageError) Unwrap() error {
	return e.Err
}

// IsInvalidImage reports whether err is or wraps an *InvalidImageError.
func IsInvalidImage(err error) bool {
	var invalid *InvalidImageError
	return errors.As(err, &invalid)
}

// Clone returns a copy of e that does not share its backing array.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}
