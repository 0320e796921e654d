// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchThreshold is the maximum distance for a candidate image to count
	// as a match in a batch comparison. Lower values = stricter matching
	DefaultMatchThreshold = 0.7
)

// Session constants
const (
	// DefaultSessionTTL is how long a session may stay idle before it is evicted
	DefaultSessionTTL = 24 * time.Hour

	// DefaultCleanupInterval is the pause between two session eviction sweeps
	DefaultCleanupInterval = time.Hour
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the face oracle
	MaxImageSize = 1600

	// MaxDecodePixels caps width*height of an image before it is decoded
	MaxDecodePixels = 50_000_000

	// MaxRequestBodySize is the largest JSON body accepted by the API (base64 images included)
	MaxRequestBodySize = 256 << 20

	// DefaultOracleTimeout bounds a single call to the face oracle
	DefaultOracleTimeout = 60 * time.Second
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// CLI constants
const (
	// DefaultPollInterval is how often the CLI polls job status
	DefaultPollInterval = 500 * time.Millisecond
)
