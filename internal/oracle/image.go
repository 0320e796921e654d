package oracle

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/face-compare/internal/constants"
)

var (
	errEmptyImage    = errors.New("empty image")
	errImageTooLarge = errors.New("image too large")
)

// DecodeBase64 decodes a base64 image payload. Data URLs
// ("data:image/jpeg;base64,...") and unpadded input are accepted.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	if payload == "" {
		return nil, &InvalidImageError{Reason: "decoding base64", Err: errEmptyImage}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, &InvalidImageError{Reason: "decoding base64", Err: err}
	}
	return data, nil
}

// PrepareImage decodes an image in any registered format and re-encodes it as
// JPEG, scaled down so neither side exceeds maxSize. maxSize <= 0 disables scaling.
func PrepareImage(data []byte, maxSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, &InvalidImageError{Reason: "decoding image", Err: errEmptyImage}
	}

	// Decoders allocate the full pixel buffer from the header, so check it first.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Reason: "decoding image", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > constants.MaxDecodePixels {
		return nil, &InvalidImageError{
			Reason: "decoding image",
			Err:    fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Reason: "decoding image", Err: err}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Check if resizing is needed.
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		// Re-encode as JPEG to ensure consistent format.
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), nil
	}

	// Calculate new dimensions.
	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
	} else {
		newHeight = maxSize
		newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}

// Decoder turns a base64 payload from the API into image bytes ready for the oracle.
type Decoder func(payload string) ([]byte, error)

// NewDecoder returns a Decoder that base64-decodes and normalizes images to JPEG
// no larger than maxSize.
func NewDecoder(maxSize int) Decoder {
	return func(payload string) ([]byte, error) {
		data, err := DecodeBase64(payload)
		if err != nil {
			return nil, err
		}
		return PrepareImage(data, maxSize)
	}
}
