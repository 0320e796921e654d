package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-compare/internal/constants"
)

const defaultOracleURL = "http://localhost:8000"

// Client calls an external face embedding server over HTTP.
type Client struct {
	baseURL  string
	client   *http.Client
	distance func(a, b Embedding) float64
}

// NewClient creates a face oracle client. metric selects the distance function
// ("euclidean" or "cosine").
func NewClient(baseURL string, timeout time.Duration, metric string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultOracleURL
	}
	if timeout <= 0 {
		timeout = constants.DefaultOracleTimeout
	}
	distance, err := DistanceFunc(metric)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		distance: distance,
	}, nil
}

// detectResponse represents the response from the detect endpoint.
// Each location is [top, right, bottom, left].
type detectResponse struct {
	Locations [][4]int `json:"locations"`
}

// encodeResponse represents the response from the encode endpoint
type encodeResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// postMultipartImage constructs a multipart form with the image data plus extra
// fields and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case isInvalidImageStatus(resp.StatusCode):
		return nil, &InvalidImageError{Reason: strings.TrimSpace(string(body))}
	default:
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
}

// isInvalidImageStatus reports statuses the embedding server uses for unreadable uploads.
func isInvalidImageStatus(code int) bool {
	return code == http.StatusBadRequest || code == http.StatusUnsupportedMediaType || code == http.StatusUnprocessableEntity
}

// Detect returns the face locations found in the image.
func (c *Client) Detect(ctx context.Context, image []byte) ([]Location, error) {
	body, err := c.postMultipartImage(ctx, "/faces/detect", image, nil)
	if err != nil {
		return nil, err
	}

	var detResp detectResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	locations := make([]Location, len(detResp.Locations))
	for i, box := range detResp.Locations {
		locations[i] = Location{Top: box[0], Right: box[1], Bottom: box[2], Left: box[3]}
	}
	return locations, nil
}

// Encode computes one embedding per location.
func (c *Client) Encode(ctx context.Context, image []byte, locations []Location) ([]Embedding, error) {
	if len(locations) == 0 {
		return nil, nil
	}

	boxes := make([][4]int, len(locations))
	for i, loc := range locations {
		boxes[i] = [4]int{loc.Top, loc.Right, loc.Bottom, loc.Left}
	}
	locJSON, err := json.Marshal(boxes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal locations: %w", err)
	}

	body, err := c.postMultipartImage(ctx, "/faces/encode", image, map[string]string{"locations": string(locJSON)})
	if err != nil {
		return nil, err
	}

	var encResp encodeResponse
	if err := json.Unmarshal(body, &encResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(encResp.Embeddings) != len(locations) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(locations), len(encResp.Embeddings))
	}

	embeddings := make([]Embedding, len(encResp.Embeddings))
	for i, e := range encResp.Embeddings {
		if len(e) == 0 {
			return nil, errors.New("empty embedding returned")
		}
		embeddings[i] = e
	}
	return embeddings, nil
}

// Distance compares two embeddings with the configured metric.
func (c *Client) Distance(a, b Embedding) float64 {
	return c.distance(a, b)
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}

var _ Oracle = (*Client)(nil)
