// Package client talks to a running face-compare API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/session"
)

// Client is a thin JSON client for the face-compare HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Health is the /health response.
type Health struct {
	Status         string    `json:"status"`
	Service        string    `json:"service"`
	Version        string    `json:"version"`
	ActiveSessions int       `json:"active_sessions"`
	ActiveJobs     int       `json:"active_jobs"`
	Timestamp      time.Time `json:"timestamp"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type compareBatchResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Register uploads image as the reference face of sessionID.
func (c *Client) Register(ctx context.Context, sessionID string, image []byte) error {
	_, err := doRequestJSON[successResponse](ctx, c, http.MethodPost, "/face/register", map[string]string{
		"session_id": sessionID,
		"image":      base64.StdEncoding.EncodeToString(image),
	}, http.StatusOK)
	return err
}

// CompareBatch submits images for comparison and returns the job id.
func (c *Client) CompareBatch(ctx context.Context, sessionID string, images [][]byte) (string, error) {
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	resp, err := doRequestJSON[compareBatchResponse](ctx, c, http.MethodPost, "/face/compare-batch", map[string]any{
		"session_id": sessionID,
		"images":     encoded,
	}, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// JobStatus fetches the current snapshot of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*job.Snapshot, error) {
	return doRequestJSON[job.Snapshot](ctx, c, http.MethodGet, "/face/job-status/"+url.PathEscape(jobID), nil, http.StatusOK)
}

// WaitForJob polls a job every interval until it is terminal or ctx ends.
// onProgress, if set, receives every polled snapshot.
func (c *Client) WaitForJob(ctx context.Context, jobID string, interval time.Duration, onProgress func(job.Snapshot)) (*job.Snapshot, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(*snap)
		}
		if snap.Status.IsTerminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DeleteJob removes a job from the server.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	_, err := doRequestJSON[successResponse](ctx, c, http.MethodDelete, "/face/job/"+url.PathEscape(jobID), nil, http.StatusOK)
	return err
}

// SessionInfo fetches session timestamps without refreshing its expiry.
func (c *Client) SessionInfo(ctx context.Context, sessionID string) (*session.Info, error) {
	return doRequestJSON[session.Info](ctx, c, http.MethodGet, "/face/session/"+url.PathEscape(sessionID), nil, http.StatusOK)
}

// DeleteSession removes a session's reference face.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := doRequestJSON[successResponse](ctx, c, http.MethodDelete, "/face/session/"+url.PathEscape(sessionID), nil, http.StatusOK)
	return err
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	return doRequestJSON[Health](ctx, c, http.MethodGet, "/health", nil, http.StatusOK)
}

// doRequestJSON performs a request with an optional JSON body and decodes the JSON response.
// A status outside expectedStatuses is returned as *APIError.
func doRequestJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if !slices.Contains(expectedStatuses, resp.StatusCode) {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

// readErrorBody extracts the "error" field of a JSON error body, or the raw body.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
