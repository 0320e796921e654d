package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/logger"
	"github.com/kozaktomas/face-compare/internal/oracle"
	"github.com/kozaktomas/face-compare/internal/oracle/mock"
	"github.com/kozaktomas/face-compare/internal/session"
)

// testDeps bundles real stores with a mock oracle for handler tests
type testDeps struct {
	sessions  *session.Store
	jobs      *job.Store
	oracle    *mock.MockOracle
	processor *facematch.Processor
	handler   *FaceHandler
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	d := &testDeps{
		sessions: session.NewStore(),
		jobs:     job.NewStore(),
		oracle:   mock.NewMockOracle(),
	}
	registrar := facematch.NewRegistrar(d.sessions, d.oracle, logger.Discard(), facematch.WithDecoder(oracle.DecodeBase64))
	d.processor = facematch.NewProcessor(d.sessions, d.jobs, d.oracle, logger.Discard(), facematch.WithDecoder(oracle.DecodeBase64))
	d.handler = NewFaceHandler(d.sessions, d.jobs, registrar, d.processor, logger.Discard())
	t.Cleanup(d.processor.Wait)
	return d
}

// b64 encodes a fake image payload understood by the mock oracle
func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// waitForJob polls the store until the job reaches a terminal state
func waitForJob(t *testing.T, jobs *job.Store, id string) job.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap, ok := jobs.GetJob(id); ok && snap.Status.IsTerminal() {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", id)
	return job.Snapshot{}
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
