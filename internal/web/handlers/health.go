package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/session"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "face-compare"

// HealthHandler reports liveness and store sizes
type HealthHandler struct {
	sessions *session.Store
	jobs     *job.Store
	version  string
	now      func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sessions *session.Store, jobs *job.Store, version string) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		jobs:     jobs,
		version:  version,
		now:      time.Now,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string    `json:"status"`
	Service        string    `json:"service"`
	Version        string    `json:"version"`
	ActiveSessions int       `json:"active_sessions"`
	ActiveJobs     int       `json:"active_jobs"`
	Timestamp      time.Time `json:"timestamp"`
}

// Get handles the health check endpoint.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:         "healthy",
		Service:        ServiceName,
		Version:        h.version,
		ActiveSessions: h.sessions.Len(),
		ActiveJobs:     h.jobs.CountByStatus(job.StatusProcessing),
		Timestamp:      h.now().UTC(),
	})
}
