package handlers

import (
	"net/http"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/session"
)

// FaceHandler handles face registration, batch comparison and job endpoints
type FaceHandler struct {
	sessions  *session.Store
	jobs      *job.Store
	registrar *facematch.Registrar
	processor *facematch.Processor
	logger    *bolt.Logger
}

// NewFaceHandler creates a new face handler
func NewFaceHandler(sessions *session.Store, jobs *job.Store, registrar *facematch.Registrar, processor *facematch.Processor, logger *bolt.Logger) *FaceHandler {
	return &FaceHandler{
		sessions:  sessions,
		jobs:      jobs,
		registrar: registrar,
		processor: processor,
		logger:    logger,
	}
}

// RegisterRequest represents a reference face registration
type RegisterRequest struct {
	SessionID string `json:"session_id"`
	Image     string `json:"image"` // base64, optionally a data URL
}

// CompareBatchRequest represents a batch comparison request
type CompareBatchRequest struct {
	SessionID string   `json:"session_id"`
	Images    []string `json:"images"`
}

// CompareBatchResponse is returned when a batch job is accepted
type CompareBatchResponse struct {
	JobID  string     `json:"job_id"`
	Status job.Status `json:"status"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Register stores the reference face for a session
func (h *FaceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.SessionID == "" || req.Image == "" {
		respondError(w, http.StatusBadRequest, "session_id and image are required")
		return
	}

	if err := h.registrar.Register(r.Context(), req.SessionID, req.Image); err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

// CompareBatch starts an asynchronous comparison of images against the session's face
func (h *FaceHandler) CompareBatch(w http.ResponseWriter, r *http.Request) {
	var req CompareBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	jobID, err := h.processor.Submit(r.Context(), req.SessionID, req.Images)
	if err != nil {
		respondFailure(w, err)
		return
	}

	h.logger.Info().
		Str("job_id", jobID).
		Str("session_id", sanitizeForLog(req.SessionID)).
		Int("images", len(req.Images)).
		Msg("batch comparison accepted")

	respondJSON(w, http.StatusAccepted, CompareBatchResponse{
		JobID:  jobID,
		Status: job.StatusProcessing,
	})
}

// JobStatus returns the current snapshot of a job
func (h *FaceHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if !ok {
		respondFailure(w, facematch.ErrJobNotFound)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// JobEvents streams job events via SSE
func (h *FaceHandler) JobEvents(w http.ResponseWriter, r *http.Request) {
	streamJobEvents(w, r, h.jobs, chi.URLParam(r, "jobId"))
}

// DeleteJob forgets a job. A running job keeps processing but its updates are dropped.
func (h *FaceHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if !h.jobs.DeleteJob(chi.URLParam(r, "jobId")) {
		respondFailure(w, facematch.ErrJobNotFound)
		return
	}

	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

// GetSession returns session timestamps without refreshing its expiry
func (h *FaceHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, ok := h.sessions.Info(chi.URLParam(r, "sessionId"))
	if !ok {
		respondFailure(w, facematch.ErrSessionNotFound)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// DeleteSession removes a session's reference face
func (h *FaceHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if !h.sessions.Delete(sessionID) {
		respondFailure(w, facematch.ErrSessionNotFound)
		return
	}

	h.logger.Info().Str("session_id", sanitizeForLog(sessionID)).Msg("session deleted")
	respondJSON(w, http.StatusOK, successResponse{Success: true})
}
