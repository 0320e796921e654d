package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/job"
)

// streamJobEvents streams a job's events as SSE until the job reaches a
// terminal state or the client disconnects. The current snapshot is sent
// first as a "status" event.
func streamJobEvents(w http.ResponseWriter, r *http.Request, jobs *job.Store, jobID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before reading the snapshot so no transition is missed in between.
	eventCh, unsubscribe, ok := jobs.Subscribe(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, facematch.ErrJobNotFound.Error())
		return
	}
	defer unsubscribe()

	snap, ok := jobs.GetJob(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, facematch.ErrJobNotFound.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sendSSEEvent(w, flusher, "status", snap)
	if snap.Status.IsTerminal() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
			if event.Type == job.EventCompleted || event.Type == job.EventError {
				return
			}
		}
	}
}

// sendSSEEvent writes one event in text/event-stream framing.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
