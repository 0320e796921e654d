// Package job tracks the lifecycle and progress of batch comparison jobs.
package job

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-compare/internal/constants"
)

// Status represents the status of a batch comparison job.
type Status string

// Status constants define the lifecycle states of a job.
// processing -> completed | failed; both terminal states are absorbing.
const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal returns true if the status is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Match is one accepted candidate image.
type Match struct {
	Index    int     `json:"index"`
	Distance float64 `json:"distance"`
}

// Snapshot is a consistent, immutable view of a job.
type Snapshot struct {
	ID           string     `json:"job_id"`
	SessionID    string     `json:"session_id,omitempty"`
	Status       Status     `json:"status"`
	Progress     int        `json:"progress"`
	CurrentImage int        `json:"current_image"`
	TotalImages  int        `json:"total_images"`
	MatchesFound int        `json:"matches_found"`
	Message      string     `json:"message"`
	Matches      []Match    `json:"matches,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Event represents an event from a job.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Event types emitted by the store.
const (
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventError     = "job_error"
)

// EventBroadcaster provides listener management and event broadcasting for jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	listeners []chan Event
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners. Progress events are dropped for
// listeners whose buffer is full. Terminal events are always delivered: the
// oldest buffered event is discarded to make room.
func (b *EventBroadcaster) SendEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	terminal := event.Type == EventCompleted || event.Type == EventError
	for _, listener := range b.listeners {
		if !terminal {
			select {
			case listener <- event:
			default:
				// Listener buffer full, skip.
			}
			continue
		}
		for sent := false; !sent; {
			select {
			case listener <- event:
				sent = true
			default:
				// Full: discard the oldest event to make room.
				select {
				case <-listener:
				default:
				}
			}
		}
	}
}

// Job is the mutable state of one batch comparison. All fields except the
// identity are guarded by mu and only exposed through Snapshot.
type Job struct {
	EventBroadcaster

	id          string
	sessionID   string
	totalImages int
	createdAt   time.Time

	mu           sync.RWMutex
	status       Status
	currentImage int
	matchesFound int
	matches      []Match
	message      string
	err          string
	completedAt  *time.Time
}

// snapshot copies the job state. Callers must not hold mu.
func (j *Job) snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		ID:           j.id,
		SessionID:    j.sessionID,
		Status:       j.status,
		Progress:     j.progressLocked(),
		CurrentImage: j.currentImage,
		TotalImages:  j.totalImages,
		MatchesFound: j.matchesFound,
		Message:      j.message,
		Error:        j.err,
		CreatedAt:    j.createdAt,
	}
	if j.status == StatusCompleted && len(j.matches) > 0 {
		s.Matches = append([]Match(nil), j.matches...)
	}
	if j.completedAt != nil {
		t := *j.completedAt
		s.CompletedAt = &t
	}
	return s
}

// progressLocked derives the percentage. Only CompleteJob reports 100.
func (j *Job) progressLocked() int {
	if j.status == StatusCompleted {
		return 100
	}
	if j.totalImages <= 0 {
		return 0
	}
	return j.currentImage * 100 / j.totalImages
}

// Status returns the current job status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}
