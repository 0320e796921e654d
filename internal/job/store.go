package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const startMessage = "Starting processing..."

// Store manages batch comparison jobs.
// The map lock only guards membership; each job carries its own lock, so
// progress updates of unrelated jobs never contend with each other.
type Store struct {
	jobs  map[string]*Job
	mu    sync.RWMutex
	now   func() time.Time
	newID func() string
}

// NewStore creates a new job store.
func NewStore() *Store {
	return &Store{
		jobs:  make(map[string]*Job),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// CreateJob creates a processing job for totalImages images and returns its id.
func (s *Store) CreateJob(totalImages int) string {
	return s.CreateJobForSession("", totalImages)
}

// CreateJobForSession is CreateJob with the originating session recorded for diagnostics.
func (s *Store) CreateJobForSession(sessionID string, totalImages int) string {
	j := &Job{
		id:          s.newID(),
		sessionID:   sessionID,
		totalImages: max(totalImages, 0),
		createdAt:   s.now(),
		status:      StatusProcessing,
		message:     startMessage,
	}

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	return j.id
}

func (s *Store) get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// UpdateProgress records that currentImage images were processed and matchesFound matched.
// It is a no-op for unknown or terminal jobs. Counters never move backwards.
func (s *Store) UpdateProgress(id string, currentImage, matchesFound int) {
	j := s.get(id)
	if j == nil {
		return
	}

	j.mu.Lock()
	if j.status.IsTerminal() {
		j.mu.Unlock()
		return
	}
	j.currentImage = min(max(j.currentImage, currentImage), j.totalImages)
	j.matchesFound = max(j.matchesFound, matchesFound)
	j.message = fmt.Sprintf("Processing image %d of %d", j.currentImage, j.totalImages)
	j.mu.Unlock()

	j.SendEvent(Event{Type: EventProgress, Data: j.snapshot()})
}

// CompleteJob finalizes a processing job with its matches.
// Unknown or already terminal jobs are left untouched.
func (s *Store) CompleteJob(id string, matches []Match) {
	j := s.get(id)
	if j == nil {
		return
	}

	now := s.now()
	j.mu.Lock()
	if j.status.IsTerminal() {
		j.mu.Unlock()
		return
	}
	j.status = StatusCompleted
	j.matches = append([]Match(nil), matches...)
	j.matchesFound = len(matches)
	j.currentImage = j.totalImages
	j.message = fmt.Sprintf("Completed! Found %d matches", len(matches))
	j.completedAt = &now
	j.mu.Unlock()

	j.SendEvent(Event{Type: EventCompleted, Data: j.snapshot()})
}

// FailJob marks a processing job as failed.
// Unknown or already terminal jobs are left untouched.
func (s *Store) FailJob(id, errorMessage string) {
	j := s.get(id)
	if j == nil {
		return
	}

	now := s.now()
	j.mu.Lock()
	if j.status.IsTerminal() {
		j.mu.Unlock()
		return
	}
	j.status = StatusFailed
	j.err = errorMessage
	j.message = "Failed: " + errorMessage
	j.completedAt = &now
	j.mu.Unlock()

	j.SendEvent(Event{Type: EventError, Message: errorMessage, Data: j.snapshot()})
}

// GetJob returns a snapshot of the job.
func (s *Store) GetJob(id string) (Snapshot, bool) {
	j := s.get(id)
	if j == nil {
		return Snapshot{}, false
	}
	return j.snapshot(), true
}

// DeleteJob removes a job and reports whether it existed.
// A job deleted while still processing keeps running; its updates become no-ops.
func (s *Store) DeleteJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// Count returns the number of stored jobs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// CountByStatus returns the number of stored jobs in the given status.
func (s *Store) CountByStatus(status Status) int {
	s.mu.RLock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.RUnlock()

	count := 0
	for _, j := range jobs {
		if j.Status() == status {
			count++
		}
	}
	return count
}

// Subscribe registers an event listener on a job. The returned function
// unregisters it and closes the channel.
func (s *Store) Subscribe(id string) (<-chan Event, func(), bool) {
	j := s.get(id)
	if j == nil {
		return nil, nil, false
	}
	ch := j.AddListener()
	return ch, func() { j.RemoveListener(ch) }, true
}
