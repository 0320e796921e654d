package job

import (
	"sync"
	"testing"

	"github.com/kozaktomas/face-compare/internal/constants"
)

func TestStore_CreateJob_InitialState(t *testing.T) {
	store := NewStore()

	for _, total := range []int{0, 1, 3, 100} {
		id := store.CreateJob(total)
		job, ok := store.GetJob(id)
		if !ok {
			t.Fatalf("expected job %s to exist", id)
		}

		if job.Status != StatusProcessing {
			t.Errorf("expected status processing, got %s", job.Status)
		}
		if job.Progress != 0 {
			t.Errorf("expected progress 0, got %d", job.Progress)
		}
		if job.TotalImages != total {
			t.Errorf("expected total %d, got %d", total, job.TotalImages)
		}
		if job.CurrentImage != 0 {
			t.Errorf("expected current image 0, got %d", job.CurrentImage)
		}
		if job.Message != "Starting processing..." {
			t.Errorf("unexpected message '%s'", job.Message)
		}
		if job.CreatedAt.IsZero() {
			t.Error("expected createdAt to be set")
		}
	}
}

func TestStore_CreateJob_UniqueIDs(t *testing.T) {
	store := NewStore()
	seen := make(map[string]bool)
	for range 100 {
		id := store.CreateJob(1)
		if seen[id] {
			t.Fatalf("duplicate job id %s", id)
		}
		seen[id] = true
	}
	if store.Count() != 100 {
		t.Errorf("expected 100 jobs, got %d", store.Count())
	}
}

func TestStore_CreateJobForSession(t *testing.T) {
	store := NewStore()
	id := store.CreateJobForSession("s1", 2)

	job, _ := store.GetJob(id)
	if job.SessionID != "s1" {
		t.Errorf("expected session id 's1', got '%s'", job.SessionID)
	}
}

func TestStore_UpdateProgress(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(3)

	store.UpdateProgress(id, 1, 1)
	job, _ := store.GetJob(id)

	if job.CurrentImage != 1 || job.MatchesFound != 1 {
		t.Errorf("unexpected counters current=%d matches=%d", job.CurrentImage, job.MatchesFound)
	}
	if job.Progress != 33 {
		t.Errorf("expected truncated progress 33, got %d", job.Progress)
	}
	if job.Message != "Processing image 1 of 3" {
		t.Errorf("unexpected message '%s'", job.Message)
	}

	store.UpdateProgress(id, 3, 1)
	job, _ = store.GetJob(id)
	if job.Progress != 100 {
		t.Errorf("expected progress 100 after last image, got %d", job.Progress)
	}
	if job.Status != StatusProcessing {
		t.Errorf("progress updates must not complete the job, got %s", job.Status)
	}
}

func TestStore_UpdateProgress_Monotonic(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(10)

	store.UpdateProgress(id, 5, 2)
	store.UpdateProgress(id, 3, 1)

	job, _ := store.GetJob(id)
	if job.CurrentImage != 5 {
		t.Errorf("expected current image to stay at 5, got %d", job.CurrentImage)
	}
	if job.MatchesFound != 2 {
		t.Errorf("expected matches to stay at 2, got %d", job.MatchesFound)
	}

	store.UpdateProgress(id, 50, 2)
	job, _ = store.GetJob(id)
	if job.CurrentImage != 10 {
		t.Errorf("expected current image bounded by total, got %d", job.CurrentImage)
	}
}

func TestStore_UpdateProgress_UnknownJob(t *testing.T) {
	store := NewStore()
	store.UpdateProgress("missing", 1, 1) // must not panic
	if store.Count() != 0 {
		t.Error("expected no job to be created")
	}
}

func TestStore_UpdateProgress_AfterTerminal(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(4)
	store.UpdateProgress(id, 1, 0)
	store.FailJob(id, "boom")

	store.UpdateProgress(id, 3, 2)

	job, _ := store.GetJob(id)
	if job.CurrentImage != 1 || job.MatchesFound != 0 {
		t.Errorf("expected counters frozen after failure, got current=%d matches=%d", job.CurrentImage, job.MatchesFound)
	}
	if job.Message != "Failed: boom" {
		t.Errorf("unexpected message '%s'", job.Message)
	}
}

func TestStore_CompleteJob(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(3)
	store.UpdateProgress(id, 3, 1)

	store.CompleteJob(id, []Match{{Index: 0, Distance: 0.5}})

	job, _ := store.GetJob(id)
	if job.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if job.MatchesFound != 1 || len(job.Matches) != 1 {
		t.Fatalf("expected one match, got found=%d matches=%v", job.MatchesFound, job.Matches)
	}
	if job.Matches[0] != (Match{Index: 0, Distance: 0.5}) {
		t.Errorf("unexpected match %+v", job.Matches[0])
	}
	if job.Message != "Completed! Found 1 matches" {
		t.Errorf("unexpected message '%s'", job.Message)
	}
	if job.CompletedAt == nil {
		t.Error("expected completedAt to be set")
	}
}

func TestStore_CompleteJob_EmptyBatch(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(0)
	store.CompleteJob(id, nil)

	job, _ := store.GetJob(id)
	if job.Status != StatusCompleted || job.Progress != 100 {
		t.Errorf("expected completed at 100%%, got %s at %d", job.Status, job.Progress)
	}
	if job.Matches != nil {
		t.Errorf("expected no matches, got %v", job.Matches)
	}
}

func TestStore_CompleteJob_Idempotent(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(2)

	store.CompleteJob(id, []Match{{Index: 1, Distance: 0.3}})
	first, _ := store.GetJob(id)

	store.CompleteJob(id, []Match{{Index: 0, Distance: 0.1}, {Index: 1, Distance: 0.2}})
	store.FailJob(id, "late failure")
	second, _ := store.GetJob(id)

	if second.Status != StatusCompleted {
		t.Errorf("expected status to stay completed, got %s", second.Status)
	}
	if len(second.Matches) != 1 || second.Matches[0] != first.Matches[0] {
		t.Errorf("expected matches unchanged, got %v", second.Matches)
	}
	if second.Error != "" {
		t.Errorf("expected no error on completed job, got '%s'", second.Error)
	}
	if second.Message != first.Message {
		t.Errorf("expected message unchanged, got '%s'", second.Message)
	}
}

func TestStore_FailJob_Idempotent(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(2)

	store.FailJob(id, "Session not found")
	store.FailJob(id, "something else")
	store.CompleteJob(id, []Match{{Index: 0, Distance: 0.1}})

	job, _ := store.GetJob(id)
	if job.Status != StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.Error != "Session not found" {
		t.Errorf("expected first error kept, got '%s'", job.Error)
	}
	if job.Matches != nil {
		t.Errorf("expected failed job to expose no matches, got %v", job.Matches)
	}
}

func TestStore_CompleteJob_CopiesMatches(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(1)
	matches := []Match{{Index: 0, Distance: 0.4}}
	store.CompleteJob(id, matches)

	matches[0].Distance = 9
	job, _ := store.GetJob(id)
	if job.Matches[0].Distance != 0.4 {
		t.Error("expected store to keep its own copy of matches")
	}

	job.Matches[0].Distance = 9
	again, _ := store.GetJob(id)
	if again.Matches[0].Distance != 0.4 {
		t.Error("expected snapshots not to alias job state")
	}
}

func TestStore_DeleteJob(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(1)

	if !store.DeleteJob(id) {
		t.Error("expected delete to report existing job")
	}
	if store.DeleteJob(id) {
		t.Error("expected second delete to report missing job")
	}
	if _, ok := store.GetJob(id); ok {
		t.Error("expected job to be gone")
	}

	// Updates after deletion are no-ops.
	store.UpdateProgress(id, 1, 0)
	store.CompleteJob(id, nil)
}

func TestStore_CountByStatus(t *testing.T) {
	store := NewStore()
	a := store.CreateJob(1)
	b := store.CreateJob(1)
	store.CreateJob(1)

	store.CompleteJob(a, nil)
	store.FailJob(b, "x")

	if n := store.CountByStatus(StatusProcessing); n != 1 {
		t.Errorf("expected 1 processing, got %d", n)
	}
	if n := store.CountByStatus(StatusCompleted); n != 1 {
		t.Errorf("expected 1 completed, got %d", n)
	}
	if n := store.CountByStatus(StatusFailed); n != 1 {
		t.Errorf("expected 1 failed, got %d", n)
	}
}

func TestStore_Subscribe(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(2)

	events, unsubscribe, ok := store.Subscribe(id)
	if !ok {
		t.Fatal("expected subscription to succeed")
	}
	defer unsubscribe()

	store.UpdateProgress(id, 1, 0)
	store.CompleteJob(id, nil)

	first := <-events
	if first.Type != EventProgress {
		t.Errorf("expected progress event, got %s", first.Type)
	}
	second := <-events
	if second.Type != EventCompleted {
		t.Errorf("expected completed event, got %s", second.Type)
	}
	snap, ok := second.Data.(Snapshot)
	if !ok || snap.Status != StatusCompleted {
		t.Errorf("expected completed snapshot in event data, got %#v", second.Data)
	}

	if _, _, ok := store.Subscribe("missing"); ok {
		t.Error("expected subscription to unknown job to fail")
	}
}

// drainEvents reads every buffered event without blocking.
func drainEvents(events <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestStore_Subscribe_SlowListenerStillGetsCompletion(t *testing.T) {
	store := NewStore()
	total := constants.EventChannelBuffer + 100
	id := store.CreateJob(total)

	events, unsubscribe, ok := store.Subscribe(id)
	if !ok {
		t.Fatal("expected subscription to succeed")
	}
	defer unsubscribe()

	for i := 1; i <= constants.EventChannelBuffer+50; i++ {
		store.UpdateProgress(id, i, 0)
	}
	store.CompleteJob(id, []Match{{Index: 3, Distance: 0.1}})

	got := drainEvents(events)
	if len(got) == 0 || len(got) > constants.EventChannelBuffer {
		t.Fatalf("expected 1..%d buffered events, got %d", constants.EventChannelBuffer, len(got))
	}
	last := got[len(got)-1]
	if last.Type != EventCompleted {
		t.Fatalf("expected last event to be %s, got %s", EventCompleted, last.Type)
	}
	snap, ok := last.Data.(Snapshot)
	if !ok || snap.Status != StatusCompleted || len(snap.Matches) != 1 {
		t.Errorf("expected completed snapshot with 1 match, got %#v", last.Data)
	}
}

func TestStore_Subscribe_SlowListenerStillGetsFailure(t *testing.T) {
	store := NewStore()
	id := store.CreateJob(constants.EventChannelBuffer * 2)

	events, unsubscribe, ok := store.Subscribe(id)
	if !ok {
		t.Fatal("expected subscription to succeed")
	}
	defer unsubscribe()

	for i := 1; i <= constants.EventChannelBuffer+1; i++ {
		store.UpdateProgress(id, i, 0)
	}
	store.FailJob(id, "session not found")

	got := drainEvents(events)
	if len(got) == 0 {
		t.Fatal("expected buffered events")
	}
	last := got[len(got)-1]
	if last.Type != EventError || last.Message != "session not found" {
		t.Errorf("expected %s event with message, got %s %q", EventError, last.Type, last.Message)
	}
}

func TestStore_ConcurrentPollersSeeMonotonicProgress(t *testing.T) {
	store := NewStore()
	const total = 500
	id := store.CreateJob(total)

	var wg sync.WaitGroup
	errs := make(chan string, 8)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for {
				job, _ := store.GetJob(id)
				if job.CurrentImage < last {
					errs <- "current image moved backwards"
					return
				}
				if job.CurrentImage > job.TotalImages {
					errs <- "current image exceeded total"
					return
				}
				if job.Status == StatusCompleted && len(job.Matches) != total/2 {
					errs <- "completed job observed with partial matches"
					return
				}
				last = job.CurrentImage
				if job.Status.IsTerminal() {
					return
				}
			}
		}()
	}

	var matches []Match
	for i := range total {
		if i%2 == 0 {
			matches = append(matches, Match{Index: i, Distance: 0.5})
		}
		store.UpdateProgress(id, i+1, len(matches))
	}
	store.CompleteJob(id, matches)

	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestStore_IndependentJobsConcurrently(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = store.CreateJob(100)
	}

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := range 100 {
				store.UpdateProgress(id, i+1, i/10)
			}
			store.CompleteJob(id, nil)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		job, _ := store.GetJob(id)
		if job.Status != StatusCompleted || job.CurrentImage != 100 {
			t.Errorf("job %s ended as %s at %d", id, job.Status, job.CurrentImage)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.expected {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.expected)
		}
	}
}
