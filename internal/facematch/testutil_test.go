package facematch

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/logger"
	"github.com/kozaktomas/face-compare/internal/oracle"
	"github.com/kozaktomas/face-compare/internal/oracle/mock"
	"github.com/kozaktomas/face-compare/internal/session"
)

// reference is the registered face used by most tests; candidate faces are
// placed on the x axis so their euclidean distance is their x coordinate.
var reference = oracle.Embedding{0, 0}

func face(distance float32) oracle.Embedding {
	return oracle.Embedding{distance, 0}
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

type testEnv struct {
	sessions  *session.Store
	jobs      *job.Store
	oracle    *mock.MockOracle
	processor *Processor
	registrar *Registrar
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions: session.NewStore(),
		jobs:     job.NewStore(),
		oracle:   mock.NewMockOracle(),
	}
	env.processor = NewProcessor(env.sessions, env.jobs, env.oracle, logger.Discard(), WithDecoder(oracle.DecodeBase64))
	env.registrar = NewRegistrar(env.sessions, env.oracle, logger.Discard(), WithDecoder(oracle.DecodeBase64))
	return env
}

// waitForTerminal polls the job until it reaches a terminal status.
func waitForTerminal(t *testing.T, jobs *job.Store, id string) job.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := jobs.GetJob(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if snap.Status.IsTerminal() {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", id)
	return job.Snapshot{}
}

// progressCall is one recorded UpdateProgress invocation.
type progressCall struct {
	current, matches int
}

// recordingJobStore wraps a job store and records progress calls.
type recordingJobStore struct {
	*job.Store
	mu    sync.Mutex
	calls []progressCall
}

func (r *recordingJobStore) UpdateProgress(id string, current, matches int) {
	r.mu.Lock()
	r.calls = append(r.calls, progressCall{current, matches})
	r.mu.Unlock()
	r.Store.UpdateProgress(id, current, matches)
}

// panickingJobStore panics on progress updates to simulate a broken loop.
type panickingJobStore struct {
	*job.Store
}

func (p *panickingJobStore) UpdateProgress(id string, current, matches int) {
	panic("progress store exploded")
}
