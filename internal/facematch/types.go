// Package facematch registers reference faces and runs batch comparisons
// against them.
package facematch

import (
	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/oracle"
)

// SessionReader looks up reference embeddings.
type SessionReader interface {
	Retrieve(id string) (oracle.Embedding, bool)
}

// SessionWriter registers reference embeddings.
type SessionWriter interface {
	Store(id string, embedding oracle.Embedding)
}

// JobStore is the part of the job store a batch processor drives.
type JobStore interface {
	CreateJobForSession(sessionID string, totalImages int) string
	UpdateProgress(id string, currentImage, matchesFound int)
	CompleteJob(id string, matches []job.Match)
	FailJob(id, errorMessage string)
}

// outcome is the per-image result consumed by the batch loop.
type outcome int

const (
	outcomeNoMatch outcome = iota // decoded, faces compared, none close enough (or no face)
	outcomeMatched                // at least one face within the threshold
	outcomeSkipped                // image could not be decoded or the oracle failed
)

func (o outcome) String() string {
	switch o {
	case outcomeMatched:
		return "matched"
	case outcomeSkipped:
		return "skipped"
	default:
		return "no_match"
	}
}

// imageResult is what comparing one candidate image produced.
type imageResult struct {
	outcome  outcome
	distance float64 // best distance across faces; meaningful when faces > 0
	faces    int
	err      error // set when outcome is outcomeSkipped
}
