package facematch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/job"
	"github.com/kozaktomas/face-compare/internal/oracle"
)

var tracer = otel.Tracer("github.com/kozaktomas/face-compare/internal/facematch")

// Processor runs batch comparison jobs, one goroutine per job.
// Jobs share no state besides the stores, so they never wait on each other.
type Processor struct {
	sessions  SessionReader
	jobs      JobStore
	oracle    oracle.Oracle
	decode    oracle.Decoder
	threshold float64
	logger    *bolt.Logger

	wg sync.WaitGroup
}

// Option configures a Processor or Registrar.
type Option func(*options)

type options struct {
	threshold float64
	decode    oracle.Decoder
}

// WithThreshold sets the maximum distance accepted as a match (default 0.7).
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		if threshold > 0 {
			o.threshold = threshold
		}
	}
}

// WithDecoder replaces the payload decoder (default: base64 + JPEG normalization).
func WithDecoder(decode oracle.Decoder) Option {
	return func(o *options) {
		if decode != nil {
			o.decode = decode
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		threshold: constants.DefaultMatchThreshold,
		decode:    oracle.NewDecoder(constants.MaxImageSize),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewProcessor creates a batch processor.
func NewProcessor(sessions SessionReader, jobs JobStore, o oracle.Oracle, logger *bolt.Logger, opts ...Option) *Processor {
	cfg := buildOptions(opts)
	return &Processor{
		sessions:  sessions,
		jobs:      jobs,
		oracle:    o,
		decode:    cfg.decode,
		threshold: cfg.threshold,
		logger:    logger,
	}
}

// Threshold returns the match threshold in use.
func (p *Processor) Threshold() float64 {
	return p.threshold
}

// Submit validates that the session exists, creates a job and starts it in the background.
// It returns the new job id without waiting for processing.
func (p *Processor) Submit(ctx context.Context, sessionID string, images []string) (string, error) {
	if _, ok := p.sessions.Retrieve(sessionID); !ok {
		return "", ErrSessionNotFound
	}

	jobID := p.jobs.CreateJobForSession(sessionID, len(images))
	p.Start(ctx, jobID, sessionID, images)
	return jobID, nil
}

// Start runs the job in a new goroutine. The job outlives ctx's cancellation;
// only ctx's values (trace context) are kept.
func (p *Processor) Start(ctx context.Context, jobID, sessionID string, images []string) {
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(ctx, jobID, sessionID, images)
	}()
}

// Wait blocks until every started job has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Run processes one job synchronously and always leaves it in a terminal state.
func (p *Processor) Run(ctx context.Context, jobID, sessionID string, images []string) {
	ctx, span := tracer.Start(ctx, "facematch.batch", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.Int("job.total_images", len(images)),
	))
	defer span.End()

	log := p.logger.With().Str("job_id", jobID).Logger()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("unexpected error: %v", r)
			log.Error().Err(err).Str("stack", string(debug.Stack())).Msg("batch processing panicked")
			span.SetStatus(codes.Error, err.Error())
			p.jobs.FailJob(jobID, err.Error())
		}
	}()

	// The reference is read once; deleting the session later does not affect this job.
	reference, ok := p.sessions.Retrieve(sessionID)
	if !ok {
		span.SetStatus(codes.Error, ErrSessionNotFound.Error())
		p.jobs.FailJob(jobID, ErrSessionNotFound.Error())
		return
	}

	log.Info().Int("images", len(images)).Str("threshold", formatDistance(p.Threshold())).Msg("batch comparison started")

	matches := make([]job.Match, 0)
	skipped := 0
	for i, payload := range images {
		res := p.compareImage(ctx, reference, payload)
		switch res.outcome {
		case outcomeMatched:
			matches = append(matches, job.Match{Index: i, Distance: res.distance})
			log.Info().Int("index", i).Str("outcome", res.outcome.String()).Int("faces", res.faces).Str("distance", formatDistance(res.distance)).Msg("image matched")
		case outcomeSkipped:
			// Skipped images still advance progress below, so current_image reaches total_images.
			skipped++
			log.Warn().Int("index", i).Str("outcome", res.outcome.String()).Err(res.err).Msg("failed to process image, treating as no match")
		}
		p.jobs.UpdateProgress(jobID, i+1, len(matches))
	}

	span.SetAttributes(attribute.Int("job.matches", len(matches)), attribute.Int("job.skipped", skipped))
	p.jobs.CompleteJob(jobID, matches)
	log.Info().Int("matches", len(matches)).Int("skipped", skipped).Msg("batch comparison completed")
}

// compareImage decodes one candidate, asks the oracle for its faces and keeps the
// closest one. Any failure is reported as outcomeSkipped rather than returned.
func (p *Processor) compareImage(ctx context.Context, reference oracle.Embedding, payload string) (res imageResult) {
	defer func() {
		if r := recover(); r != nil {
			res = imageResult{outcome: outcomeSkipped, err: fmt.Errorf("oracle panicked: %v", r)}
		}
	}()

	img, err := p.decode(payload)
	if err != nil {
		return imageResult{outcome: outcomeSkipped, err: fmt.Errorf("decoding image: %w", err)}
	}

	locations, err := p.oracle.Detect(ctx, img)
	if err != nil {
		return imageResult{outcome: outcomeSkipped, err: fmt.Errorf("detecting faces: %w", err)}
	}
	if len(locations) == 0 {
		return imageResult{outcome: outcomeNoMatch}
	}

	embeddings, err := p.oracle.Encode(ctx, img, locations)
	if err != nil {
		return imageResult{outcome: outcomeSkipped, err: fmt.Errorf("encoding faces: %w", err)}
	}
	if len(embeddings) == 0 {
		return imageResult{outcome: outcomeNoMatch}
	}

	best := bestDistance(p.oracle, reference, embeddings)
	res = imageResult{outcome: outcomeNoMatch, distance: best, faces: len(embeddings)}
	if best <= p.threshold {
		res.outcome = outcomeMatched
	}
	return res
}

// bestDistance returns the smallest distance between reference and any of embeddings.
// embeddings must not be empty.
func bestDistance(o oracle.Oracle, reference oracle.Embedding, embeddings []oracle.Embedding) float64 {
	best := o.Distance(reference, embeddings[0])
	for _, e := range embeddings[1:] {
		best = min(best, o.Distance(reference, e))
	}
	return best
}

// formatDistance renders a distance for log fields.
func formatDistance(d float64) string {
	return strconv.FormatFloat(d, 'f', 4, 64)
}
