package facematch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel/codes"

	"github.com/kozaktomas/face-compare/internal/oracle"
)

// Registrar turns a single-face image into a session's reference embedding.
type Registrar struct {
	sessions SessionWriter
	oracle   oracle.Oracle
	decode   oracle.Decoder
	logger   *bolt.Logger
}

// NewRegistrar creates a registrar. Only WithDecoder applies; the threshold is ignored.
func NewRegistrar(sessions SessionWriter, o oracle.Oracle, logger *bolt.Logger, opts ...Option) *Registrar {
	cfg := buildOptions(opts)
	return &Registrar{
		sessions: sessions,
		oracle:   o,
		decode:   cfg.decode,
		logger:   logger,
	}
}

// Register stores the embedding of the only face in payload under sessionID.
// It fails with ErrInvalidImage, ErrNoFaceDetected or ErrMultipleFaces for bad
// input and ErrEncodingFailed when the oracle cannot produce an embedding.
func (r *Registrar) Register(ctx context.Context, sessionID, payload string) error {
	ctx, span := tracer.Start(ctx, "facematch.register")
	defer span.End()

	embedding, err := r.extract(ctx, payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if !IsValidationError(err) {
			r.logger.Error().Str("session_id", sanitizeForLog(sessionID)).Err(err).Msg("face registration failed")
		}
		return err
	}

	r.sessions.Store(sessionID, embedding)
	r.logger.Info().Str("session_id", sanitizeForLog(sessionID)).Int("dim", len(embedding)).Msg("reference face registered")
	return nil
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

func (r *Registrar) extract(ctx context.Context, payload string) (oracle.Embedding, error) {
	img, err := r.decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	locations, err := r.oracle.Detect(ctx, img)
	if err != nil {
		if oracle.IsInvalidImage(err) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	switch {
	case len(locations) == 0:
		return nil, ErrNoFaceDetected
	case len(locations) > 1:
		return nil, ErrMultipleFaces
	}

	embeddings, err := r.oracle.Encode(ctx, img, locations)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, ErrEncodingFailed
	}
	return embeddings[0], nil
}

// ErrorMessage returns the client-facing message for a registration or lookup error.
// Wrapped details stay in the logs.
func ErrorMessage(err error) string {
	for _, sentinel := range []error{
		ErrInvalidImage, ErrNoFaceDetected, ErrMultipleFaces,
		ErrEncodingFailed, ErrSessionNotFound, ErrJobNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Internal server error"
}
