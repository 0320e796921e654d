// Package mock provides a scriptable in-memory face oracle for testing.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-compare/internal/oracle"
)

// MockOracle maps image bytes to the faces "found" in them.
// Images that were never added are treated as undecodable.
type MockOracle struct {
	mu           sync.RWMutex
	faces        map[string][]oracle.Embedding
	detectErrors map[string]error
	encodeErrors map[string]error

	// BeforeDetect, when set, runs at the start of every Detect call.
	// Tests use it to block or observe the processing loop.
	BeforeDetect func(image []byte)

	DetectCalls atomic.Int64
	EncodeCalls atomic.Int64
}

// NewMockOracle creates a new mock oracle
func NewMockOracle() *MockOracle {
	return &MockOracle{
		faces:        make(map[string][]oracle.Embedding),
		detectErrors: make(map[string]error),
		encodeErrors: make(map[string]error),
	}
}

// AddImage registers image with the given faces. No faces means "no face detected".
func (m *MockOracle) AddImage(image []byte, faces ...oracle.Embedding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if faces == nil {
		faces = []oracle.Embedding{}
	}
	m.faces[string(image)] = faces
}

// FailDetect makes Detect return err for image.
func (m *MockOracle) FailDetect(image []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detectErrors[string(image)] = err
}

// FailEncode makes Encode return err for image.
func (m *MockOracle) FailEncode(image []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encodeErrors[string(image)] = err
}

// Detect returns one synthetic location per registered face. The face index is
// carried in Location.Top so Encode can find it again.
func (m *MockOracle) Detect(ctx context.Context, image []byte) ([]oracle.Location, error) {
	m.DetectCalls.Add(1)
	if m.BeforeDetect != nil {
		m.BeforeDetect(image)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.detectErrors[string(image)]; ok {
		return nil, err
	}
	faces, ok := m.faces[string(image)]
	if !ok {
		return nil, &oracle.InvalidImageError{Reason: "unknown test image"}
	}

	locations := make([]oracle.Location, len(faces))
	for i := range faces {
		locations[i] = oracle.Location{Top: i, Right: i + 1, Bottom: i + 1, Left: i}
	}
	return locations, nil
}

// Encode returns the registered embeddings for the requested locations.
func (m *MockOracle) Encode(ctx context.Context, image []byte, locations []oracle.Location) ([]oracle.Embedding, error) {
	m.EncodeCalls.Add(1)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.encodeErrors[string(image)]; ok {
		return nil, err
	}
	faces, ok := m.faces[string(image)]
	if !ok {
		return nil, &oracle.InvalidImageError{Reason: "unknown test image"}
	}

	embeddings := make([]oracle.Embedding, 0, len(locations))
	for _, loc := range locations {
		if loc.Top < 0 || loc.Top >= len(faces) {
			continue
		}
		embeddings = append(embeddings, faces[loc.Top].Clone())
	}
	return embeddings, nil
}

// Distance uses euclidean distance like the production default.
func (m *MockOracle) Distance(a, b oracle.Embedding) float64 {
	return oracle.EuclideanDistance(a, b)
}

var _ oracle.Oracle = (*MockOracle)(nil)
