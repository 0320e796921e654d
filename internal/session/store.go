// Package session keeps registered reference embeddings in memory with a
// sliding idle expiry.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/oracle"
)

// record is one registered session. embedding is never mutated after creation.
type record struct {
	embedding    oracle.Embedding
	createdAt    time.Time
	lastAccessed atomic.Int64 // unix nanoseconds
}

// touch moves lastAccessed forward to t. Concurrent readers never move it back.
func (r *record) touch(t time.Time) {
	ns := t.UnixNano()
	for {
		cur := r.lastAccessed.Load()
		if ns <= cur || r.lastAccessed.CompareAndSwap(cur, ns) {
			return
		}
	}
}

// Store is a TTL-bounded cache of session id -> reference embedding.
// It is safe for concurrent use.
type Store struct {
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*record
	mu       sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the idle expiry (default 24h).
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		ttl:      constants.DefaultSessionTTL,
		now:      time.Now,
		sessions: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured idle expiry.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Store registers embedding under id, replacing any previous record.
func (s *Store) Store(id string, embedding oracle.Embedding) {
	now := s.now()
	rec := &record{
		embedding: embedding.Clone(),
		createdAt: now,
	}
	rec.lastAccessed.Store(now.UnixNano())

	s.mu.Lock()
	s.sessions[id] = rec
	s.mu.Unlock()
}

// Retrieve returns a copy of the embedding registered under id and refreshes
// its last access time. It reports false when the session does not exist.
func (s *Store) Retrieve(id string) (oracle.Embedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	rec.touch(s.now())
	return rec.embedding.Clone(), true
}

// Delete removes the session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// EvictExpired removes sessions idle for longer than the TTL and returns how many were removed.
// It holds the write lock for the whole scan, so a Retrieve that refreshed a
// record before the scan started is always observed.
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, rec := range s.sessions {
		idle := now.Sub(time.Unix(0, rec.lastAccessed.Load()))
		if idle > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Info describes a session without exposing its embedding.
type Info struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Info returns metadata for id without refreshing its last access time.
func (s *Store) Info(id string) (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return Info{}, false
	}
	last := time.Unix(0, rec.lastAccessed.Load())
	return Info{
		ID:           id,
		CreatedAt:    rec.createdAt,
		LastAccessed: last,
		ExpiresAt:    last.Add(s.ttl),
	}, true
}
