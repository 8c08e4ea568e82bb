package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-lookup/internal/lookup"
)

var (
	// ErrNotFound is returned for unknown or evicted session ids.
	ErrNotFound = errors.New("session not found")
	// ErrFull is returned when the session limit is reached and nothing can
	// be evicted.
	ErrFull = errors.New("session limit reached")
)

// Session is one client's lookup orchestrator.
type Session struct {
	ID           string
	Orchestrator *lookup.Orchestrator
	CreatedAt    time.Time

	lastSeen time.Time // guarded by MemoryStore.mu
}

// MemoryStore is a concurrency-safe in-memory session registry.
// Sessions are never persisted.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*Session

	// retention configuration
	maxSessions int           // max number of live sessions (0 = unlimited)
	maxAge      time.Duration // idle time after which a session is evicted (0 = never)

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxSessions is <= 0, it is treated as unlimited.
func NewMemoryStore(maxSessions int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]*Session),
		maxSessions: maxSessions,
		maxAge:      maxAge,
		now:         time.Now,
	}
}

// Create registers a new session for o.
func (s *MemoryStore) Create(o *lookup.Orchestrator) (*Session, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.data) >= s.maxSessions {
		s.evictLocked(now)
		if len(s.data) >= s.maxSessions && !s.evictOldestIdleLocked() {
			return nil, ErrFull
		}
	}

	sess := &Session{
		ID:           uuid.NewString(),
		Orchestrator: o,
		CreatedAt:    now,
		lastSeen:     now,
	}
	s.data[sess.ID] = sess
	return sess, nil
}

// Get returns the session and refreshes its idle timer.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// EvictIdle drops sessions idle longer than maxAge and returns how many were
// removed. Sessions with a lookup in flight are kept.
func (s *MemoryStore) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(s.now())
}

func (s *MemoryStore) evictLocked(now time.Time) int {
	if s.maxAge <= 0 {
		return 0
	}
	cutoff := now.Add(-s.maxAge)
	removed := 0
	for id, sess := range s.data {
		if sess.lastSeen.Before(cutoff) && !sess.Orchestrator.Busy() {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) evictOldestIdleLocked() bool {
	var oldest *Session
	for _, sess := range s.data {
		if sess.Orchestrator.Busy() {
			continue
		}
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldest = sess
		}
	}
	if oldest == nil {
		return false
	}
	delete(s.data, oldest.ID)
	return true
}
