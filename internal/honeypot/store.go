package honeypot

import (
	"context"
	"hash/fnv"
	"sync"
)

// Limits are the stop conditions for a session.
type Limits struct {
	MaxMessages   int
	MaxNoNewIntel int
}

// DefaultLimits returns the standard thresholds: 15 messages or 3 turns
// without new intelligence.
func DefaultLimits() Limits {
	return Limits{MaxMessages: 15, MaxNoNewIntel: 3}
}

// withDefaults fills each non-positive field from DefaultLimits.
func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxMessages <= 0 {
		l.MaxMessages = def.MaxMessages
	}
	if l.MaxNoNewIntel <= 0 {
		l.MaxNoNewIntel = def.MaxNoNewIntel
	}
	return l
}

// IsTerminal reports whether a session has hit a stop condition.
func IsTerminal(state *SessionState, limits Limits) bool {
	if state == nil {
		return false
	}
	return state.TotalMessageCount >= limits.MaxMessages ||
		state.ConsecutiveNoNewIntel >= limits.MaxNoNewIntel
}

// SessionStore owns session state keyed by session id.
type SessionStore interface {
	// GetOrCreate returns the stored state, inserting a fresh one for unseen ids.
	GetOrCreate(ctx context.Context, sessionID string) *SessionState
	// Save replaces the stored state for sessionID.
	Save(ctx context.Context, sessionID string, state *SessionState)
	// Lock serializes work on one session id. Callers must invoke the returned func.
	Lock(sessionID string) func()
	// Len reports how many sessions are tracked.
	Len() int
}

const sessionLockShards = 256

// MemorySessionStore keeps sessions for the lifetime of the process.
// Sessions are never evicted.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
	locks    [sessionLockShards]sync.Mutex
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*SessionState)}
}

func (s *MemorySessionStore) GetOrCreate(_ context.Context, sessionID string) *SessionState {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return state
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.sessions[sessionID]; ok {
		return state
	}
	state = NewSessionState()
	s.sessions[sessionID] = state
	return state
}

func (s *MemorySessionStore) Save(_ context.Context, sessionID string, state *SessionState) {
	s.mu.Lock()
	s.sessions[sessionID] = state
	s.mu.Unlock()
}

// Lock uses a fixed pool of mutexes so memory stays bounded regardless of
// how many ids are seen. Two ids may share a shard.
func (s *MemorySessionStore) Lock(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	mu := &s.locks[h.Sum32()%sessionLockShards]
	mu.Lock()
	return mu.Unlock
}

func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ SessionStore = (*MemorySessionStore)(nil)
