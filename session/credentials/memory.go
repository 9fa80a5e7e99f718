package credentials

import (
	"sync"
	"time"
)

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	tokens    Tokens
	horizon   time.Time
	retention Retention
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(retention Retention) *MemoryStore {
	return &MemoryStore{retention: retention}
}

func (s *MemoryStore) Read() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *MemoryStore) WriteAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Access = token
}

func (s *MemoryStore) WriteAll(access, refresh string, persist bool) {
	horizon := s.retention.Horizon(persist)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{Access: access, Refresh: refresh}
	s.horizon = horizon
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.horizon = time.Time{}
}

// Horizon returns the retention expiry of the current pair, zero when session scoped.
func (s *MemoryStore) Horizon() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.horizon
}
