package memory

import (
	"sync"

	"studyhub/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) GetOrCreate(key string, create func() *app.Attempt) (*app.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt, ok := s.attempts[key]; ok {
		return attempt, false
	}
	attempt := create()
	s.attempts[key] = attempt
	return attempt, true
}

func (s *AttemptStore) Get(key string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[key]
	return attempt, ok
}

func (s *AttemptStore) DeleteIfIdle(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[key]
	if !ok || !attempt.Idle() {
		return false
	}
	delete(s.attempts, key)
	return true
}

// Len reports the number of live attempts.
func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}
