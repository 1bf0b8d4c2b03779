package monitor

import (
	"context"
	"sync"
)

// InMemoryStore keeps activity in process memory. Suitable for single-instance
// deployments and tests; distributed deployments use the Redis store so rapid
// retries against different instances still accumulate.
type InMemoryStore struct {
	mu         sync.RWMutex
	activities map[string][]Activity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{activities: make(map[string][]Activity)}
}

func (s *InMemoryStore) Append(_ context.Context, sessionKey string, activity Activity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[sessionKey] = append(s.activities[sessionKey], activity)
	return len(s.activities[sessionKey]), nil
}

func (s *InMemoryStore) Count(_ context.Context, sessionKey string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activities[sessionKey]), nil
}

func (s *InMemoryStore) Clear(_ context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activities, sessionKey)
	return nil
}

// List returns a copy of the recorded activity for a key. Tests only.
func (s *InMemoryStore) List(sessionKey string) []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Activity{}, s.activities[sessionKey]...)
}
