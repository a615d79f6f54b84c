package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Values are kept serialized, so callers never share memory with the store.
// Safe for concurrent use.
type Store[T any] struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory session store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[string][]byte),
	}
}

// Save persists the snapshot in memory.
func (s *Store[T]) Save(ctx context.Context, sessionID string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = raw
	return nil
}

// Load retrieves a copy of the snapshot.
func (s *Store[T]) Load(ctx context.Context, sessionID string) (*T, error) {
	s.mu.RLock()
	raw, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &v, nil
}

// Delete removes the snapshot.
func (s *Store[T]) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns active sessions.
func (s *Store[T]) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
