package state

import (
	"context"
	"sync"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

// MemoryStore keeps transcripts for the lifetime of the process. No eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]contractx.Turn
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]contractx.Turn)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]contractx.Turn, error) {
	id, err := validSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns, ok := s.sessions[id]
	if !ok {
		return nil, ErrStateNotFound
	}
	return contractx.CloneTurns(turns), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, turns []contractx.Turn) error {
	id, err := validSessionID(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = contractx.CloneTurns(turns)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	id, err := validSessionID(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
