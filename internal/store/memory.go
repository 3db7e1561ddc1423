package store

import (
	"context"
	"sync"

	"github.com/ogas/wager-engine/internal/model"
)

// MemoryStore implements Store with an in-memory map. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu           sync.RWMutex
	participants map[string]*model.Participant
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants: make(map[string]*model.Participant),
	}
}

func (s *MemoryStore) GetParticipant(_ context.Context, id string) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) UpsertParticipant(_ context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	s.participants[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) ListParticipants(_ context.Context) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants := make([]model.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, *p.Clone())
	}
	return participants, nil
}
