package credential

import (
	"context"
	"sync"
	"time"

	"pharmledger/pkg/platform/sentinel"
)

// InMemory keeps credentials in process memory. One mutex serializes writes
// so the map mutation and event append commit together.
type InMemory struct {
	mu     sync.RWMutex
	byHash map[string]Credential
	events []IssuedEvent
	lastTS time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{byHash: make(map[string]Credential)}
}

func (s *InMemory) Create(_ context.Context, record Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[record.Hash]; exists {
		return sentinel.ErrConflict
	}

	if record.IssuedAt.Before(s.lastTS) {
		record.IssuedAt = s.lastTS
	} else {
		s.lastTS = record.IssuedAt
	}

	s.byHash[record.Hash] = record
	s.events = append(s.events, IssuedEvent{Credential: record})
	return nil
}

func (s *InMemory) Find(_ context.Context, hash string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.byHash[hash]; ok {
		return record, nil
	}
	return Credential{}, sentinel.ErrNotFound
}

func (s *InMemory) Exists(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[hash]
	return ok, nil
}

func (s *InMemory) Events(_ context.Context) ([]IssuedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]IssuedEvent{}, s.events...), nil
}
