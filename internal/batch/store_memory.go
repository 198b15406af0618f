package batch

import (
	"context"
	"sync"
	"time"

	"pharmledger/pkg/platform/sentinel"
)

// InMemory keeps batches in process memory. One mutex serializes writes so
// the map mutation and event append commit together; reads run concurrently.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]Batch
	events []RegisteredEvent
	lastTS time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]Batch)}
}

func (s *InMemory) Create(_ context.Context, record Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[record.BatchID]; exists {
		return sentinel.ErrConflict
	}

	if record.RegisteredAt.Before(s.lastTS) {
		record.RegisteredAt = s.lastTS
	} else {
		s.lastTS = record.RegisteredAt
	}

	s.byID[record.BatchID] = record
	s.events = append(s.events, RegisteredEvent{Batch: record})
	return nil
}

func (s *InMemory) Find(_ context.Context, batchID string) (Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.byID[batchID]; ok {
		return record, nil
	}
	return Batch{}, sentinel.ErrNotFound
}

func (s *InMemory) Exists(_ context.Context, batchID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[batchID]
	return ok, nil
}

func (s *InMemory) Events(_ context.Context) ([]RegisteredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RegisteredEvent{}, s.events...), nil
}
