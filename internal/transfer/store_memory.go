package transfer

import (
	"context"
	"sync"
	"time"
)

// InMemory keeps the transfer log in process memory. One mutex serializes
// appends so sequence assignment, map mutation, and event append commit
// together.
type InMemory struct {
	mu      sync.RWMutex
	byBatch map[string][]Record
	events  []LoggedEvent
	lastTS  time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{byBatch: make(map[string][]Record)}
}

func (s *InMemory) Append(_ context.Context, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.Sequence = len(s.byBatch[record.BatchID])
	if record.LoggedAt.Before(s.lastTS) {
		record.LoggedAt = s.lastTS
	} else {
		s.lastTS = record.LoggedAt
	}

	s.byBatch[record.BatchID] = append(s.byBatch[record.BatchID], record)
	s.events = append(s.events, LoggedEvent{Record: record})
	return record, nil
}

func (s *InMemory) ListByBatch(_ context.Context, batchID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.byBatch[batchID]...), nil
}

func (s *InMemory) CountByBatch(_ context.Context, batchID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byBatch[batchID]), nil
}

func (s *InMemory) Events(_ context.Context) ([]LoggedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LoggedEvent{}, s.events...), nil
}
