package prescription

import (
	"context"
	"sync"
	"time"

	"pharmledger/pkg/platform/sentinel"
)

// InMemory keeps prescriptions in process memory. One mutex serializes
// writes so map mutation and event append commit together; the Fulfill
// callbacks run while the lock is held.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]Prescription
	events []Event
	lastTS time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]Prescription)}
}

func (s *InMemory) Create(_ context.Context, record Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[record.PrescriptionID]; exists {
		return sentinel.ErrConflict
	}

	record.IssuedAt = s.clamp(record.IssuedAt)

	s.byID[record.PrescriptionID] = record
	s.events = append(s.events, Event{Type: EventIssued, Prescription: record})
	return nil
}

func (s *InMemory) Find(_ context.Context, prescriptionID string) (Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.byID[prescriptionID]; ok {
		return record, nil
	}
	return Prescription{}, sentinel.ErrNotFound
}

func (s *InMemory) Fulfill(_ context.Context, prescriptionID string, validate func(Prescription) error, apply func(*Prescription)) (Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[prescriptionID]
	if !ok {
		return Prescription{}, sentinel.ErrNotFound
	}
	if err := validate(record); err != nil {
		return Prescription{}, err
	}

	apply(&record)
	if record.FulfilledAt != nil {
		clamped := s.clamp(*record.FulfilledAt)
		record.FulfilledAt = &clamped
	}

	s.byID[prescriptionID] = record
	s.events = append(s.events, Event{Type: EventFulfilled, Prescription: record})
	return record, nil
}

func (s *InMemory) Events(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...), nil
}

// clamp keeps event timestamps monotonic. Callers must hold the write lock.
func (s *InMemory) clamp(ts time.Time) time.Time {
	if ts.Before(s.lastTS) {
		return s.lastTS
	}
	s.lastTS = ts
	return ts
}
