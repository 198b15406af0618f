package roles

import (
	"context"
	"sync"
	"time"

	id "pharmledger/pkg/domain"
)

// InMemory keeps role grants in process memory. One mutex serializes writes;
// reads run concurrently against the committed state.
type InMemory struct {
	mu     sync.RWMutex
	held   map[id.Account]map[id.Role]struct{}
	events []GrantedEvent
	lastTS time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{held: make(map[id.Account]map[id.Role]struct{})}
}

func (s *InMemory) Grant(_ context.Context, event GrantedEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.held[event.Account]
	if !ok {
		set = make(map[id.Role]struct{})
		s.held[event.Account] = set
	}
	if _, already := set[event.Role]; already {
		return false, nil
	}

	// Timestamps never regress even if the wall clock does.
	if event.GrantedAt.Before(s.lastTS) {
		event.GrantedAt = s.lastTS
	} else {
		s.lastTS = event.GrantedAt
	}

	set[event.Role] = struct{}{}
	s.events = append(s.events, event)
	return true, nil
}

func (s *InMemory) Has(_ context.Context, account id.Account, role id.Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.held[account][role]
	return ok, nil
}

func (s *InMemory) List(_ context.Context, account id.Account) ([]id.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.held[account]
	out := make([]id.Role, 0, len(set))
	for _, role := range id.DomainRoles {
		if _, ok := set[role]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (s *InMemory) Events(_ context.Context) ([]GrantedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]GrantedEvent{}, s.events...), nil
}
