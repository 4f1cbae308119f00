package memory

import (
	"context"
	"sync"

	"carelock/internal/audit"
	"carelock/internal/domain"
)

// InMemoryStore keeps audit entries in process memory. It backs tests and
// local development; production uses the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Search returns matching entries newest first.
func (s *InMemoryStore) Search(_ context.Context, filter audit.Filter) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.AuditEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(s.entries[i]) {
			matched = append(matched, s.entries[i])
			if filter.Limit > 0 && len(matched) == filter.Limit {
				break
			}
		}
	}
	return matched, nil
}

// All returns every entry in append order. Test helper.
func (s *InMemoryStore) All() []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEntry{}, s.entries...)
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
