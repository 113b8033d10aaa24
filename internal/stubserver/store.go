package stubserver

import (
	"strings"
	"sync"

	"anagrafe/internal/domain"
	"anagrafe/pkg/sentinel"
)

// memoryStore keeps person records in a map keyed by tax code. It stands in
// for the real registry's persistence during local development and tests;
// it is not a storage design.
type memoryStore struct {
	mu      sync.RWMutex
	persons map[string]domain.Person
}

func newMemoryStore() *memoryStore {
	return &memoryStore{persons: make(map[string]domain.Person)}
}

func (s *memoryStore) save(p domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.persons[p.TaxCode]; exists {
		return sentinel.ErrConflict
	}
	s.persons[p.TaxCode] = p
	return nil
}

func (s *memoryStore) find(taxCode string) (domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[taxCode]
	if !ok {
		return domain.Person{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) replace(taxCode string, p domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[taxCode]; !ok {
		return sentinel.ErrNotFound
	}
	s.persons[taxCode] = p
	return nil
}

func (s *memoryStore) delete(taxCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[taxCode]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.persons, taxCode)
	return nil
}

func (s *memoryStore) all() []domain.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, p)
	}
	return out
}

// searchName matches query as a case-insensitive substring of name or
// surname, the matching the real registry is assumed to approximate.
func (s *memoryStore) searchName(query string) []domain.Person {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Person, 0)
	for _, p := range s.persons {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Surname), q) {
			out = append(out, p)
		}
	}
	return out
}
