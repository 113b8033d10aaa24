// Package cache provides a read-through cache for single-record registry
// lookups. Only Get results are cached: listing order and name matching are
// server-owned, and every mutating call evicts its key so the controller's
// read-after-write reconciliation always reaches the origin.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"anagrafe/internal/domain"
	"anagrafe/internal/registry"
)

// Store holds cached person records keyed by normalized tax code.
type Store interface {
	Find(ctx context.Context, taxCode string) (domain.Person, bool, error)
	Save(ctx context.Context, p domain.Person) error
	Evict(ctx context.Context, taxCode string) error
}

// Registry decorates a registry.API with a read cache. Cache failures are
// never surfaced: a broken cache degrades to origin reads, it does not break
// registry operations.
type Registry struct {
	api   registry.API
	store Store
	log   *slog.Logger
}

// Wrap builds a caching decorator around api.
func Wrap(api registry.API, store Store, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{api: api, store: store, log: log}
}

func (r *Registry) Get(ctx context.Context, taxCode string) (domain.Person, error) {
	code := domain.NormalizeTaxCode(taxCode)

	if p, ok, err := r.store.Find(ctx, code); err != nil {
		r.log.WarnContext(ctx, "cache lookup failed", "tax_code", code, "error", err)
	} else if ok {
		return p, nil
	}

	p, err := r.api.Get(ctx, code)
	if err != nil {
		return domain.Person{}, err
	}
	if err := r.store.Save(ctx, p); err != nil {
		r.log.WarnContext(ctx, "cache save failed", "tax_code", code, "error", err)
	}
	return p, nil
}

func (r *Registry) Create(ctx context.Context, p domain.Person) error {
	if err := r.api.Create(ctx, p); err != nil {
		return err
	}
	r.evict(ctx, p.TaxCode)
	return nil
}

func (r *Registry) Update(ctx context.Context, taxCode string, p domain.Person) error {
	if err := r.api.Update(ctx, taxCode, p); err != nil {
		return err
	}
	r.evict(ctx, taxCode)
	return nil
}

func (r *Registry) Delete(ctx context.Context, taxCode string) error {
	if err := r.api.Delete(ctx, taxCode); err != nil {
		return err
	}
	r.evict(ctx, taxCode)
	return nil
}

func (r *Registry) List(ctx context.Context) ([]domain.Person, error) {
	return r.api.List(ctx)
}

func (r *Registry) SearchByName(ctx context.Context, query string) ([]domain.Person, error) {
	return r.api.SearchByName(ctx, query)
}

func (r *Registry) evict(ctx context.Context, taxCode string) {
	code := domain.NormalizeTaxCode(taxCode)
	if err := r.store.Evict(ctx, code); err != nil {
		r.log.WarnContext(ctx, "cache evict failed", "tax_code", code, "error", err)
	}
}

var _ registry.API = (*Registry)(nil)

// MemoryStore is an in-process Store with per-entry TTL. Suitable for a
// single operator session; use RedisStore when lookups should be shared.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	person    domain.Person
	expiresAt time.Time
}

// NewMemoryStore creates a memory store whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Find(_ context.Context, taxCode string) (domain.Person, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[taxCode]
	s.mu.RUnlock()
	if !ok {
		return domain.Person{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, taxCode)
		s.mu.Unlock()
		return domain.Person{}, false, nil
	}
	return entry.person, true, nil
}

func (s *MemoryStore) Save(_ context.Context, p domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.TaxCode] = memoryEntry{
		person:    p,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Evict(_ context.Context, taxCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, taxCode)
	return nil
}
