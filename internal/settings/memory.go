package settings

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	byStore map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byStore: make(map[string]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, store string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byStore[store]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Settings = cloneMap(rec.Settings)
	return &rec, nil
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byStore[rec.Store]; ok {
		return ErrExists
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now

	stored := *rec
	stored.Settings = cloneMap(rec.Settings)
	s.byStore[rec.Store] = stored
	return nil
}

func (s *MemoryStore) Update(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byStore[rec.Store]
	if !ok {
		return ErrNotFound
	}
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = s.now()

	stored := *rec
	stored.Settings = cloneMap(rec.Settings)
	s.byStore[rec.Store] = stored
	return nil
}

func (s *MemoryStore) CreateTables(context.Context) error { return nil }

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
