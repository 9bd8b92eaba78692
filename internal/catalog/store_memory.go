package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memRow struct {
	p         Product
	createdAt time.Time
	updatedAt time.Time
}

// MemStore is an in-process RemoteStore.
type MemStore struct {
	mu  sync.RWMutex
	m   map[string]memRow
	now func() time.Time
}

func NewMemStore(seed ...Product) *MemStore {
	s := &MemStore{m: map[string]memRow{}, now: time.Now}
	for _, p := range seed {
		ts := s.now()
		s.m[p.ID] = memRow{p: p.normalized(), createdAt: ts, updatedAt: ts}
	}
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListByName(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, r := range s.m {
		out = append(out, r.p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemStore) GetByID(ctx context.Context, id string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.m[id]
	return r.p, ok, nil
}

func (s *MemStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.m {
		if strings.EqualFold(r.p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) Insert(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[p.ID]; ok {
		return Product{}, fmt.Errorf("insert %q: %w", p.ID, ErrDuplicate)
	}
	ts := s.now()
	p = p.normalized()
	s.m[p.ID] = memRow{p: p, createdAt: ts, updatedAt: ts}
	return p, nil
}

func (s *MemStore) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.m[id]
	if !ok {
		return Product{}, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	r.p = patch.Apply(r.p).normalized()
	r.updatedAt = s.now()
	s.m[id] = r
	return r.p, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, id)
	return nil
}

func (s *MemStore) Upsert(ctx context.Context, p Product, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.m[p.ID]
	if !exists || r.createdAt.IsZero() {
		r.createdAt = at
	}
	r.p = p.normalized()
	r.updatedAt = at
	s.m[p.ID] = r
	return !exists, nil
}

// Timestamps reports the stored creation and modification times of id.
func (s *MemStore) Timestamps(id string) (created, updated time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.m[id]
	return r.createdAt, r.updatedAt, ok
}
