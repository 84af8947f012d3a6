// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/doula/internal/triage"
)

// Store holds mother and CHW records in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	mothers map[string]*triage.Mother
	chws    map[string]*triage.CHW
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		mothers: make(map[string]*triage.Mother),
		chws:    make(map[string]*triage.CHW),
	}
}

// GetMother retrieves a mother record by ID. Returns a copy.
func (s *Store) GetMother(_ context.Context, id string) (*triage.Mother, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mothers[id]
	if !ok {
		return nil, false, nil
	}
	cp := *m
	return &cp, true, nil
}

// ListMothers returns all mother records ordered by ID.
func (s *Store) ListMothers(_ context.Context) ([]*triage.Mother, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*triage.Mother, 0, len(s.mothers))
	for _, m := range s.mothers {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutMother stores a copy of the mother record.
func (s *Store) PutMother(_ context.Context, m *triage.Mother) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.mothers[m.ID] = &cp
	return nil
}

// GetCHW retrieves a CHW record by ID. Returns a copy.
func (s *Store) GetCHW(_ context.Context, id string) (*triage.CHW, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chws[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

// ListCHWs returns all CHW records ordered by ID.
func (s *Store) ListCHWs(_ context.Context) ([]*triage.CHW, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*triage.CHW, 0, len(s.chws))
	for _, c := range s.chws {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutCHW stores a copy of the CHW record.
func (s *Store) PutCHW(_ context.Context, c *triage.CHW) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.chws[c.ID] = &cp
	return nil
}
