package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	punches []Punch
	next    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, p *Punch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		s.next++
		p.ID = fmt.Sprintf("punch-%d", s.next)
	}
	if p.PunchedAt.IsZero() {
		p.PunchedAt = time.Now().UTC()
	}
	s.punches = append(s.punches, *p)
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string, since time.Time) ([]Punch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Punch
	for _, p := range s.punches {
		if p.OwnerID == ownerID && !p.PunchedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}
