package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	tasks []Task
	next  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		s.next++
		t.ID = fmt.Sprintf("task-%d", s.next)
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks = append(s.tasks, *t)
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}
