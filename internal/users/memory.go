package users

import (
	"context"
	"strings"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*User
	byEml map[string]*User
}

func NewMemoryStore(seed ...*User) *MemoryStore {
	s := &MemoryStore{
		byID:  make(map[string]*User),
		byEml: make(map[string]*User),
	}
	for _, u := range seed {
		s.Put(u)
	}
	return s
}

func (s *MemoryStore) Put(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *u
	s.byID[u.ID] = &clone
	s.byEml[strings.ToLower(u.Email)] = &clone
}

func (s *MemoryStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEml[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}
