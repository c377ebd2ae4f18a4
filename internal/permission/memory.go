package permission

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu        sync.Mutex
	grants    map[string]*Grant
	templates map[string]*Template
	next      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grants:    make(map[string]*Grant),
		templates: make(map[string]*Template),
	}
}

func (s *MemoryStore) FindLive(_ context.Context, ownerID, function string) (*Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.OwnerID == ownerID && g.Function == function && g.DeletedAt == nil {
			clone := *g
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Grant
	for _, g := range s.grants {
		if g.OwnerID == ownerID && g.DeletedAt == nil {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, grant *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.OwnerID == grant.OwnerID && g.Function == grant.Function && g.DeletedAt == nil {
			return ErrAlreadyExists
		}
	}
	if grant.ID == "" {
		s.next++
		grant.ID = fmt.Sprintf("grant-%d", s.next)
	}
	now := time.Now().UTC()
	grant.CreatedAt = now
	grant.UpdatedAt = now
	clone := *grant
	s.grants[grant.ID] = &clone
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, upd GrantUpdate) (*Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok || g.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if upd.Function != nil {
		g.Function = *upd.Function
	}
	if upd.IsPermitted != nil {
		g.IsPermitted = *upd.IsPermitted
	}
	g.UpdatedAt = time.Now().UTC()
	clone := *g
	return &clone, nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok || g.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	g.DeletedAt = &now
	g.UpdatedAt = now
	return nil
}

func (s *MemoryStore) CreateTemplate(_ context.Context, tpl *Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl.ID == "" {
		s.next++
		tpl.ID = fmt.Sprintf("tpl-%d", s.next)
	}
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	clone := *tpl
	s.templates[tpl.ID] = &clone
	return nil
}

func (s *MemoryStore) ListTemplates(_ context.Context) ([]Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Template
	for _, tpl := range s.templates {
		out = append(out, *tpl)
	}
	return out, nil
}
