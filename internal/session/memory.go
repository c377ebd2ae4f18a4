package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger is an in-process Ledger for tests and local development.
type MemoryLedger struct {
	mu   sync.Mutex
	rows map[string]*TokenRecord
	next int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[string]*TokenRecord)}
}

func (l *MemoryLedger) Insert(_ context.Context, rec *TokenRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[rec.Token]; ok {
		return ErrTokenExists
	}
	if rec.ID == "" {
		l.next++
		rec.ID = fmt.Sprintf("mem-%d", l.next)
	}
	clone := *rec
	l.rows[rec.Token] = &clone
	return nil
}

func (l *MemoryLedger) FindActiveByToken(_ context.Context, token string) (*TokenRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.rows[token]
	if !ok || !rec.Active {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (l *MemoryLedger) Deactivate(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.rows[token]; ok {
		rec.Active = false
	}
	return nil
}

func (l *MemoryLedger) DeactivateSessionsBefore(_ context.Context, ownerID string, issuedBefore time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.rows {
		if rec.OwnerID == ownerID && rec.Kind == KindSession && rec.Active && rec.IssuedAt.Before(issuedBefore) {
			rec.Active = false
		}
	}
	return nil
}

func (l *MemoryLedger) DeactivateAllForOwner(_ context.Context, ownerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.rows {
		if rec.OwnerID == ownerID && rec.Active {
			rec.Active = false
		}
	}
	return nil
}

func (l *MemoryLedger) PurgeExpiredBefore(_ context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for token, rec := range l.rows {
		if rec.ExpiresAt.Before(now) {
			delete(l.rows, token)
			n++
		}
	}
	return n, nil
}
