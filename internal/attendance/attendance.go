// Package attendance records clock-in/clock-out punches, including the
// kiosk QR flow where the punch is authenticated by a short-lived token
// instead of the standard bearer session.
package attendance

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("attendance: not found")

// Punch sources.
const (
	SourceWeb    = "web"
	SourceMobile = "mobile"
	SourceKiosk  = "kiosk-qr"
)

// Punch is a single clock event for a user.
type Punch struct {
	ID        string
	OwnerID   string
	Source    string
	Note      string
	PunchedAt time.Time
}

// Store persists punches.
type Store interface {
	Create(ctx context.Context, p *Punch) error
	ListByOwner(ctx context.Context, ownerID string, since time.Time) ([]Punch, error)
}
