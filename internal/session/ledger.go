package session

import (
	"context"
	"time"
)

// Ledger persists issued tokens and their active flag. Expiry is checked by
// the caller from the signed claims, not here: ledger revocation and
// cryptographic expiry are independent failure modes and stay distinguishable.
type Ledger interface {
	// Insert stores a new ledger row. Returns ErrTokenExists when the token
	// string is already present, active or not.
	Insert(ctx context.Context, rec *TokenRecord) error

	// FindActiveByToken returns the row for token only if it is still active.
	// Returns ErrNotFound otherwise. An expired-but-active row is returned.
	FindActiveByToken(ctx context.Context, token string) (*TokenRecord, error)

	// Deactivate flips a single token to inactive. Idempotent: unknown or
	// already-inactive tokens are a no-op.
	Deactivate(ctx context.Context, token string) error

	// DeactivateSessionsBefore deactivates every active session-kind row for
	// owner issued strictly before issuedBefore. Kiosk rows are untouched.
	DeactivateSessionsBefore(ctx context.Context, ownerID string, issuedBefore time.Time) error

	// DeactivateAllForOwner deactivates every active row for owner,
	// regardless of kind. Forced-logout path.
	DeactivateAllForOwner(ctx context.Context, ownerID string) error

	// PurgeExpiredBefore deletes rows whose expiry precedes now, in a single
	// atomic statement. Returns the number of rows removed.
	PurgeExpiredBefore(ctx context.Context, now time.Time) (int64, error)
}
