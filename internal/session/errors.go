package session

import "errors"

var (
	// ErrInvalidToken indicates a signature or claim failure (bad signature,
	// expired, malformed, wrong kind).
	ErrInvalidToken = errors.New("session: invalid token")

	// ErrTokenRevoked indicates the token is cryptographically fine but the
	// ledger has no active row for it (revoked, superseded or never issued).
	ErrTokenRevoked = errors.New("session: token revoked or unknown")

	// ErrTokenExists indicates a ledger insert collided with an existing
	// token string.
	ErrTokenExists = errors.New("session: token already exists")

	// ErrNotFound indicates the ledger has no matching row.
	ErrNotFound = errors.New("session: not found")
)
