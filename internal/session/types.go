package session

import "time"

// Token kinds stored in the ledger. Session tokens are exclusive per user;
// kiosk tokens are short-lived and additive.
const (
	KindSession = "session"
	KindKiosk   = "kiosk"
)

// TokenRecord is a row in the token ledger: the server-side source of truth
// for revocation, independent of the token's own signed expiry.
type TokenRecord struct {
	ID        string
	Token     string
	OwnerID   string
	Kind      string
	Active    bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is the authenticated caller, derived once per request from the
// validated token's claims and carried in the request context.
type Identity struct {
	UserID string
	Email  string
	Role   string
}
