package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultKioskTTL   = 15 * time.Minute

	// kioskTokenType marks kiosk-scoped tokens in the signed claims.
	kioskTokenType = "qrcode"
)

// Config is the signing configuration, constructed once at startup and
// injected. Never read lazily from the environment inside the hot path.
type Config struct {
	Secret     []byte
	SessionTTL time.Duration
	KioskTTL   time.Duration
}

// Claims are the signed token claims. Identity comes from here on every
// request, not from the ledger row.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints HS256 session tokens, registers them in the ledger and
// validates presented tokens against both the signature and the ledger.
type Issuer struct {
	ledger     Ledger
	secret     []byte
	sessionTTL time.Duration
	kioskTTL   time.Duration
	now        func() time.Time
}

// Option configures Issuer behavior.
type Option func(*Issuer)

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) Option {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer. A missing signing secret is a fatal
// configuration error: tokens are never issued unsigned.
func NewIssuer(ledger Ledger, cfg Config, opts ...Option) (*Issuer, error) {
	if ledger == nil {
		return nil, errors.New("session: ledger is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session: signing secret is not configured")
	}
	iss := &Issuer{
		ledger:     ledger,
		secret:     cfg.Secret,
		sessionTTL: cfg.SessionTTL,
		kioskTTL:   cfg.KioskTTL,
		now:        time.Now,
	}
	if iss.sessionTTL <= 0 {
		iss.sessionTTL = defaultSessionTTL
	}
	if iss.kioskTTL <= 0 {
		iss.kioskTTL = defaultKioskTTL
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss, nil
}

// IssueSession mints a full session token for the user. Logging in supersedes
// every other active session for the account: prior session rows are
// deactivated first, scoped to tokens issued strictly before this one, so a
// concurrent straggler cannot deactivate the row inserted here. Kiosk rows
// are left alone.
func (i *Issuer) IssueSession(ctx context.Context, userID, email, role string) (string, error) {
	now := i.now().UTC()
	if err := i.ledger.DeactivateSessionsBefore(ctx, userID, now); err != nil {
		return "", fmt.Errorf("deactivate prior sessions: %w", err)
	}
	return i.mint(ctx, userID, email, role, "", KindSession, now, i.sessionTTL)
}

// IssueKioskSession mints a short-lived kiosk token for unattended-device
// flows. Additive: other sessions stay active.
func (i *Issuer) IssueKioskSession(ctx context.Context, userID, email, role string) (string, error) {
	return i.mint(ctx, userID, email, role, kioskTokenType, KindKiosk, i.now().UTC(), i.kioskTTL)
}

// KioskTTL reports the configured kiosk token lifetime.
func (i *Issuer) KioskTTL() time.Duration {
	return i.kioskTTL
}

// Revoke deactivates a single token (logout). Idempotent.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	return i.ledger.Deactivate(ctx, strings.TrimSpace(token))
}

// RevokeAllFor deactivates every active token for the user, kiosk tokens
// included. Administrative forced-logout path.
func (i *Issuer) RevokeAllFor(ctx context.Context, userID string) error {
	return i.ledger.DeactivateAllForOwner(ctx, userID)
}

// Authenticate validates a bearer token end to end: signature and expiry from
// the signed claims, then ledger activity. The returned identity comes from
// the claims, never from the ledger row.
func (i *Issuer) Authenticate(ctx context.Context, raw string) (Identity, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return Identity{}, err
	}
	if err := i.checkLedger(ctx, raw, claims); err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// AuthenticateKiosk validates a kiosk token: same checks as Authenticate plus
// the kiosk type marker. A full session token is rejected here.
func (i *Issuer) AuthenticateKiosk(ctx context.Context, raw string) (Identity, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return Identity{}, err
	}
	if claims.Type != kioskTokenType {
		return Identity{}, ErrInvalidToken
	}
	if err := i.checkLedger(ctx, raw, claims); err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

func (i *Issuer) mint(ctx context.Context, userID, email, role, typ, kind string, now time.Time, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("session: userID is required")
	}
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	rec := &TokenRecord{
		Token:     signed,
		OwnerID:   userID,
		Kind:      kind,
		Active:    true,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := i.ledger.Insert(ctx, rec); err != nil {
		return "", fmt.Errorf("register token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) parse(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) checkLedger(ctx context.Context, raw string, claims *Claims) error {
	rec, err := i.ledger.FindActiveByToken(ctx, strings.TrimSpace(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrTokenRevoked
		}
		return fmt.Errorf("ledger lookup: %w", err)
	}
	if rec.OwnerID != claims.UserID {
		return ErrTokenRevoked
	}
	return nil
}
