package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var testCfg = Config{
	Secret:     []byte("test-secret"),
	SessionTTL: time.Hour,
	KioskTTL:   time.Minute,
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer(NewMemoryLedger(), Config{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewIssuer(nil, testCfg); err == nil {
		t.Fatal("expected error for nil ledger")
	}
}

func TestIssueAndAuthenticate(t *testing.T) {
	ledger := NewMemoryLedger()
	iss, err := NewIssuer(ledger, testCfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	token, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	ident, err := iss.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ident.UserID != "u-1" || ident.Email != "ana@rh360.org" || ident.Role != "user" {
		t.Fatalf("unexpected identity: %+v", ident)
	}

	rec, err := ledger.FindActiveByToken(ctx, token)
	if err != nil {
		t.Fatalf("FindActiveByToken: %v", err)
	}
	if rec.Kind != KindSession || rec.OwnerID != "u-1" {
		t.Fatalf("unexpected ledger row: %+v", rec)
	}
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	ledger := NewMemoryLedger()
	now := time.Now().UTC()
	clock := now
	iss, err := NewIssuer(ledger, testCfg, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	first, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("first IssueSession: %v", err)
	}
	clock = now.Add(time.Second)
	second, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("second IssueSession: %v", err)
	}

	if _, err := iss.Authenticate(ctx, first); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected first session revoked, got %v", err)
	}
	if _, err := iss.Authenticate(ctx, second); err != nil {
		t.Fatalf("second session should stay valid: %v", err)
	}
}

func TestLoginLeavesKioskTokensAlone(t *testing.T) {
	ledger := NewMemoryLedger()
	now := time.Now().UTC()
	clock := now
	iss, err := NewIssuer(ledger, testCfg, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	kiosk, err := iss.IssueKioskSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueKioskSession: %v", err)
	}
	clock = now.Add(time.Second)
	if _, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user"); err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if _, err := iss.AuthenticateKiosk(ctx, kiosk); err != nil {
		t.Fatalf("kiosk token should survive a login: %v", err)
	}
}

func TestAuthenticateKioskRejectsSessionToken(t *testing.T) {
	iss, err := NewIssuer(NewMemoryLedger(), testCfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	token, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if _, err := iss.AuthenticateKiosk(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	kiosk, err := iss.IssueKioskSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueKioskSession: %v", err)
	}
	if _, err := iss.AuthenticateKiosk(ctx, kiosk); err != nil {
		t.Fatalf("AuthenticateKiosk: %v", err)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	ledger := NewMemoryLedger()
	now := time.Now().UTC()
	clock := now
	iss, err := NewIssuer(ledger, testCfg, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	token, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	clock = now.Add(testCfg.SessionTTL + time.Minute)
	if _, err := iss.Authenticate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	iss, err := NewIssuer(NewMemoryLedger(), testCfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	token, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := iss.Authenticate(ctx, tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := iss.Authenticate(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	iss, err := NewIssuer(NewMemoryLedger(), testCfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	token, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if err := iss.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := iss.Revoke(ctx, token); err != nil {
		t.Fatalf("second Revoke should be a no-op: %v", err)
	}
	if _, err := iss.Authenticate(ctx, token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestRevokeAllForIncludesKiosk(t *testing.T) {
	iss, err := NewIssuer(NewMemoryLedger(), testCfg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	ctx := context.Background()

	sess, err := iss.IssueSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	kiosk, err := iss.IssueKioskSession(ctx, "u-1", "ana@rh360.org", "user")
	if err != nil {
		t.Fatalf("IssueKioskSession: %v", err)
	}
	if err := iss.RevokeAllFor(ctx, "u-1"); err != nil {
		t.Fatalf("RevokeAllFor: %v", err)
	}
	if _, err := iss.Authenticate(ctx, sess); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("session should be revoked, got %v", err)
	}
	if _, err := iss.AuthenticateKiosk(ctx, kiosk); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("kiosk token should be revoked, got %v", err)
	}
}

func TestPurgeExpiredBefore(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	now := time.Now().UTC()

	old := &TokenRecord{Token: "old", OwnerID: "u-1", Kind: KindSession, Active: true,
		IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	live := &TokenRecord{Token: "live", OwnerID: "u-1", Kind: KindSession, Active: true,
		IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, rec := range []*TokenRecord{old, live} {
		if err := ledger.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	n, err := ledger.PurgeExpiredBefore(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpiredBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	if _, err := ledger.FindActiveByToken(ctx, "live"); err != nil {
		t.Fatalf("live token must survive the purge: %v", err)
	}
}
