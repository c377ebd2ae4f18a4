package authz

import (
	"context"
	"errors"
	"testing"

	"rh360.org/internal/permission"
	"rh360.org/internal/session"
)

func newTestAuthorizer(t *testing.T, grants permission.Store) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer(nil, grants)
	if err != nil {
		t.Fatalf("NewAuthorizer: %v", err)
	}
	return a
}

func TestAuthorizeAdminBypass(t *testing.T) {
	a := newTestAuthorizer(t, permission.NewMemoryStore())
	ctx := context.Background()

	for _, role := range []string{"admin", "Admin", "ADMIN"} {
		d, err := a.Authorize(ctx, session.Identity{UserID: "u-1", Role: role}, "GET", "/api/tasks/t-1")
		if err != nil {
			t.Fatalf("Authorize: %v", err)
		}
		if d.Kind != DecisionAllowed {
			t.Fatalf("role %q should bypass grants, got %v", role, d.Kind)
		}
	}
}

func TestAuthorizeGrantFlow(t *testing.T) {
	grants := permission.NewMemoryStore()
	ctx := context.Background()
	if err := grants.Create(ctx, &permission.Grant{
		OwnerID: "u-1", Function: PermViewTasks, IsPermitted: true,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	revoked := &permission.Grant{OwnerID: "u-1", Function: PermViewTeams, IsPermitted: false}
	if err := grants.Create(ctx, revoked); err != nil {
		t.Fatalf("Create: %v", err)
	}

	a := newTestAuthorizer(t, grants)
	ident := session.Identity{UserID: "u-1", Role: "user"}

	d, err := a.Authorize(ctx, ident, "GET", "/api/tasks/t-1")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Kind != DecisionAllowed {
		t.Fatalf("expected allowed, got %v", d.Kind)
	}

	// Grant exists but is_permitted is false.
	d, err = a.Authorize(ctx, ident, "GET", "/api/teams")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Kind != DecisionDenied || d.Required != PermViewTeams {
		t.Fatalf("expected denial on %s, got %+v", PermViewTeams, d)
	}

	// No grant at all.
	d, err = a.Authorize(ctx, ident, "GET", "/api/finance/reports")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Kind != DecisionDenied || d.Required != PermViewDashboard {
		t.Fatalf("expected denial on %s, got %+v", PermViewDashboard, d)
	}
}

func TestAuthorizeSoftDeletedGrantDenies(t *testing.T) {
	grants := permission.NewMemoryStore()
	ctx := context.Background()
	g := &permission.Grant{OwnerID: "u-1", Function: PermViewTasks, IsPermitted: true}
	if err := grants.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := grants.SoftDelete(ctx, g.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	a := newTestAuthorizer(t, grants)
	d, err := a.Authorize(ctx, session.Identity{UserID: "u-1", Role: "user"}, "GET", "/api/tasks/t-1")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Kind != DecisionDenied {
		t.Fatalf("soft-deleted grant must not authorize, got %v", d.Kind)
	}
}

func TestAuthorizeUnconfiguredRoute(t *testing.T) {
	a := newTestAuthorizer(t, permission.NewMemoryStore())
	d, err := a.Authorize(context.Background(),
		session.Identity{UserID: "u-1", Role: "user"}, "GET", "/api/brand-new")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Kind != DecisionRouteNotConfigured {
		t.Fatalf("expected route-not-configured, got %v", d.Kind)
	}
}

type failingStore struct {
	permission.Store
}

func (failingStore) FindLive(context.Context, string, string) (*permission.Grant, error) {
	return nil, errors.New("connection refused")
}

func TestAuthorizeStoreErrorSurfaces(t *testing.T) {
	a := newTestAuthorizer(t, failingStore{})
	_, err := a.Authorize(context.Background(),
		session.Identity{UserID: "u-1", Role: "user"}, "GET", "/api/tasks/t-1")
	if err == nil {
		t.Fatal("expected store error to surface")
	}
}
