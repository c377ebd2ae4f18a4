// Package authz decides whether an authenticated identity may invoke a
// method+path, by resolving the route permission table against per-user
// grants. It returns typed decisions; the HTTP layer maps them to statuses.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rh360.org/internal/permission"
	"rh360.org/internal/session"
)

// AdminRole short-circuits every permission check, compared case-insensitively.
const AdminRole = "admin"

// DecisionKind classifies an authorization outcome.
type DecisionKind int

const (
	// DecisionAllowed lets the request through.
	DecisionAllowed DecisionKind = iota
	// DecisionRouteNotConfigured means no rule matched; fail closed.
	DecisionRouteNotConfigured
	// DecisionDenied means a rule matched but the caller lacks the grant.
	DecisionDenied
)

// Decision is the typed result of an authorization check. Required carries
// the permission code a denied caller was missing.
type Decision struct {
	Kind     DecisionKind
	Required string
}

// Authorizer evaluates route rules against permission grants. The grant store
// is an explicit constructor dependency; there is no package-level state.
type Authorizer struct {
	rules     []Rule
	grants    permission.Store
	adminRole string
}

// NewAuthorizer builds an Authorizer over an ordered rule list.
func NewAuthorizer(rules []Rule, grants permission.Store) (*Authorizer, error) {
	if grants == nil {
		return nil, errors.New("authz: grant store is required")
	}
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Authorizer{rules: rules, grants: grants, adminRole: AdminRole}, nil
}

// Authorize decides whether ident may call method+path. A store failure is
// returned as an error, distinct from a denial: it happens after identity is
// established and surfaces as a 5xx, not a trust decision.
func (a *Authorizer) Authorize(ctx context.Context, ident session.Identity, method, path string) (Decision, error) {
	required, ok := RequiredPermission(a.rules, method, path)
	if !ok {
		return Decision{Kind: DecisionRouteNotConfigured}, nil
	}
	if strings.EqualFold(ident.Role, a.adminRole) {
		return Decision{Kind: DecisionAllowed, Required: required}, nil
	}
	grant, err := a.grants.FindLive(ctx, ident.UserID, required)
	if err != nil {
		if errors.Is(err, permission.ErrNotFound) {
			return Decision{Kind: DecisionDenied, Required: required}, nil
		}
		return Decision{}, fmt.Errorf("authz: lookup grant %s for %s: %w", required, ident.UserID, err)
	}
	if !grant.IsPermitted {
		return Decision{Kind: DecisionDenied, Required: required}, nil
	}
	return Decision{Kind: DecisionAllowed, Required: required}, nil
}
