package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"rh360.org/internal/authz"
	"rh360.org/internal/obs"
	"rh360.org/internal/session"
)

// authzExcludedPrefixes extend the authentication allow-list with the token
// validation endpoint, which has nothing left to check once the
// authentication gate passed.
var authzExcludedPrefixes = append([]string{
	"/api/auth/validate",
}, authExcludedPrefixes...)

// withPermissions is the authorization gate. It resolves the route permission
// table for /api/ paths and checks the caller's grant, with an admin bypass.
// No matching rule means 403: a new route stays closed until a rule is
// declared for it.
func (a *API) withPermissions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		path := r.URL.Path
		if hasPrefixAny(path, authzExcludedPrefixes) {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		ident, ok := session.IdentityFromContext(r.Context())
		if !ok {
			// The authentication gate always runs first on these paths;
			// a missing identity here is a wiring fault, still fail closed.
			obs.AuthRejected("authz", "missing_identity")
			writeError(w, http.StatusUnauthorized, "token not provided or malformed")
			return
		}

		decision, err := a.authorizer.Authorize(r.Context(), ident, r.Method, path)
		if err != nil {
			// Identity is already established; a store fault here is an
			// operational error, not a trust decision.
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "authz_internal_error",
				"path":  path,
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "authorization error")
			return
		}
		switch decision.Kind {
		case authz.DecisionAllowed:
			next.ServeHTTP(w, r)
		case authz.DecisionRouteNotConfigured:
			obs.AuthRejected("authz", "route_not_configured")
			writeError(w, http.StatusForbidden, "permission not configured for this route")
		case authz.DecisionDenied:
			obs.AuthRejected("authz", "denied")
			writeError(w, http.StatusForbidden,
				fmt.Sprintf("access denied: permission '%s' required", decision.Required))
		default:
			writeError(w, http.StatusForbidden, "access denied")
		}
	})
}
