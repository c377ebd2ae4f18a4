package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"rh360.org/internal/obs"
	"rh360.org/internal/session"
	"rh360.org/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// handleLogin authenticates credentials and mints a session token. Every
// credential failure collapses to the same 401 body so the response does not
// reveal whether the account exists.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "login_lookup_failed",
				"error": err.Error(),
			})
		}
		obs.AuthRejected("login", "unknown_email")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if u.Status != users.StatusActive {
		obs.AuthRejected("login", "inactive_account")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := users.VerifyPassword(u.PasswordHash, req.Password); err != nil {
		obs.AuthRejected("login", "bad_password")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := a.issuer.IssueSession(r.Context(), u.ID, u.Email, u.Role)
	if err != nil {
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "login_issue_failed",
			"user":  u.ID,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{ID: u.ID, Token: token})
}

// handleLogout revokes the presented token. Idempotent: logging out an
// already-revoked token still returns success.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	token, ok := session.TokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	if err := a.issuer.Revoke(r.Context(), token); err != nil {
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "logout_failed",
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not revoke session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

// handleValidate echoes the authenticated identity. The authentication gate
// has already done the work; reaching here means the token is live.
func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"userId": ident.UserID,
		"email":  ident.Email,
		"role":   ident.Role,
	})
}
