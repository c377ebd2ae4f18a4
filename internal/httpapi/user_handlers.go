package httpapi

import (
	"errors"
	"net/http"
	"time"

	"rh360.org/internal/obs"
	"rh360.org/internal/session"
	"rh360.org/internal/users"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleCurrentUser returns the profile of the authenticated user.
func (a *API) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	u, err := a.users.Find(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "current_user_lookup_failed",
			"user":  ident.UserID,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not load user")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	})
}
