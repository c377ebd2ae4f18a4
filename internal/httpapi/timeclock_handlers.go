package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rh360.org/internal/attendance"
	"rh360.org/internal/ids"
	"rh360.org/internal/obs"
	"rh360.org/internal/session"
)

const defaultPunchWindow = 30 * 24 * time.Hour

type punchRequest struct {
	Source string `json:"source"`
	Note   string `json:"note"`
}

type punchResponse struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Note      string    `json:"note,omitempty"`
	PunchedAt time.Time `json:"punchedAt"`
}

// handlePunch handles POST /api/timeclock: record a punch for the
// authenticated user.
func (a *API) handlePunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	var req punchRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = attendance.SourceWeb
	}
	p := &attendance.Punch{
		ID:        ids.New(),
		OwnerID:   ident.UserID,
		Source:    source,
		Note:      strings.TrimSpace(req.Note),
		PunchedAt: time.Now().UTC(),
	}
	if err := a.punches.Create(r.Context(), p); err != nil {
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "punch_create_failed",
			"user":  ident.UserID,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not record punch")
		return
	}
	writeJSON(w, http.StatusCreated, punchResponse{
		ID: p.ID, Source: p.Source, Note: p.Note, PunchedAt: p.PunchedAt,
	})
}

// handleMyPunches handles GET /api/timeclock/me: the caller's punches over
// the last 30 days, or since ?since=RFC3339.
func (a *API) handleMyPunches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	since := time.Now().UTC().Add(-defaultPunchWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed.UTC()
	}
	punches, err := a.punches.ListByOwner(r.Context(), ident.UserID, since)
	if err != nil {
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "punch_list_failed",
			"user":  ident.UserID,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not list punches")
		return
	}
	out := make([]punchResponse, 0, len(punches))
	for _, p := range punches {
		out = append(out, punchResponse{
			ID: p.ID, Source: p.Source, Note: p.Note, PunchedAt: p.PunchedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleKioskToken handles GET /api/timeclock/qr-code: mint a short-lived
// kiosk token for the authenticated user, to be rendered as a QR code.
func (a *API) handleKioskToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	token, err := a.issuer.IssueKioskSession(r.Context(), ident.UserID, ident.Email, ident.Role)
	if err != nil {
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "kiosk_token_issue_failed",
			"user":  ident.UserID,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not create kiosk token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresIn": int(a.issuer.KioskTTL().Seconds()),
	})
}

type kioskPunchRequest struct {
	Token string `json:"token"`
}

// handleKioskPunch handles POST /api/timeclock/mobile: an unauthenticated
// device presents a kiosk token (query param or body) and the punch is
// recorded for the token's owner. The token is single use and revoked after
// a successful punch.
func (a *API) handleKioskPunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		var req kioskPunchRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		token = strings.TrimSpace(req.Token)
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}

	ident, err := a.issuer.AuthenticateKiosk(r.Context(), token)
	if err != nil {
		obs.AuthRejected("kiosk", "invalid_token")
		writeError(w, http.StatusUnauthorized, "token invalid, expired or inactive")
		return
	}
	p := &attendance.Punch{
		ID:        ids.New(),
		OwnerID:   ident.UserID,
		Source:    attendance.SourceKiosk,
		PunchedAt: time.Now().UTC(),
	}
	if err := a.punches.Create(r.Context(), p); err != nil {
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "kiosk_punch_failed",
			"user":  ident.UserID,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not record punch")
		return
	}
	if err := a.issuer.Revoke(r.Context(), token); err != nil {
		// The punch is already recorded; log and move on, the sweeper will
		// clear the row once it expires.
		obs.Log(map[string]any{
			"level": "warn",
			"msg":   "kiosk_token_revoke_failed",
			"user":  ident.UserID,
			"error": err.Error(),
		})
	}
	writeJSON(w, http.StatusCreated, punchResponse{
		ID: p.ID, Source: p.Source, PunchedAt: p.PunchedAt,
	})
}
