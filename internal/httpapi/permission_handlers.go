package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"rh360.org/internal/ids"
	"rh360.org/internal/obs"
	"rh360.org/internal/permission"
	"rh360.org/internal/session"
)

type grantRequest struct {
	OwnerID     string `json:"userId"`
	Function    string `json:"function"`
	IsPermitted *bool  `json:"isPermitted"`
}

type grantUpdateRequest struct {
	Function    *string `json:"function"`
	IsPermitted *bool   `json:"isPermitted"`
}

type grantResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"userId"`
	Function    string    `json:"function"`
	IsPermitted bool      `json:"isPermitted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toGrantResponse(g *permission.Grant) grantResponse {
	return grantResponse{
		ID:          g.ID,
		OwnerID:     g.OwnerID,
		Function:    g.Function,
		IsPermitted: g.IsPermitted,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// handlePermissions handles POST /api/permissions: create a grant.
func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.Function = strings.ToUpper(strings.TrimSpace(req.Function))
	if req.OwnerID == "" || req.Function == "" {
		writeError(w, http.StatusBadRequest, "userId and function are required")
		return
	}
	permitted := true
	if req.IsPermitted != nil {
		permitted = *req.IsPermitted
	}
	now := time.Now().UTC()
	grant := &permission.Grant{
		ID:          ids.New(),
		OwnerID:     req.OwnerID,
		Function:    req.Function,
		IsPermitted: permitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.grants.Create(r.Context(), grant); err != nil {
		if errors.Is(err, permission.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "grant already exists for this user and function")
			return
		}
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "grant_create_failed",
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not create grant")
		return
	}
	writeJSON(w, http.StatusCreated, toGrantResponse(grant))
}

// handlePermissionScoped routes the sub-paths of /api/permissions/:
//
//	GET    /api/permissions/me          grants of the caller
//	GET    /api/permissions/users/{id}  grants of a user
//	PUT    /api/permissions/{id}        update a grant
//	DELETE /api/permissions/{id}        soft-delete a grant
func (a *API) handlePermissionScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/permissions/"), "/")
	switch {
	case rest == "me":
		a.handleMyGrants(w, r)
	case strings.HasPrefix(rest, "users/"):
		a.handleUserGrants(w, r, strings.TrimPrefix(rest, "users/"))
	case rest != "" && !strings.Contains(rest, "/"):
		a.handleGrantByID(w, r, rest)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleMyGrants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	a.listGrants(w, r, ident.UserID)
}

func (a *API) handleUserGrants(w http.ResponseWriter, r *http.Request, ownerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}
	a.listGrants(w, r, ownerID)
}

func (a *API) listGrants(w http.ResponseWriter, r *http.Request, ownerID string) {
	grants, err := a.grants.ListByOwner(r.Context(), ownerID)
	if err != nil {
		obs.Log(map[string]any{
			"level": "error",
			"msg":   "grant_list_failed",
			"owner": ownerID,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not list grants")
		return
	}
	out := make([]grantResponse, 0, len(grants))
	for i := range grants {
		out = append(out, toGrantResponse(&grants[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGrantByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodPut:
		var req grantUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Function == nil && req.IsPermitted == nil {
			writeError(w, http.StatusBadRequest, "nothing to update")
			return
		}
		if req.Function != nil {
			fn := strings.ToUpper(strings.TrimSpace(*req.Function))
			if fn == "" {
				writeError(w, http.StatusBadRequest, "function must not be empty")
				return
			}
			req.Function = &fn
		}
		grant, err := a.grants.Update(r.Context(), id, permission.GrantUpdate{
			Function:    req.Function,
			IsPermitted: req.IsPermitted,
		})
		if err != nil {
			if errors.Is(err, permission.ErrNotFound) {
				writeError(w, http.StatusNotFound, "grant not found")
				return
			}
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "grant_update_failed",
				"id":    id,
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "could not update grant")
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(grant))
	case http.MethodDelete:
		if err := a.grants.SoftDelete(r.Context(), id); err != nil {
			if errors.Is(err, permission.ErrNotFound) {
				writeError(w, http.StatusNotFound, "grant not found")
				return
			}
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "grant_delete_failed",
				"id":    id,
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "could not delete grant")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "grant removed"})
	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

type templateRequest struct {
	Name      string   `json:"name"`
	Functions []string `json:"functions"`
}

type templateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Functions []string  `json:"functions"`
	CreatedAt time.Time `json:"createdAt"`
}

// handlePermissionTemplates handles GET and POST /api/permission-templates.
func (a *API) handlePermissionTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tpls, err := a.grants.ListTemplates(r.Context())
		if err != nil {
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "template_list_failed",
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "could not list templates")
			return
		}
		out := make([]templateResponse, 0, len(tpls))
		for _, t := range tpls {
			out = append(out, templateResponse{
				ID: t.ID, Name: t.Name, Functions: t.Functions, CreatedAt: t.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req templateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || len(req.Functions) == 0 {
			writeError(w, http.StatusBadRequest, "name and functions are required")
			return
		}
		funcs := make([]string, 0, len(req.Functions))
		for _, fn := range req.Functions {
			fn = strings.ToUpper(strings.TrimSpace(fn))
			if fn != "" {
				funcs = append(funcs, fn)
			}
		}
		now := time.Now().UTC()
		tpl := &permission.Template{
			ID:        ids.New(),
			Name:      req.Name,
			Functions: funcs,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.grants.CreateTemplate(r.Context(), tpl); err != nil {
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "template_create_failed",
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "could not create template")
			return
		}
		writeJSON(w, http.StatusCreated, templateResponse{
			ID: tpl.ID, Name: tpl.Name, Functions: tpl.Functions, CreatedAt: tpl.CreatedAt,
		})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
