package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rh360.org/internal/ids"
	"rh360.org/internal/obs"
	"rh360.org/internal/session"
	"rh360.org/internal/tasks"
)

type taskRequest struct {
	Title string     `json:"title"`
	DueAt *time.Time `json:"dueAt"`
}

type taskResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// handleTasks handles GET (caller's tasks) and POST (create) on /api/tasks.
func (a *API) handleTasks(w http.ResponseWriter, r *http.Request) {
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided or malformed")
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := a.tasks.ListByOwner(r.Context(), ident.UserID)
		if err != nil {
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "task_list_failed",
				"user":  ident.UserID,
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "could not list tasks")
			return
		}
		out := make([]taskResponse, 0, len(list))
		for _, t := range list {
			out = append(out, taskResponse{
				ID: t.ID, Title: t.Title, Status: t.Status, DueAt: t.DueAt, CreatedAt: t.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req taskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		t := &tasks.Task{
			ID:      ids.New(),
			OwnerID: ident.UserID,
			Title:   req.Title,
			DueAt:   req.DueAt,
		}
		if err := a.tasks.Create(r.Context(), t); err != nil {
			obs.Log(map[string]any{
				"level": "error",
				"msg":   "task_create_failed",
				"user":  ident.UserID,
				"error": err.Error(),
			})
			writeError(w, http.StatusInternalServerError, "could not create task")
			return
		}
		writeJSON(w, http.StatusCreated, taskResponse{
			ID: t.ID, Title: t.Title, Status: t.Status, DueAt: t.DueAt, CreatedAt: t.CreatedAt,
		})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
