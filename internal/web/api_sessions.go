package web

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// apiSessions handles the /api/sessions collection: list, create and
// clear-all.
func (h *Handler) apiSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		list, err := h.config.Controller.ListSessions(ctx)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to list sessions", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, list)

	case http.MethodPost:
		var body struct {
			Title     string `json:"title"`
			SessionID string `json:"sessionId"`
		}
		if err := decodeBody(r, &body); err != nil {
			h.jsonError(w, errInternal, http.StatusBadRequest)
			return
		}
		sessionID := body.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		if err := h.config.Controller.AddSession(ctx, sessionID, body.Title); err != nil {
			h.config.Logger.Error(ctx, "failed to create session", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		session, err := h.config.Controller.GetSession(ctx, sessionID)
		if err != nil || session == nil {
			h.config.Logger.Error(ctx, "failed to read created session", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, map[string]string{"sessionId": session.ID, "title": session.Title})

	case http.MethodDelete:
		count, err := h.config.Controller.ClearAllSessions(ctx)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to clear sessions", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.config.Agents.RemoveAll()
		h.jsonResponse(w, map[string]int{"deletedCount": count})

	default:
		h.jsonError(w, errNotFound, http.StatusMethodNotAllowed)
	}
}

// apiSession handles /api/sessions/{id} and /api/sessions/{id}/title.
func (h *Handler) apiSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(rest, "/")
	sessionID := parts[0]
	if sessionID == "" {
		h.jsonError(w, errNotFound, http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		ok, err := h.config.Controller.RemoveSession(ctx, sessionID)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to delete session", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		if !ok {
			h.jsonError(w, errSessionNotFound, http.StatusNotFound)
			return
		}
		h.config.Agents.Remove(sessionID)
		h.jsonResponse(w, map[string]bool{"deleted": true})

	case len(parts) == 2 && parts[1] == "title" && r.Method == http.MethodPut:
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
			h.jsonError(w, errMissingTitle, http.StatusBadRequest)
			return
		}
		ok, err := h.config.Controller.RenameSession(ctx, sessionID, body.Title)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to rename session", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		if !ok {
			h.jsonError(w, errSessionNotFound, http.StatusNotFound)
			return
		}
		h.jsonResponse(w, map[string]string{"title": body.Title})

	default:
		h.jsonError(w, errNotFound, http.StatusNotFound)
	}
}
