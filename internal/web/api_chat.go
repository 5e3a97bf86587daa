package web

import (
	"net/http"
	"strings"

	"github.com/cynqhq/cynq/internal/agent"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/pkg/models"
)

// apiChat routes the session-scoped chat surface:
// /api/chat/{sessionId}/{messages|chat|clear|model|summarize|ecosystem-insights|takeaways}.
func (h *Handler) apiChat(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		h.jsonError(w, errNotFound, http.StatusNotFound)
		return
	}
	sessionID, op := parts[0], parts[1]
	ctx := observability.AddSessionID(r.Context(), sessionID)
	r = r.WithContext(ctx)

	session, err := h.config.Controller.GetSession(ctx, sessionID)
	if err != nil {
		h.config.Logger.Error(ctx, "failed to look up session", "error", err)
		h.jsonError(w, errInternal, http.StatusInternalServerError)
		return
	}
	if session == nil {
		h.jsonError(w, errSessionNotFound, http.StatusNotFound)
		return
	}
	a := h.config.Agents.GetOrCreate(sessionID)

	switch {
	case op == "messages" && r.Method == http.MethodGet:
		h.jsonResponse(w, a.State())

	case op == "chat" && r.Method == http.MethodPost:
		h.handleChatTurn(w, r, a)

	case op == "clear" && r.Method == http.MethodDelete:
		h.jsonResponse(w, a.ClearMessages())

	case op == "model" && r.Method == http.MethodPost:
		var body struct {
			Model string `json:"model"`
		}
		if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Model) == "" {
			h.jsonError(w, "Model is required", http.StatusBadRequest)
			return
		}
		h.jsonResponse(w, a.UpdateModel(body.Model))

	case op == "summarize" && r.Method == http.MethodPost:
		title, err := a.Summarize(ctx)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to summarize session", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, map[string]string{"title": title})

	case op == "ecosystem-insights" && r.Method == http.MethodPost:
		var body struct {
			Context *models.UserProfileContext `json:"context"`
		}
		if err := decodeBody(r, &body); err != nil || body.Context == nil {
			h.jsonError(w, errMissingContext, http.StatusBadRequest)
			return
		}
		insights, err := a.EcosystemInsights(ctx)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to generate insights", "error", err)
			h.jsonError(w, "Failed to generate insights", http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, insights)

	case op == "takeaways" && r.Method == http.MethodPost:
		var body struct {
			Context *models.UserProfileContext `json:"context"`
		}
		if err := decodeBody(r, &body); err != nil || body.Context == nil {
			h.jsonError(w, errMissingContext, http.StatusBadRequest)
			return
		}
		h.jsonResponse(w, a.Takeaways(ctx, body.Context))

	default:
		h.jsonError(w, errNotFound, http.StatusNotFound)
	}
}

// handleChatTurn runs one turn. Streaming turns answer with chunked plain
// text flushed per fragment; buffered turns answer with the updated chat
// state.
func (h *Handler) handleChatTurn(w http.ResponseWriter, r *http.Request, a *agent.Agent) {
	ctx := r.Context()
	var req agent.ChatRequest
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, errMissingMessage, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.jsonError(w, errMissingMessage, http.StatusBadRequest)
		return
	}

	if !req.Stream {
		state := a.ProcessChat(ctx, req, nil)
		h.jsonResponse(w, state)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		state := a.ProcessChat(ctx, req, nil)
		h.jsonResponse(w, state)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	a.ProcessChat(ctx, req, func(fragment string) {
		if _, err := w.Write([]byte(fragment)); err != nil {
			return
		}
		flusher.Flush()
	})
}
