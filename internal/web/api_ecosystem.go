package web

import (
	"net/http"
	"strings"

	"github.com/cynqhq/cynq/pkg/models"
)

// apiEcosystem serves the server-side ecosystem snapshot: profile reads and
// full clears.
func (h *Handler) apiEcosystem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		profile, err := h.config.Ecosystem.Profile(ctx)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to load ecosystem profile", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, profile)

	case http.MethodDelete:
		if err := h.config.Ecosystem.Clear(ctx); err != nil {
			h.config.Logger.Error(ctx, "failed to clear ecosystem", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, map[string]bool{"cleared": true})

	default:
		h.jsonError(w, errNotFound, http.StatusNotFound)
	}
}

// apiEcosystemSub routes the ecosystem sub-resources:
// POST /api/ecosystem/goals, POST /api/ecosystem/goals/{id}/toggle,
// POST /api/ecosystem/relationships.
func (h *Handler) apiEcosystemSub(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rest := strings.TrimPrefix(r.URL.Path, "/api/ecosystem/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] == "goals" && r.Method == http.MethodPost:
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Text) == "" {
			h.jsonError(w, errMissingGoal, http.StatusBadRequest)
			return
		}
		goal, err := h.config.Ecosystem.AddGoal(ctx, strings.TrimSpace(body.Text))
		if err != nil {
			h.config.Logger.Error(ctx, "failed to add goal", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, goal)

	case len(parts) == 3 && parts[0] == "goals" && parts[2] == "toggle" && r.Method == http.MethodPost:
		ok, err := h.config.Ecosystem.ToggleGoal(ctx, parts[1])
		if err != nil {
			h.config.Logger.Error(ctx, "failed to toggle goal", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		if !ok {
			h.jsonError(w, errNotFound, http.StatusNotFound)
			return
		}
		h.jsonResponse(w, map[string]bool{"toggled": true})

	case len(parts) == 1 && parts[0] == "relationships" && r.Method == http.MethodPost:
		var body models.Relationship
		if err := decodeBody(r, &body); err != nil || body.SourceID == "" || body.TargetID == "" {
			h.jsonError(w, errMissingRelationship, http.StatusBadRequest)
			return
		}
		rel, err := h.config.Ecosystem.AddRelationship(ctx, body)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to add relationship", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, rel)

	default:
		h.jsonError(w, errNotFound, http.StatusNotFound)
	}
}
