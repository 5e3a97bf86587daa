package web

import (
	"net/http"
	"strings"
)

func (h *Handler) apiCommunityResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.jsonError(w, errNotFound, http.StatusMethodNotAllowed)
		return
	}
	resources, err := h.config.Controller.ListResources(ctx)
	if err != nil {
		h.config.Logger.Error(ctx, "failed to list community resources", "error", err)
		h.jsonError(w, errInternal, http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, resources)
}

func (h *Handler) apiCommunityInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		insights, err := h.config.Controller.ListInsights(ctx)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to list insights", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, insights)

	case http.MethodPost:
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Text) == "" {
			h.jsonError(w, errMissingInsight, http.StatusBadRequest)
			return
		}
		insight, err := h.config.Controller.AddInsight(ctx, strings.TrimSpace(body.Text))
		if err != nil {
			h.config.Logger.Error(ctx, "failed to add insight", "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, insight)

	default:
		h.jsonError(w, errNotFound, http.StatusMethodNotAllowed)
	}
}
