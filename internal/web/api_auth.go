package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cynqhq/cynq/internal/auth"
	"github.com/cynqhq/cynq/internal/datasync"
)

// apiAuth handles /api/auth/{service}/{login|callback|disconnect}.
func (h *Handler) apiAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rest := strings.TrimPrefix(r.URL.Path, "/api/auth/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		h.jsonError(w, errNotFound, http.StatusNotFound)
		return
	}
	service, action := parts[0], parts[1]
	if !auth.Known(service) {
		h.jsonError(w, errNotFound, http.StatusNotFound)
		return
	}

	switch {
	case action == "login" && r.Method == http.MethodGet:
		loginURL, err := h.config.Auth.LoginURL(service)
		if err != nil {
			h.config.Logger.Error(ctx, "failed to build login url", "service", service, "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, loginURL, http.StatusFound)

	case action == "callback" && r.Method == http.MethodGet:
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, errMissingCode, http.StatusBadRequest)
			return
		}
		if _, err := h.config.Auth.Exchange(ctx, service, code); err != nil {
			h.config.Logger.Error(ctx, "token exchange failed", "service", service, "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/ecosystem?connected=%s", service), http.StatusFound)

	case action == "disconnect" && r.Method == http.MethodPost:
		if err := h.config.Auth.Disconnect(ctx, service); err != nil {
			h.config.Logger.Error(ctx, "disconnect failed", "service", service, "error", err)
			h.jsonError(w, errInternal, http.StatusInternalServerError)
			return
		}
		h.jsonResponse(w, map[string]bool{"disconnected": true})

	default:
		h.jsonError(w, errNotFound, http.StatusNotFound)
	}
}

// apiSync handles POST /api/sync/{service}.
func (h *Handler) apiSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.jsonError(w, errNotFound, http.StatusMethodNotAllowed)
		return
	}
	service := strings.TrimPrefix(r.URL.Path, "/api/sync/")
	if !datasync.Supported(service) {
		h.jsonError(w, errNotFound, http.StatusNotFound)
		return
	}
	result, err := h.config.Syncer.Sync(ctx, service)
	if err != nil {
		h.config.Logger.Error(ctx, "sync failed", "service", service, "error", err)
		h.jsonError(w, errInternal, http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, result)
}
