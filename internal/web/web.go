// Package web exposes the HTTP API: session management, the session-scoped
// chat surface, community data, the mock OAuth flows and data sync. Every
// JSON response uses the {success, data?, error?} envelope.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cynqhq/cynq/internal/agent"
	"github.com/cynqhq/cynq/internal/auth"
	"github.com/cynqhq/cynq/internal/datasync"
	"github.com/cynqhq/cynq/internal/ecosystem"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/internal/sessions"
)

// Fixed user-facing error strings. The detailed cause is logged server-side
// only.
const (
	errNotFound        = "Not found"
	errInternal        = "Internal server error"
	errMissingMessage  = "Message is required"
	errMissingTitle    = "Title is required"
	errMissingInsight  = "Insight text is required."
	errMissingContext  = "User context is required"
	errSessionNotFound = "Session not found"
	errMissingCode     = "Authorization code is missing."

	errMissingGoal         = "Goal text is required"
	errMissingRelationship = "Relationship source and target are required"
)

// envelope is the uniform JSON response shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Config holds the HTTP handler's dependencies.
type Config struct {
	Agents     *agent.Manager
	Controller *sessions.Controller
	Ecosystem  *ecosystem.Repository
	Auth       *auth.Service
	Syncer     *datasync.Syncer
	Logger     *observability.Logger
	Metrics    *observability.Metrics

	// Gatherer backs /metrics; nil uses the default prometheus registry.
	Gatherer prometheus.Gatherer
}

// Handler is the main API HTTP handler.
type Handler struct {
	config *Config
	mux    *http.ServeMux
}

// NewHandler creates the API handler and wires its routes.
func NewHandler(cfg *Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.LogConfig{})
	}
	h := &Handler{config: cfg, mux: http.NewServeMux()}
	h.setupRoutes()
	return h
}

func (h *Handler) setupRoutes() {
	h.mux.HandleFunc("/api/sessions", h.apiSessions)
	h.mux.HandleFunc("/api/sessions/", h.apiSession)
	h.mux.HandleFunc("/api/community/resources", h.apiCommunityResources)
	h.mux.HandleFunc("/api/community/insights", h.apiCommunityInsights)
	h.mux.HandleFunc("/api/ecosystem", h.apiEcosystem)
	h.mux.HandleFunc("/api/ecosystem/", h.apiEcosystemSub)
	h.mux.HandleFunc("/api/auth/", h.apiAuth)
	h.mux.HandleFunc("/api/sync/", h.apiSync)
	h.mux.HandleFunc("/api/chat/", h.apiChat)
	h.mux.HandleFunc("/healthz", h.apiHealth)

	gatherer := h.config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Mount returns the handler with the middleware stack applied.
func (h *Handler) Mount() http.Handler {
	var handler http.Handler = h
	handler = CORSMiddleware()(handler)
	handler = MetricsMiddleware(h.config.Metrics)(handler)
	handler = LoggingMiddleware(h.config.Logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

func (h *Handler) apiHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// jsonResponse writes a success envelope.
func (h *Handler) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		h.config.Logger.Error(context.Background(), "json encode error", "error", err)
	}
}

// jsonError writes a failure envelope with the given status.
func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// decodeBody decodes a JSON request body into dst. An empty body is not an
// error; handlers validate required fields themselves.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
