// Package httptransport is the thin HTTP layer. Handlers bind requests,
// resolve the operation's declared requirements, delegate to the policy
// engine and the stores, and translate outcomes; business logic stays in the
// internal services.
package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carelock/internal/audit"
	"carelock/internal/policy"
	"carelock/internal/records"
	"carelock/pkg/platform/sentinel"
)

// Handler wires the HTTP surface to the core services.
type Handler struct {
	engine   *policy.Engine
	registry *policy.Registry
	recorder *audit.Recorder
	records  *records.Store
	logger   *slog.Logger
}

func NewHandler(engine *policy.Engine, registry *policy.Registry, recorder *audit.Recorder, recordStore *records.Store, logger *slog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		registry: registry,
		recorder: recorder,
		records:  recordStore,
		logger:   logger,
	}
}

// NewRouter mounts all endpoints. Everything under the auth middleware
// requires a valid bearer token.
func NewRouter(h *Handler, authed func(http.Handler) http.Handler, metadata func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authed)

		r.Post("/access/evaluate", h.handleEvaluate)

		r.Get("/audit/events", h.handleAuditSearch)
		r.Get("/audit/report", h.handleAuditReport)

		r.Post("/patients", h.handleRecordCreate)
		r.Get("/patients/lookup", h.handleRecordLookup)
		r.Get("/patients/{id}", h.handleRecordGet)
		r.Put("/patients/{id}", h.handleRecordUpdate)
		r.Delete("/patients/{id}", h.handleRecordDelete)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates failures without leaking internals: denials carry
// their reason, everything else is opaque.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, sentinel.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict"})
	case errors.Is(err, sentinel.ErrUnavailable):
		h.logger.ErrorContext(r.Context(), "dependency unavailable",
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeDenied(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied", "reason": reason})
}
