// Package httpapi serves the odds calculator as JSON over HTTP, with a
// WebSocket endpoint that streams Monte-Carlo progress.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/wargame/internal/calculator"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Handler serves the calculator endpoints.
type Handler struct {
	calc   *calculator.Service
	logger zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(calc *calculator.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		calc:   calc,
		logger: logger.With().Str("component", "httpapi").Logger(),
	}
}

// Router returns the routes:
//
//	POST /api/odds      calculate
//	GET  /api/rules     ruleset summary
//	GET  /api/stats     estimator counters
//	GET  /api/healthz   liveness
//	GET  /ws/odds       streamed calculation
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	// Full paths on the root router: a subrouter that fails to match turns
	// a wrong method into a 404.
	r.HandleFunc("/api/odds", h.Calculate).Methods(http.MethodPost)
	r.HandleFunc("/api/rules", h.Rules).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", h.Stats).Methods(http.MethodGet)
	r.HandleFunc("/api/healthz", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/ws/odds", h.ServeWS).Methods(http.MethodGet)
	return r
}

// Calculate handles POST /api/odds.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculator.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp, err := h.calc.Calculate(r.Context(), req, nil)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Rules handles GET /api/rules.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.calc.RulesInfo())
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.calc.Report())
}

// Health handles GET /api/healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("Method not allowed")
	writeError(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, calculator.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The recorder does not implement http.Hijacker.
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
