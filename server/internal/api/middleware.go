package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// route wraps fn with request ID, CORS, metrics and debug logging. pattern is
// the registered route and is used as the metrics label.
func (h *Handler) route(pattern, methods string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		h.setCORS(w, methods)

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		fn(rec, r)

		if h.metrics != nil {
			h.metrics.ObserveRequest(pattern, rec.code)
		}
		slog.Debug("api: request",
			"request_id", id,
			"method", r.Method,
			"route", pattern,
			"code", rec.code,
			"duration", time.Since(start),
		)
	}
}

func (h *Handler) setCORS(w http.ResponseWriter, methods string) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", h.allowedOrigin)
	hdr.Set("Access-Control-Allow-Methods", methods)
	hdr.Set("Access-Control-Allow-Headers", "*")
}
