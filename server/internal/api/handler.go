package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/regionpulse/regionpulse/pkg/types"
	"github.com/regionpulse/regionpulse/server/internal/aggregate"
	"github.com/regionpulse/regionpulse/server/internal/metrics"
	"github.com/regionpulse/regionpulse/server/internal/store"
)

// Options configures a Handler. Zero values fall back to permissive defaults.
type Options struct {
	// AllowedOrigin is sent as Access-Control-Allow-Origin. Defaults to "*".
	AllowedOrigin string

	// MaxBodyBytes caps aggregation request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// Metrics receives request and region lookup counts. May be nil.
	Metrics *metrics.Registry
}

// Handler serves the aggregation API from an immutable telemetry store.
type Handler struct {
	store         *store.Store
	mux           *http.ServeMux
	allowedOrigin string
	maxBody       int64
	metrics       *metrics.Registry
}

// New creates a Handler wired to st and registers all routes.
func New(st *store.Store, opts Options) http.Handler {
	h := &Handler{
		store:         st,
		mux:           http.NewServeMux(),
		allowedOrigin: opts.AllowedOrigin,
		maxBody:       opts.MaxBodyBytes,
		metrics:       opts.Metrics,
	}
	if h.allowedOrigin == "" {
		h.allowedOrigin = "*"
	}
	if h.maxBody <= 0 {
		h.maxBody = 1 << 20
	}

	const aggMethods = "POST, OPTIONS"
	const readMethods = "GET, OPTIONS"

	h.mux.HandleFunc("/api", h.route("/api", aggMethods, h.aggregate))
	h.mux.HandleFunc("/api/index", h.route("/api/index", aggMethods, h.aggregate))
	h.mux.HandleFunc("/api/v1/regions", h.route("/api/v1/regions", readMethods, h.regions))
	h.mux.HandleFunc("/healthz", h.route("/healthz", readMethods, h.health))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// aggregate serves POST /api and /api/index.
func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		jsonResp(w, http.StatusOK, struct{}{})
		return
	case http.MethodPost:
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := DecodeRequest(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	var obs aggregate.Observer
	if h.metrics != nil {
		obs = h.metrics
	}
	res := aggregate.AggregateObserved(h.store, req.Regions, req.ThresholdMs, obs)

	slog.Debug("api: aggregated",
		"regions", len(req.Regions),
		"matched", len(res),
		"threshold_set", req.ThresholdMs != nil,
	)
	jsonResp(w, http.StatusOK, res)
}

// regions serves GET /api/v1/regions.
func (h *Handler) regions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		jsonResp(w, http.StatusOK, struct{}{})
		return
	case http.MethodGet:
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, RegionsResponse{
		Regions: h.store.Regions(),
		Total:   h.store.Len(),
	})
}

// health serves GET /healthz.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		jsonResp(w, http.StatusOK, struct{}{})
		return
	case http.MethodGet:
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok", Records: h.store.Len()})
}

// --- helpers ----------------------------------------------------------------

// DecodeRequest parses an aggregation request body. A missing or null
// "regions" is treated as empty; a missing or null "threshold_ms" leaves
// ThresholdMs nil. Wrong field types, null region names and anything after
// the JSON value are reported as errors.
func DecodeRequest(r io.Reader) (types.AggregationRequest, error) {
	var req types.AggregationRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return req, err
		}
		if errors.Is(err, io.EOF) {
			return req, fmt.Errorf("invalid request body: empty")
		}
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return req, fmt.Errorf("invalid request body: trailing data after JSON value")
	}
	return req, nil
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
