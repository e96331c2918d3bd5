package api

import "github.com/regionpulse/regionpulse/server/internal/store"

// RegionsResponse is the payload for GET /api/v1/regions.
type RegionsResponse struct {
	Regions []store.RegionInfo `json:"regions"`
	Total   int                `json:"total_records"`
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
