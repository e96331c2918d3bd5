// Package api implements the HTTP API for regionpulse.
//
// New(store, opts) returns an http.Handler that serves:
//
//	POST    /api, /api/index   aggregate stats for {"regions": [...], "threshold_ms": n|null}
//	OPTIONS /api, /api/index   CORS preflight, empty JSON object
//	GET     /api/v1/regions    regions in the dataset with record counts
//	GET     /healthz           liveness and loaded record count
//
// Every response carries CORS headers and an X-Request-ID. Malformed bodies
// get 400, oversized bodies 413, other methods 405.
//
// JSON types are defined in types.go and pkg/types. No external HTTP
// framework is used.
package api
