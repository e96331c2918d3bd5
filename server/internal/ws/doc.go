// Package ws implements the WebSocket aggregation endpoint for regionpulse.
//
// Each inbound text frame is an aggregation request, optionally tagged with
// an id that is echoed back:
//
//	{"id": "q1", "regions": ["us-east"], "threshold_ms": 250}
//
// and the hub answers on the same connection:
//
//	{"id": "q1", "event": "aggregate", "data": {"us-east": {...}}}
//	{"id": "q1", "event": "error", "error": "invalid request: ..."}
//
// New(store, opts) creates a Hub. Hub.Run(ctx) blocks until ctx is cancelled,
// then closes all active connections. The endpoint is mounted at /ws/aggregate.
package ws
