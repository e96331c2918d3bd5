// Package metrics keeps the server's request and lookup counters and renders
// them in the Prometheus text exposition format at GET /metrics.
package metrics
