// Package aggregate computes per-region latency and uptime summaries from the
// telemetry store.
//
// stats.go holds the pure numeric helpers (Mean, Percentile, Round2).
// aggregate.go applies them per requested region:
//
//	avg_latency = Round2(Mean(latencies))
//	p95_latency = Round2(Percentile(latencies, 95))   // linear interpolation
//	avg_uptime  = Round2(Mean(uptimes))
//	breaches    = count(latency > threshold)          // 0 when threshold is nil
//
// Regions with no records are omitted. Aggregate keeps no state between calls.
package aggregate
