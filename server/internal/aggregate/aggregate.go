package aggregate

import (
	"github.com/regionpulse/regionpulse/pkg/types"
	"github.com/regionpulse/regionpulse/server/internal/store"
)

// Source is the read side of the telemetry store that Aggregate needs.
type Source interface {
	RecordsForRegion(region string) []store.Record
}

// Observer is notified once per requested region with whether any records
// were found. It lets callers count lookups without the aggregator holding
// state. A nil Observer is allowed.
type Observer interface {
	ObserveLookup(region string, found bool)
}

// Aggregate computes RegionStats for each region in regions. Regions without
// records are left out of the result. threshold may be nil, in which case
// every region reports zero breaches.
func Aggregate(src Source, regions []string, threshold *float64) types.Result {
	return AggregateObserved(src, regions, threshold, nil)
}

// AggregateObserved is Aggregate with a lookup Observer.
func AggregateObserved(src Source, regions []string, threshold *float64, obs Observer) types.Result {
	out := make(types.Result, len(regions))
	for _, region := range regions {
		if _, done := out[region]; done {
			continue
		}
		recs := src.RecordsForRegion(region)
		if obs != nil {
			obs.ObserveLookup(region, len(recs) > 0)
		}
		if len(recs) == 0 {
			continue
		}
		out[region] = summarise(recs, threshold)
	}
	return out
}

func summarise(recs []store.Record, threshold *float64) types.RegionStats {
	latencies := make([]float64, len(recs))
	uptimes := make([]float64, len(recs))
	for i, r := range recs {
		latencies[i] = r.LatencyMs
		uptimes[i] = r.UptimePct
	}
	return types.RegionStats{
		AvgLatency: Round2(Mean(latencies)),
		P95Latency: Round2(Percentile(latencies, 95)),
		AvgUptime:  Round2(Mean(uptimes)),
		Breaches:   CountAbove(latencies, threshold),
	}
}
