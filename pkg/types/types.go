package types

import (
	"encoding/json"
	"fmt"
)

// AggregationRequest is the decoded body of an aggregation call.
type AggregationRequest struct {
	// Regions lists the regions to summarise. Order and duplicates do not
	// affect the result.
	Regions RegionList `json:"regions"`

	// ThresholdMs is the latency above which a record counts as a breach.
	// Nil means no threshold was given; no record breaches in that case.
	ThresholdMs *float64 `json:"threshold_ms"`
}

// RegionStats is the summary computed for one region. Float fields are
// rounded to two decimal places.
type RegionStats struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// Result maps region name to its statistics. Regions with no records are
// absent.
type Result map[string]RegionStats

// RegionList is a list of region names. Unlike a plain []string it rejects
// null elements when decoded, instead of turning them into "".
type RegionList []string

// UnmarshalJSON decodes a JSON array of strings. A JSON null leaves the list
// empty.
func (l *RegionList) UnmarshalJSON(data []byte) error {
	var raw []*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	out := make(RegionList, len(raw))
	for i, name := range raw {
		if name == nil {
			return fmt.Errorf("regions[%d]: null is not a region name", i)
		}
		out[i] = *name
	}
	*l = out
	return nil
}
