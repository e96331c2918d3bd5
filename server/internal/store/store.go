package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
)

// ErrMalformed is returned by Load and Decode when the dataset cannot be used.
var ErrMalformed = errors.New("malformed telemetry")

// Record is one telemetry sample.
type Record struct {
	Region    string  `json:"region"`
	LatencyMs float64 `json:"latency_ms"`
	UptimePct float64 `json:"uptime_pct"`
}

// RegionInfo summarises the records held for one region.
type RegionInfo struct {
	Region  string `json:"region"`
	Records int    `json:"records"`
}

// Store is an immutable, in-memory telemetry dataset indexed by region.
// All methods are safe for concurrent use because nothing mutates a Store
// after it has been built.
type Store struct {
	records  []Record
	byRegion map[string][]int // region -> indexes into records, in load order
}

// rawRecord mirrors Record with pointer fields so missing keys can be told
// apart from zero values.
type rawRecord struct {
	Region    *string  `json:"region"`
	LatencyMs *float64 `json:"latency_ms"`
	UptimePct *float64 `json:"uptime_pct"`
}

// Load reads the JSON array at path and builds a Store from it.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	defer f.Close()

	st, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", path, err)
	}
	return st, nil
}

// Decode parses a JSON array of telemetry records from r.
func Decode(r io.Reader) (*Store, error) {
	var raw []rawRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON array of records", ErrMalformed)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after record array", ErrMalformed)
	}

	records := make([]Record, 0, len(raw))
	for i, rr := range raw {
		rec, err := rr.validate(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return New(records), nil
}

func (rr rawRecord) validate(i int) (Record, error) {
	switch {
	case rr.Region == nil:
		return Record{}, fmt.Errorf("%w: record %d: missing region", ErrMalformed, i)
	case *rr.Region == "":
		return Record{}, fmt.Errorf("%w: record %d: empty region", ErrMalformed, i)
	case rr.LatencyMs == nil:
		return Record{}, fmt.Errorf("%w: record %d: missing latency_ms", ErrMalformed, i)
	case *rr.LatencyMs < 0:
		return Record{}, fmt.Errorf("%w: record %d: negative latency_ms %v", ErrMalformed, i, *rr.LatencyMs)
	case rr.UptimePct == nil:
		return Record{}, fmt.Errorf("%w: record %d: missing uptime_pct", ErrMalformed, i)
	}
	if *rr.UptimePct < 0 || *rr.UptimePct > 100 {
		slog.Warn("store: uptime_pct outside 0-100, keeping record",
			"index", i, "region", *rr.Region, "uptime_pct", *rr.UptimePct)
	}
	return Record{Region: *rr.Region, LatencyMs: *rr.LatencyMs, UptimePct: *rr.UptimePct}, nil
}

// New builds a Store from records. The slice is copied; later changes to it
// do not affect the Store.
func New(records []Record) *Store {
	st := &Store{
		records:  append([]Record(nil), records...),
		byRegion: make(map[string][]int),
	}
	for i, r := range st.records {
		st.byRegion[r.Region] = append(st.byRegion[r.Region], i)
	}
	return st
}

// RecordsForRegion returns the records for region in load order, or nil if
// the region is unknown. The returned slice is owned by the caller.
func (s *Store) RecordsForRegion(region string) []Record {
	idx, ok := s.byRegion[region]
	if !ok {
		return nil
	}
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = s.records[j]
	}
	return out
}

// Regions returns every region in the dataset with its record count, sorted
// by name.
func (s *Store) Regions() []RegionInfo {
	out := make([]RegionInfo, 0, len(s.byRegion))
	for name, idx := range s.byRegion {
		out = append(out, RegionInfo{Region: name, Records: len(idx)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// Len returns the total number of records.
func (s *Store) Len() int {
	return len(s.records)
}
