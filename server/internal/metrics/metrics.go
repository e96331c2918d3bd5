package metrics

import (
	"bytes"
	"net/http"
	"sort"
	"strconv"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names exposed at /metrics.
const (
	MetricHTTPRequests     = "regionpulse_http_requests_total"
	MetricRegionLookups    = "regionpulse_region_lookups_total"
	MetricTelemetryRecords = "regionpulse_telemetry_records"
)

// UnknownRegion is the region label shared by all missed lookups. Missed
// names come from clients, so they are never used as label values.
const UnknownRegion = "unknown"

type requestKey struct {
	route string
	code  int
}

type lookupKey struct {
	region string
	hit    bool
}

// Registry holds the server's counters. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	requests map[requestKey]uint64
	lookups  map[lookupKey]uint64
	records  int
}

// New returns a Registry reporting records as the loaded dataset size.
func New(records int) *Registry {
	return &Registry{
		requests: make(map[requestKey]uint64),
		lookups:  make(map[lookupKey]uint64),
		records:  records,
	}
}

// ObserveRequest counts one HTTP response for route with status code.
func (r *Registry) ObserveRequest(route string, code int) {
	r.mu.Lock()
	r.requests[requestKey{route, code}]++
	r.mu.Unlock()
}

// ObserveLookup counts one region lookup made by the aggregator. Hits are
// labelled with the region, which the dataset bounds; misses all fall under
// UnknownRegion.
func (r *Registry) ObserveLookup(region string, found bool) {
	if !found {
		region = UnknownRegion
	}
	r.mu.Lock()
	r.lookups[lookupKey{region, found}]++
	r.mu.Unlock()
}

// Families returns the current counters as Prometheus metric families,
// with metrics ordered by label values so output is stable.
func (r *Registry) Families() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	reqs := family(MetricHTTPRequests, "HTTP responses by route and status code.", dto.MetricType_COUNTER)
	for k, v := range r.requests {
		reqs.Metric = append(reqs.Metric, counter(float64(v),
			label("code", strconv.Itoa(k.code)), label("route", k.route)))
	}

	looks := family(MetricRegionLookups, "Region lookups by the aggregator, by result.", dto.MetricType_COUNTER)
	for k, v := range r.lookups {
		result := "miss"
		if k.hit {
			result = "hit"
		}
		looks.Metric = append(looks.Metric, counter(float64(v),
			label("region", k.region), label("result", result)))
	}

	recs := family(MetricTelemetryRecords, "Telemetry records loaded at startup.", dto.MetricType_GAUGE)
	recs.Metric = append(recs.Metric, &dto.Metric{Gauge: &dto.Gauge{Value: float64Ptr(float64(r.records))}})

	for _, mf := range []*dto.MetricFamily{reqs, looks} {
		sortMetrics(mf.Metric)
	}
	return []*dto.MetricFamily{reqs, looks, recs}
}

// ServeHTTP writes the text exposition of all non-empty families.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	for _, mf := range r.Families() {
		if len(mf.Metric) == 0 {
			continue // the text encoder rejects empty families
		}
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// --- helpers ----------------------------------------------------------------

func family(name, help string, typ dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: stringPtr(name),
		Help: stringPtr(help),
		Type: typ.Enum(),
	}
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label:   labels,
		Counter: &dto.Counter{Value: float64Ptr(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: stringPtr(name), Value: stringPtr(value)}
}

// sortMetrics orders metrics by their label values. Labels within each metric
// are already in name order.
func sortMetrics(ms []*dto.Metric) {
	key := func(m *dto.Metric) string {
		var b bytes.Buffer
		for _, lp := range m.GetLabel() {
			b.WriteString(lp.GetValue())
			b.WriteByte(0)
		}
		return b.String()
	}
	sort.Slice(ms, func(i, j int) bool { return key(ms[i]) < key(ms[j]) })
}

func stringPtr(s string) *string     { return &s }
func float64Ptr(f float64) *float64 { return &f }
