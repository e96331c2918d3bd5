package aggregate

import (
	"math"
	"sort"
	"strconv"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the p-th percentile (0–100) of values using linear
// interpolation between the closest order statistics:
//
//	rank = p/100 * (n-1)
//	v    = s[floor(rank)] + (s[ceil(rank)] - s[floor(rank)]) * frac(rank)
//
// values is not modified. Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := clamp(p, 0, 100) / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// Round2 rounds v to two decimal places. The exact binary value of v is
// rounded, ties to even, so 254.405 (stored just above the midpoint) becomes
// 254.41 and 199.755 (stored just below) becomes 199.75.
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v // only reachable for NaN and ±Inf, which round to themselves
	}
	return r
}

// CountAbove returns how many values are strictly greater than threshold.
// A nil threshold counts nothing.
func CountAbove(values []float64, threshold *float64) int {
	if threshold == nil {
		return 0
	}
	var n int
	for _, v := range values {
		if v > *threshold {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
