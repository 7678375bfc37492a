// Package metrics provides the ensemble statistics shared by valuation,
// reporting and decision code.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"trs-pricer/internal/domain"
)

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PopStdDev returns the population standard deviation (n denominator).
func PopStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// Percentile uses linear interpolation between order statistics:
// h = (n-1)*q, result = x[floor(h)] + (h-floor(h))*(x[floor(h)+1]-x[floor(h)]).
// sorted must be pre-sorted ASC. q is a fraction (0.05 = 5th percentile).
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	idx := q * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// NPVPercentiles returns the 5/25/50/75/95 percentiles of values.
// values is not modified.
func NPVPercentiles(values []float64) domain.Percentiles {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return domain.Percentiles{
		P5:  Percentile(sorted, 0.05),
		P25: Percentile(sorted, 0.25),
		P50: Percentile(sorted, 0.50),
		P75: Percentile(sorted, 0.75),
		P95: Percentile(sorted, 0.95),
	}
}

// ArgMax returns the first index of the largest value and the value itself.
// Returns (-1, 0) for an empty slice.
func ArgMax(values []float64) (int, float64) {
	if len(values) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best, values[best]
}
