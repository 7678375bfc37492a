package valuation

import (
	"errors"
	"fmt"
	"math"
)

// ErrValuationPeriod is returned when a valuation period lies outside [1, N+1].
var ErrValuationPeriod = errors.New("valuation period out of range")

// presentValue discounts flows[k] by (1+periodRate)^-(k+1).
// NPV and MarkToMarket both go through here so that MTM at period 1
// reproduces NPV exactly.
func presentValue(flows []float64, periodRate float64) float64 {
	base := 1 + periodRate
	var pv float64
	for k, f := range flows {
		pv += f * math.Pow(base, -float64(k+1))
	}
	return pv
}

// NPV discounts a per-period cash flow series to inception.
// Period t (1-based) is discounted by (1 + benchmarkRate/frequency)^-t.
func NPV(flows []float64, benchmarkRate float64, frequency int) float64 {
	return presentValue(flows, benchmarkRate/float64(frequency))
}

// MarkToMarket values the flows still outstanding at valuationPeriod.
// Flow k (1-based, k >= valuationPeriod) is discounted at offset k-valuationPeriod+1.
// valuationPeriod N+1 means nothing is left and the value is exactly 0.
func MarkToMarket(flows []float64, benchmarkRate float64, frequency, valuationPeriod int) (float64, error) {
	n := len(flows)
	if valuationPeriod < 1 || valuationPeriod > n+1 {
		return 0, fmt.Errorf("%w: %d not in [1, %d]", ErrValuationPeriod, valuationPeriod, n+1)
	}
	return presentValue(flows[valuationPeriod-1:], benchmarkRate/float64(frequency)), nil
}

// mtmProfile returns MTM at every period 1..N, index 0 = period 1.
func mtmProfile(flows []float64, periodRate float64) []float64 {
	out := make([]float64, len(flows))
	for p := range flows {
		out[p] = presentValue(flows[p:], periodRate)
	}
	return out
}
