// Package verification replays stored valuation runs and checks that the
// recomputed results match what was persisted.
package verification

import (
	"context"
	"fmt"
	"math"

	"trs-pricer/internal/domain"
)

// FloatTolerance is the relative tolerance for float64 comparisons.
// Replays are bit-identical in memory; the tolerance absorbs storage round trips.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// RunVerification contains the result of verifying a single run.
type RunVerification struct {
	RunID       string
	Ticker      string
	InputHash   string
	Match       bool
	Skipped     string // non-empty when the run cannot be replayed
	Divergences []FieldDivergence
	StoredNPV   float64
	ReplayedNPV float64
}

// Report contains results for batch verification.
type Report struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	SkippedRuns   int
	Results       []RunVerification
}

// Add appends res and updates the counts.
func (r *Report) Add(res RunVerification) {
	r.TotalRuns++
	r.Results = append(r.Results, res)
	switch {
	case res.Skipped != "":
		r.SkippedRuns++
	case res.Match:
		r.MatchedRuns++
	default:
		r.DivergentRuns++
	}
}

// Verifier replays stored runs.
type Verifier interface {
	// VerifyRun loads the stored run, re-executes the valuation with the
	// recorded parameters and seed, and compares every result field.
	VerifyRun(ctx context.Context, runID string) (*RunVerification, error)

	// VerifyAll verifies the most recent limit runs (0 = all).
	VerifyAll(ctx context.Context, limit int) (*Report, error)
}

// CompareRuns compares two run records and returns divergences.
// Identity fields (RunID, ExecutionID, CreatedAt) are expected to differ.
func CompareRuns(stored, replayed *domain.RunRecord) []FieldDivergence {
	var d divergences

	d.exact("InputHash", stored.InputHash, replayed.InputHash)
	d.exact("PathsSimulated", stored.PathsSimulated, replayed.PathsSimulated)
	d.exact("PathsExcluded", stored.PathsExcluded, replayed.PathsExcluded)
	d.exact("Summary.PathCount", stored.Summary.PathCount, replayed.Summary.PathCount)

	s, r := stored.Summary, replayed.Summary
	d.float("Summary.NPVMean", s.NPVMean, r.NPVMean)
	d.float("Summary.NPVStd", s.NPVStd, r.NPVStd)
	d.float("Summary.NPVPercentiles.P5", s.NPVPercentiles.P5, r.NPVPercentiles.P5)
	d.float("Summary.NPVPercentiles.P25", s.NPVPercentiles.P25, r.NPVPercentiles.P25)
	d.float("Summary.NPVPercentiles.P50", s.NPVPercentiles.P50, r.NPVPercentiles.P50)
	d.float("Summary.NPVPercentiles.P75", s.NPVPercentiles.P75, r.NPVPercentiles.P75)
	d.float("Summary.NPVPercentiles.P95", s.NPVPercentiles.P95, r.NPVPercentiles.P95)
	d.float("Summary.TotalReturnLegTotal", s.TotalReturnLegTotal, r.TotalReturnLegTotal)
	d.float("Summary.FundingLegTotal", s.FundingLegTotal, r.FundingLegTotal)

	if len(s.MeanNetCashFlowByPeriod) != len(r.MeanNetCashFlowByPeriod) {
		d.exact("Summary.MeanNetCashFlowByPeriod.len",
			len(s.MeanNetCashFlowByPeriod), len(r.MeanNetCashFlowByPeriod))
	} else {
		for i := range s.MeanNetCashFlowByPeriod {
			d.float(fmt.Sprintf("Summary.MeanNetCashFlowByPeriod[%d]", i+1),
				s.MeanNetCashFlowByPeriod[i], r.MeanNetCashFlowByPeriod[i])
		}
	}

	d.float("PeakEPE", stored.PeakEPE, replayed.PeakEPE)
	d.exact("PeakEPEPeriod", stored.PeakEPEPeriod, replayed.PeakEPEPeriod)
	d.float("DeltaExposure", stored.DeltaExposure, replayed.DeltaExposure)
	d.float("FundingLegPV", stored.FundingLegPV, replayed.FundingLegPV)

	return d
}

// CompareProfiles compares stored and replayed exposure profiles point by point.
func CompareProfiles(stored, replayed []*domain.ProfilePoint) []FieldDivergence {
	var d divergences
	if len(stored) != len(replayed) {
		d.exact("Profile.len", len(stored), len(replayed))
		return d
	}
	for i := range stored {
		s, r := stored[i], replayed[i]
		d.exact(fmt.Sprintf("Profile[%d].Period", i), s.Period, r.Period)
		d.float(fmt.Sprintf("Profile[%d].TimeOffsetYears", i), s.TimeOffsetYears, r.TimeOffsetYears)
		d.float(fmt.Sprintf("Profile[%d].EPE", i), s.ExpectedPositiveExposure, r.ExpectedPositiveExposure)
		d.float(fmt.Sprintf("Profile[%d].MeanNetCashFlow", i), s.MeanNetCashFlow, r.MeanNetCashFlow)
	}
	return d
}

type divergences []FieldDivergence

func (d *divergences) exact(field string, expected, actual interface{}) {
	if expected != actual {
		*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}
}

func (d *divergences) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}
}

// floatEquals compares within FloatTolerance relative to the larger magnitude.
// NaN equals NaN so that undefined statistics replay as undefined.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= FloatTolerance*scale
}
