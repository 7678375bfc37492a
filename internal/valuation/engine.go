// Package valuation discounts TRS cash flows and reduces a simulated
// ensemble to NPV statistics and an expected positive exposure profile.
package valuation

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/metrics"
)

// PathValuation is the per-path input to aggregation.
type PathValuation struct {
	PathIndex int

	Net     []float64 // net cash flow per period
	NPV     float64
	MTM     []float64 // MTM at periods 1..N, MTM[0] == NPV
	Funding float64   // funding leg discounted like NPV

	TotalReturnTotal float64 // undiscounted
	FundingTotal     float64 // undiscounted

	// Excluded is set when any price, flow or value on the path is non-finite.
	Excluded bool
	Reason   string
}

// ValuePath discounts one path's cash flows.
func ValuePath(path domain.PricePath, flows domain.PathCashFlows, params domain.TradeParameters) PathValuation {
	rate := params.PeriodRate()
	net := flows.NetSeries()

	v := PathValuation{
		PathIndex: flows.PathIndex,
		Net:       net,
		NPV:       presentValue(net, rate),
		MTM:       mtmProfile(net, rate),
		Funding:   presentValue(flows.FundingSeries(), rate),
	}
	for _, r := range flows.Records {
		v.TotalReturnTotal += r.TotalReturnCashFlow
		v.FundingTotal += r.FundingCashFlow
	}

	v.Reason = nonFiniteReason(path, flows, v)
	v.Excluded = v.Reason != ""
	return v
}

func nonFiniteReason(path domain.PricePath, flows domain.PathCashFlows, v PathValuation) string {
	for t := 0; t < path.Len(); t++ {
		if !isFinite(path.At(t)) {
			return fmt.Sprintf("non-finite price at period %d", t)
		}
	}
	for _, r := range flows.Records {
		if !isFinite(r.TotalReturnCashFlow) || !isFinite(r.FundingCashFlow) || !isFinite(r.NetCashFlow) {
			return fmt.Sprintf("non-finite cash flow at period %d", r.Period)
		}
	}
	if !isFinite(v.NPV) {
		return "non-finite NPV"
	}
	for p, m := range v.MTM {
		if !isFinite(m) {
			return fmt.Sprintf("non-finite MTM at period %d", p+1)
		}
	}
	return ""
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Engine values whole ensembles on a bounded worker pool.
type Engine struct {
	workers int
	logger  *zap.Logger
}

// Options contains configuration for creating an Engine.
type Options struct {
	Workers int
	Logger  *zap.Logger
}

// NewEngine creates a valuation engine.
func NewEngine(opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{workers: workers, logger: logger}
}

// Result is the reduced valuation of one ensemble.
type Result struct {
	Summary       domain.SummaryStatistics
	EPE           []domain.EPEPoint
	PeakEPE       float64
	PeakEPEPeriod int
	DeltaExposure float64
	FundingLegPV  float64
	Warnings      []domain.NumericalWarning
	PathsExcluded int
}

// Evaluate values every path in parallel, then reduces after all path work
// has finished. flows must be index-aligned with ensemble.Paths.
func (e *Engine) Evaluate(ctx context.Context, ensemble *domain.Ensemble, flows []domain.PathCashFlows, params domain.TradeParameters) (*Result, error) {
	if len(flows) != len(ensemble.Paths) {
		return nil, fmt.Errorf("valuation: %d cash flow sets for %d paths", len(flows), len(ensemble.Paths))
	}

	vals := make([]PathValuation, len(flows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range flows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vals[i] = ValuePath(ensemble.Paths[i], flows[i], params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("valuation: %w", err)
	}

	included, warnings := Filter(vals)
	for _, w := range warnings {
		e.logger.Warn("path excluded from aggregates", zap.Int("path", w.Path), zap.String("reason", w.Reason))
	}

	summary, err := Aggregate(included)
	if err != nil {
		return nil, err
	}

	profile := ExposureProfile(included, params)
	peakIdx, peak := PeakExposure(profile)
	peakPeriod := 0
	if peakIdx >= 0 {
		peakPeriod = profile[peakIdx].Period
	}

	return &Result{
		Summary:       summary,
		EPE:           profile,
		PeakEPE:       peak,
		PeakEPEPeriod: peakPeriod,
		DeltaExposure: DeltaExposure(params),
		FundingLegPV:  FundingLegPV(included),
		Warnings:      warnings,
		PathsExcluded: len(warnings),
	}, nil
}

// Filter splits valuations into included paths and warnings for excluded ones.
func Filter(vals []PathValuation) ([]PathValuation, []domain.NumericalWarning) {
	included := make([]PathValuation, 0, len(vals))
	var warnings []domain.NumericalWarning
	for _, v := range vals {
		if v.Excluded {
			warnings = append(warnings, domain.NumericalWarning{Path: v.PathIndex, Reason: v.Reason})
			continue
		}
		included = append(included, v)
	}
	return included, warnings
}

// Aggregate reduces included path valuations to summary statistics.
// It returns domain.ErrNoValidPaths if vals is empty.
func Aggregate(vals []PathValuation) (domain.SummaryStatistics, error) {
	if len(vals) == 0 {
		return domain.SummaryStatistics{}, domain.ErrNoValidPaths
	}

	npvs := make([]float64, len(vals))
	trTotals := make([]float64, len(vals))
	fundingTotals := make([]float64, len(vals))
	for i, v := range vals {
		npvs[i] = v.NPV
		trTotals[i] = v.TotalReturnTotal
		fundingTotals[i] = v.FundingTotal
	}

	periods := len(vals[0].Net)
	meanNet := make([]float64, periods)
	column := make([]float64, len(vals))
	for t := 0; t < periods; t++ {
		for i, v := range vals {
			column[i] = v.Net[t]
		}
		meanNet[t] = metrics.Mean(column)
	}

	return domain.SummaryStatistics{
		PathCount:               len(vals),
		NPVMean:                 metrics.Mean(npvs),
		NPVStd:                  metrics.PopStdDev(npvs),
		NPVPercentiles:          metrics.NPVPercentiles(npvs),
		MeanNetCashFlowByPeriod: meanNet,
		TotalReturnLegTotal:     metrics.Mean(trTotals),
		FundingLegTotal:         metrics.Mean(fundingTotals),
	}, nil
}

// ExposureProfile returns epe[p] = mean over paths of max(0, MTM(p)) for
// p = 1..N, paired with the time offset p/frequency in years.
func ExposureProfile(vals []PathValuation, params domain.TradeParameters) []domain.EPEPoint {
	if len(vals) == 0 {
		return nil
	}
	periods := len(vals[0].MTM)
	profile := make([]domain.EPEPoint, periods)
	positive := make([]float64, len(vals))
	for p := 0; p < periods; p++ {
		for i, v := range vals {
			positive[i] = math.Max(0, v.MTM[p])
		}
		profile[p] = domain.EPEPoint{
			Period:                   p + 1,
			TimeOffsetYears:          float64(p+1) / float64(params.PaymentFrequency),
			ExpectedPositiveExposure: metrics.Mean(positive),
		}
	}
	return profile
}

// PeakExposure returns the index and value of the largest EPE point.
func PeakExposure(profile []domain.EPEPoint) (int, float64) {
	values := make([]float64, len(profile))
	for i, pt := range profile {
		values[i] = pt.ExpectedPositiveExposure
	}
	return metrics.ArgMax(values)
}

// DeltaExposure is the equity delta of the desk's total return leg in shares.
func DeltaExposure(params domain.TradeParameters) float64 {
	return params.Notional / params.InitialPrice
}

// FundingLegPV is the ensemble mean of the discounted funding series.
func FundingLegPV(vals []PathValuation) float64 {
	pvs := make([]float64, len(vals))
	for i, v := range vals {
		pvs[i] = v.Funding
	}
	return metrics.Mean(pvs)
}
