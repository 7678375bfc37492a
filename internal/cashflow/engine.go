// Package cashflow derives the periodic TRS leg payments from price paths.
//
// Sign convention: the total return leg is paid by the desk to the client,
// the funding leg by the client to the desk. Net is to the desk.
package cashflow

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"trs-pricer/internal/domain"
)

// TotalReturnLeg is the period's price return plus the dividend accrual:
// (end-start)/start * notional + dividendYield/frequency * notional.
// It returns a *domain.DomainError if start is zero or negative. Non-finite
// prices pass through and are caught by valuation.
func TotalReturnLeg(start, end float64, params domain.TradeParameters) (float64, error) {
	if start <= 0 {
		return 0, &domain.DomainError{Price: start}
	}
	priceReturn := (end - start) / start
	dividend := params.DividendYield / float64(params.PaymentFrequency)
	return priceReturn*params.Notional + dividend*params.Notional, nil
}

// FundingLeg is the fixed per-period funding payment
// (benchmark + spread)/frequency * notional. It does not depend on the
// underlying's performance.
func FundingLeg(params domain.TradeParameters) float64 {
	return params.EffectiveFundingRate() / float64(params.PaymentFrequency) * params.Notional
}

// ForPath returns one record per period of path, in period order.
func ForPath(path domain.PricePath, params domain.TradeParameters) (domain.PathCashFlows, error) {
	periods := path.Len() - 1
	funding := FundingLeg(params)
	records := make([]domain.CashFlowRecord, periods)

	for t := 1; t <= periods; t++ {
		start, end := path.At(t-1), path.At(t)
		tr, err := TotalReturnLeg(start, end, params)
		if err != nil {
			return domain.PathCashFlows{}, &domain.DomainError{Path: path.Index, Period: t, Price: start}
		}
		records[t-1] = domain.CashFlowRecord{
			Period:              t,
			PeriodStartPrice:    start,
			PeriodEndPrice:      end,
			TotalReturnCashFlow: tr,
			FundingCashFlow:     funding,
			NetCashFlow:         funding - tr,
		}
	}
	return domain.PathCashFlows{PathIndex: path.Index, Records: records}, nil
}

// Engine computes cash flows for whole ensembles on a bounded worker pool.
type Engine struct {
	workers int
}

// NewEngine creates an engine with the given worker count (<= 0 uses GOMAXPROCS).
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{workers: workers}
}

// ForEnsemble returns cash flows for every path, index-aligned with ensemble.Paths.
// The first DomainError aborts the run.
func (e *Engine) ForEnsemble(ctx context.Context, ensemble *domain.Ensemble, params domain.TradeParameters) ([]domain.PathCashFlows, error) {
	out := make([]domain.PathCashFlows, len(ensemble.Paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, path := range ensemble.Paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			flows, err := ForPath(path, params)
			if err != nil {
				return err
			}
			out[i] = flows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cash flows: %w", err)
	}
	return out, nil
}
