// Package simulation generates geometric Brownian motion price paths for
// a TRS underlying.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trs-pricer/internal/domain"
)

// Simulator produces price path ensembles.
type Simulator struct {
	workers int
	logger  *zap.Logger
}

// Options contains configuration for creating a Simulator.
type Options struct {
	Workers int         // concurrent path workers; <= 0 uses GOMAXPROCS
	Logger  *zap.Logger // nil uses a no-op logger
}

// NewSimulator creates a simulator.
func NewSimulator(opts Options) *Simulator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{workers: workers, logger: logger}
}

// Simulate generates params.NumSimulations paths of params.NumPeriods()+1 prices.
//
//	S_t = S_{t-1} * exp((mu - sigma^2/2) dt + sigma sqrt(dt) Z_t),  mu = BenchmarkRate
//
// Parameters are validated before any draw. Identical seed and parameters
// produce bit-identical paths.
//
// If ctx is cancelled mid-run the completed paths are returned in index order
// with Partial set. If no path completed, the context error is returned.
func (s *Simulator) Simulate(ctx context.Context, params domain.TradeParameters, streams Streams) (*domain.Ensemble, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	numPaths := params.NumSimulations
	periods := params.NumPeriods()
	dt := params.TimeStep()
	drift := (params.BenchmarkRate - 0.5*params.Volatility*params.Volatility) * dt
	diffusion := params.Volatility * math.Sqrt(dt)

	paths := make([]domain.PricePath, numPaths)
	done := make([]bool, numPaths)

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i := 0; i < numPaths; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			paths[i] = generatePath(i, params.InitialPrice, periods, drift, diffusion, streams)
			done[i] = true
			return nil
		})
	}
	// Workers never fail; Wait is the barrier.
	_ = g.Wait()

	ensemble, err := assemble(paths, done, periods)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", ctx.Err())
	}
	if ensemble.Partial {
		s.logger.Warn("simulation cancelled, returning partial ensemble",
			zap.Int("completed", len(ensemble.Paths)),
			zap.Int("requested", numPaths))
	}
	s.logger.Debug("simulation complete",
		zap.Uint64("seed", streams.Seed()),
		zap.Int("paths", len(ensemble.Paths)),
		zap.Int("periods", periods))
	return ensemble, nil
}

func generatePath(index int, initial float64, periods int, drift, diffusion float64, streams Streams) domain.PricePath {
	normal := streams.Normal(index)
	prices := make([]float64, periods+1)
	prices[0] = initial
	for t := 1; t <= periods; t++ {
		z := normal.Rand()
		prices[t] = prices[t-1] * math.Exp(drift+diffusion*z)
	}
	return domain.NewPricePath(index, prices)
}

// errNoCompletedPaths signals that cancellation left nothing to return.
var errNoCompletedPaths = errors.New("no completed paths")

// assemble keeps completed paths in index order.
func assemble(paths []domain.PricePath, done []bool, periods int) (*domain.Ensemble, error) {
	completed := make([]domain.PricePath, 0, len(paths))
	for i, ok := range done {
		if ok {
			completed = append(completed, paths[i])
		}
	}
	if len(completed) == 0 {
		return nil, errNoCompletedPaths
	}
	return &domain.Ensemble{
		Paths:   completed,
		Periods: periods,
		Partial: len(completed) < len(paths),
	}, nil
}
