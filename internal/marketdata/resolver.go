package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/logging"
	"trs-pricer/internal/observability"
)

// ErrNoProvider is returned when a price must be fetched but no provider is configured.
var ErrNoProvider = errors.New("no market data provider configured")

// Resolver turns a Request into validated TradeParameters.
type Resolver struct {
	provider Provider
	defaults Defaults
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// ResolverOptions contains configuration for creating a Resolver.
type ResolverOptions struct {
	Provider Provider // may be nil if every request overrides the price
	Defaults Defaults
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewResolver creates a resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	return &Resolver{
		provider: opts.Provider,
		defaults: opts.Defaults,
		logger:   logging.OrNop(opts.Logger),
		metrics:  opts.Metrics,
	}
}

// Resolve fills in market inputs for req.
//
// Overrides always win. A price that cannot be obtained is fatal. Dividend
// yield, volatility, funding spread and benchmark rate fall back to defaults
// with a warning. The result is validated before it is returned.
func (r *Resolver) Resolve(ctx context.Context, req Request) (domain.TradeParameters, error) {
	params := domain.TradeParameters{
		Ticker:           req.Ticker,
		Notional:         orDefault(req.Notional, r.defaults.Notional),
		Tenor:            orDefault(req.Tenor, r.defaults.Tenor),
		PaymentFrequency: req.PaymentFrequency,
		NumSimulations:   req.NumSimulations,
		Seed:             req.Seed,
	}
	if params.PaymentFrequency == 0 {
		params.PaymentFrequency = r.defaults.PaymentFrequency
	}
	if params.NumSimulations == 0 {
		params.NumSimulations = r.defaults.NumSimulations
	}

	price, err := r.price(ctx, req)
	if err != nil {
		return domain.TradeParameters{}, err
	}
	params.InitialPrice = price

	params.DividendYield = r.optional("dividend_yield", req.Ticker, req.Overrides.DividendYield, r.defaults.DividendYield,
		func(p Provider) (float64, error) { return p.DividendYield(ctx, req.Ticker) })
	params.Volatility = r.optional("volatility", req.Ticker, req.Overrides.Volatility, r.defaults.Volatility,
		func(p Provider) (float64, error) { return p.Volatility(ctx, req.Ticker) })
	params.FundingSpread = r.optional("funding_spread", req.Ticker, req.Overrides.FundingSpread, r.defaults.FundingSpread,
		func(p Provider) (float64, error) { return p.FundingSpread(ctx, req.Ticker) })
	params.BenchmarkRate = r.optional("benchmark_rate", req.Ticker, req.Overrides.BenchmarkRate, r.defaults.BenchmarkRate,
		func(p Provider) (float64, error) { return p.BenchmarkRate(ctx) })

	if err := params.Validate(); err != nil {
		return domain.TradeParameters{}, err
	}
	return params, nil
}

func (r *Resolver) price(ctx context.Context, req Request) (float64, error) {
	if req.Overrides.InitialPrice != nil {
		return *req.Overrides.InitialPrice, nil
	}
	if r.provider == nil {
		return 0, fmt.Errorf("resolve price for %s: %w", req.Ticker, ErrNoProvider)
	}

	start := time.Now()
	price, err := r.provider.CurrentPrice(ctx, req.Ticker)
	r.metrics.RecordMarketDataCall("current_price", time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("resolve price for %s: %w", req.Ticker, err)
	}
	return price, nil
}

func (r *Resolver) optional(input, ticker string, override *float64, fallback float64, fetch func(Provider) (float64, error)) float64 {
	if override != nil {
		return *override
	}
	if r.provider == nil {
		return fallback
	}

	start := time.Now()
	v, err := fetch(r.provider)
	r.metrics.RecordMarketDataCall(input, time.Since(start).Seconds())
	if err != nil {
		r.logger.Warn("market input unavailable, using default",
			zap.String("ticker", ticker),
			zap.String("input", input),
			zap.Float64("default", fallback),
			zap.Error(err))
		r.metrics.RecordFallback(input)
		return fallback
	}
	return v
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
