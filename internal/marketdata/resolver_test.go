package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trs-pricer/internal/domain"
	"trs-pricer/internal/observability"
)

func ptr(v float64) *float64 { return &v }

func TestResolver_UsesProviderValues(t *testing.T) {
	provider := NewStaticProvider(map[string]Quote{
		"aapl": {Price: 190, DividendYield: 0.005, Volatility: 0.3, FundingSpread: 0.012},
	}, ptr(0.04))
	r := NewResolver(ResolverOptions{Provider: provider, Defaults: StandardDefaults()})

	params, err := r.Resolve(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, 190.0, params.InitialPrice)
	assert.Equal(t, 0.005, params.DividendYield)
	assert.Equal(t, 0.3, params.Volatility)
	assert.Equal(t, 0.012, params.FundingSpread)
	assert.Equal(t, 0.04, params.BenchmarkRate)
	assert.Equal(t, 10_000_000.0, params.Notional)
	assert.Equal(t, 1.0, params.Tenor)
	assert.Equal(t, 4, params.PaymentFrequency)
	assert.Equal(t, 1000, params.NumSimulations)
}

func TestResolver_OverridesWin(t *testing.T) {
	provider := NewStaticProvider(map[string]Quote{
		"MSFT": {Price: 400, Volatility: 0.2, FundingSpread: 0.01},
	}, ptr(0.04))
	r := NewResolver(ResolverOptions{Provider: provider, Defaults: StandardDefaults()})

	seed := uint64(42)
	params, err := r.Resolve(context.Background(), Request{
		Ticker:           "MSFT",
		Notional:         5e6,
		Tenor:            2,
		PaymentFrequency: 12,
		NumSimulations:   50,
		Seed:             &seed,
		Overrides: Overrides{
			InitialPrice:  ptr(410),
			Volatility:    ptr(0.35),
			BenchmarkRate: ptr(0.03),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 410.0, params.InitialPrice)
	assert.Equal(t, 0.35, params.Volatility)
	assert.Equal(t, 0.03, params.BenchmarkRate)
	assert.Equal(t, 0.01, params.FundingSpread)
	assert.Equal(t, 5e6, params.Notional)
	assert.Equal(t, 24, params.NumPeriods())
	require.NotNil(t, params.Seed)
	assert.Equal(t, uint64(42), *params.Seed)
}

func TestResolver_FallsBackToDefaults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)

	provider := NewStaticProvider(map[string]Quote{"XYZ": {Price: 12}}, nil)
	r := NewResolver(ResolverOptions{Provider: provider, Defaults: StandardDefaults(), Metrics: m})

	params, err := r.Resolve(context.Background(), Request{Ticker: "XYZ"})
	require.NoError(t, err)

	assert.Equal(t, 0.25, params.Volatility)
	assert.Equal(t, 0.015, params.FundingSpread)
	assert.Equal(t, 0.05, params.BenchmarkRate)
	assert.Equal(t, 0.0, params.DividendYield)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarketDataFallback.WithLabelValues("volatility")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarketDataFallback.WithLabelValues("funding_spread")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarketDataFallback.WithLabelValues("benchmark_rate")))
}

func TestResolver_PriceFailureIsFatal(t *testing.T) {
	r := NewResolver(ResolverOptions{
		Provider: NewStaticProvider(nil, nil),
		Defaults: StandardDefaults(),
	})

	_, err := r.Resolve(context.Background(), Request{Ticker: "NOPE"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTicker))
}

func TestResolver_NoProviderNeedsPriceOverride(t *testing.T) {
	r := NewResolver(ResolverOptions{Defaults: StandardDefaults()})

	_, err := r.Resolve(context.Background(), Request{Ticker: "AAPL"})
	assert.ErrorIs(t, err, ErrNoProvider)

	params, err := r.Resolve(context.Background(), Request{
		Ticker:    "AAPL",
		Overrides: Overrides{InitialPrice: ptr(100)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.25, params.Volatility)
}

func TestResolver_ValidatesResult(t *testing.T) {
	r := NewResolver(ResolverOptions{Defaults: StandardDefaults()})

	_, err := r.Resolve(context.Background(), Request{
		Ticker:    "AAPL",
		Tenor:     0.3,
		Overrides: Overrides{InitialPrice: ptr(100)},
	})
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "tenor", cfgErr.Field)
}
