package marketdata

import (
	"context"
	"fmt"
	"strings"
)

// Quote is a fixed set of inputs for one ticker. Zero Volatility or
// FundingSpread means "not provided".
type Quote struct {
	Price         float64 `mapstructure:"price" yaml:"price"`
	DividendYield float64 `mapstructure:"dividend_yield" yaml:"dividend_yield"`
	Volatility    float64 `mapstructure:"volatility" yaml:"volatility"`
	FundingSpread float64 `mapstructure:"funding_spread" yaml:"funding_spread"`
}

// StaticProvider serves quotes from memory. Tickers are case-insensitive.
type StaticProvider struct {
	quotes    map[string]Quote
	benchmark *float64
}

// NewStaticProvider creates a provider over quotes. A nil benchmarkRate
// makes BenchmarkRate report ErrUnavailable.
func NewStaticProvider(quotes map[string]Quote, benchmarkRate *float64) *StaticProvider {
	m := make(map[string]Quote, len(quotes))
	for k, q := range quotes {
		m[strings.ToUpper(k)] = q
	}
	return &StaticProvider{quotes: m, benchmark: benchmarkRate}
}

func (p *StaticProvider) quote(ticker string) (Quote, error) {
	q, ok := p.quotes[strings.ToUpper(ticker)]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	return q, nil
}

func (p *StaticProvider) CurrentPrice(_ context.Context, ticker string) (float64, error) {
	q, err := p.quote(ticker)
	if err != nil {
		return 0, err
	}
	if q.Price <= 0 {
		return 0, fmt.Errorf("%w: price for %s", ErrUnavailable, ticker)
	}
	return q.Price, nil
}

func (p *StaticProvider) DividendYield(_ context.Context, ticker string) (float64, error) {
	q, err := p.quote(ticker)
	if err != nil {
		return 0, err
	}
	return q.DividendYield, nil
}

func (p *StaticProvider) Volatility(_ context.Context, ticker string) (float64, error) {
	q, err := p.quote(ticker)
	if err != nil {
		return 0, err
	}
	if q.Volatility <= 0 {
		return 0, fmt.Errorf("%w: volatility for %s", ErrUnavailable, ticker)
	}
	return q.Volatility, nil
}

func (p *StaticProvider) FundingSpread(_ context.Context, ticker string) (float64, error) {
	q, err := p.quote(ticker)
	if err != nil {
		return 0, err
	}
	if q.FundingSpread <= 0 {
		return 0, fmt.Errorf("%w: funding spread for %s", ErrUnavailable, ticker)
	}
	return q.FundingSpread, nil
}

func (p *StaticProvider) BenchmarkRate(context.Context) (float64, error) {
	if p.benchmark == nil {
		return 0, fmt.Errorf("%w: benchmark rate", ErrUnavailable)
	}
	return *p.benchmark, nil
}
