// Package marketdata resolves the market inputs of a trade (spot price,
// dividend yield, volatility, funding spread, benchmark rate) from an
// injected Provider, falling back to configured defaults.
package marketdata

import (
	"context"
	"errors"
)

var (
	// ErrUnknownTicker is returned when a provider has no data for a ticker.
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrUnavailable is returned when a provider knows the ticker but cannot
	// supply the requested input.
	ErrUnavailable = errors.New("market input unavailable")
)

// Provider supplies market inputs. Implementations must be safe for
// concurrent use.
type Provider interface {
	CurrentPrice(ctx context.Context, ticker string) (float64, error)
	DividendYield(ctx context.Context, ticker string) (float64, error)
	Volatility(ctx context.Context, ticker string) (float64, error)
	FundingSpread(ctx context.Context, ticker string) (float64, error)
	BenchmarkRate(ctx context.Context) (float64, error)
}

// Overrides pin individual inputs, bypassing the provider.
type Overrides struct {
	InitialPrice  *float64
	DividendYield *float64
	Volatility    *float64
	FundingSpread *float64
	BenchmarkRate *float64
}

// Request describes a trade whose market inputs still need resolving.
// Zero-valued trade terms take the resolver's defaults.
type Request struct {
	Ticker           string
	Notional         float64
	Tenor            float64
	PaymentFrequency int
	NumSimulations   int
	Seed             *uint64
	Overrides        Overrides
}

// Defaults are used for zero-valued trade terms and for market inputs the
// provider cannot supply.
type Defaults struct {
	Notional         float64
	Tenor            float64
	PaymentFrequency int
	NumSimulations   int

	BenchmarkRate float64
	FundingSpread float64
	Volatility    float64
	DividendYield float64
}

// StandardDefaults returns the built-in fallback values.
func StandardDefaults() Defaults {
	return Defaults{
		Notional:         10_000_000,
		Tenor:            1,
		PaymentFrequency: 4,
		NumSimulations:   1000,
		BenchmarkRate:    0.05,
		FundingSpread:    0.015,
		Volatility:       0.25,
		DividendYield:    0,
	}
}
