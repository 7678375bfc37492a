package domain

import (
	"math"
)

// PeriodTolerance bounds how far Tenor*PaymentFrequency may sit from an integer.
const PeriodTolerance = 1e-9

// TradeParameters are the fully resolved inputs of one TRS valuation run.
// Market inputs (price, yield, volatility, spread) are resolved upstream.
type TradeParameters struct {
	Ticker           string  // informational only
	Notional         float64 // principal, > 0
	InitialPrice     float64 // price at inception, > 0
	DividendYield    float64 // annual, >= 0
	BenchmarkRate    float64 // annual risk-free / drift rate
	FundingSpread    float64 // annual, >= 0
	Tenor            float64 // years, > 0
	PaymentFrequency int     // periods per year, > 0
	NumSimulations   int     // paths, > 0
	Volatility       float64 // annualized, >= 0
	Seed             *uint64 // nil draws a fresh seed per run
}

// EffectiveFundingRate is the benchmark rate plus the funding spread.
func (p TradeParameters) EffectiveFundingRate() float64 {
	return p.BenchmarkRate + p.FundingSpread
}

// NumPeriods returns round(Tenor * PaymentFrequency).
// Only meaningful after Validate succeeds.
func (p TradeParameters) NumPeriods() int {
	return int(math.Round(p.Tenor * float64(p.PaymentFrequency)))
}

// TimeStep is the fraction of a year covered by one period.
func (p TradeParameters) TimeStep() float64 {
	return 1.0 / float64(p.PaymentFrequency)
}

// PeriodRate is the benchmark rate per payment period, used for discounting.
func (p TradeParameters) PeriodRate() float64 {
	return p.BenchmarkRate / float64(p.PaymentFrequency)
}

// WithSeed returns a copy of p with Seed set.
func (p TradeParameters) WithSeed(seed uint64) TradeParameters {
	p.Seed = &seed
	return p
}

// Validate checks all parameter invariants. It returns a *ConfigurationError
// for the first violation found.
func (p TradeParameters) Validate() error {
	finite := []struct {
		name  string
		value float64
	}{
		{"notional", p.Notional},
		{"initial_price", p.InitialPrice},
		{"dividend_yield", p.DividendYield},
		{"benchmark_rate", p.BenchmarkRate},
		{"funding_spread", p.FundingSpread},
		{"tenor", p.Tenor},
		{"volatility", p.Volatility},
	}
	for _, f := range finite {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ConfigurationError{Field: f.name, Reason: "must be finite"}
		}
	}

	if p.Notional <= 0 {
		return &ConfigurationError{Field: "notional", Reason: "must be positive"}
	}
	if p.InitialPrice <= 0 {
		return &ConfigurationError{Field: "initial_price", Reason: "must be positive"}
	}
	if p.Tenor <= 0 {
		return &ConfigurationError{Field: "tenor", Reason: "must be positive"}
	}
	if p.PaymentFrequency <= 0 {
		return &ConfigurationError{Field: "payment_frequency", Reason: "must be a positive integer"}
	}
	if p.NumSimulations <= 0 {
		return &ConfigurationError{Field: "num_simulations", Reason: "must be a positive integer"}
	}
	if p.Volatility < 0 {
		return &ConfigurationError{Field: "volatility", Reason: "must be non-negative"}
	}
	if p.DividendYield < 0 {
		return &ConfigurationError{Field: "dividend_yield", Reason: "must be non-negative"}
	}
	if p.FundingSpread < 0 {
		return &ConfigurationError{Field: "funding_spread", Reason: "must be non-negative"}
	}

	periods := p.Tenor * float64(p.PaymentFrequency)
	if math.Abs(periods-math.Round(periods)) > PeriodTolerance || math.Round(periods) < 1 {
		return &ConfigurationError{Field: "tenor", Reason: "times payment_frequency must be a positive integer"}
	}
	return nil
}
