package marketdata

import (
	"errors"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

const (
	// BaseFundingSpread anchors the issuer spread model.
	BaseFundingSpread = 0.015

	minFundingSpread = 0.005
	maxFundingSpread = 0.05

	// TradingDaysPerYear annualizes daily volatility.
	TradingDaysPerYear = 252

	// DefaultVolatilityLookback is the number of closes used for historical volatility.
	DefaultVolatilityLookback = 252

	minReturns = 10
)

// ErrInsufficientHistory is returned when too few closes exist to estimate volatility.
var ErrInsufficientHistory = errors.New("insufficient price history")

// IssuerProfile holds the fundamentals the spread model reads. Nil pointers
// mean the figure is unknown.
type IssuerProfile struct {
	Beta         *float64 `json:"beta"`
	MarketCap    *float64 `json:"marketCap"`
	Sector       string   `json:"sector"`
	Industry     string   `json:"industry"`
	DebtToEquity *float64 `json:"debtToEquity"`
}

// EstimateFundingSpread derives an annual funding spread from an issuer's
// profile and volatility. The result lies in [0.005, 0.05].
func EstimateFundingSpread(profile IssuerProfile, volatility float64) float64 {
	risk := clamp(1+betaAdjustment(profile.Beta)+volatilityAdjustment(volatility), 0.5, 2.0)
	spread := BaseFundingSpread * risk *
		marketCapFactor(profile.MarketCap) *
		sectorFactor(profile.Sector, profile.Industry) *
		leverageFactor(profile.DebtToEquity)
	return clamp(spread, minFundingSpread, maxFundingSpread)
}

func betaAdjustment(beta *float64) float64 {
	if beta == nil || math.IsNaN(*beta) {
		return 0
	}
	return (clamp(*beta, 0.3, 3.0) - 1) * 0.3
}

func volatilityAdjustment(vol float64) float64 {
	if math.IsNaN(vol) || vol <= 0 {
		return 0
	}
	return clamp((vol-0.20)*1.5, -0.5, 1.0)
}

func marketCapFactor(capUSD *float64) float64 {
	if capUSD == nil {
		return 1.0
	}
	switch c := *capUSD; {
	case c > 200e9:
		return 0.8
	case c > 50e9:
		return 0.9
	case c > 10e9:
		return 1.0
	default:
		return 1.2
	}
}

func sectorFactor(sector, industry string) float64 {
	s := strings.ToUpper(sector)
	i := strings.ToUpper(industry)
	switch {
	case strings.Contains(s, "UTILITIES"), strings.Contains(s, "CONSUMER STAPLES"), strings.Contains(s, "CONSUMER DEFENSIVE"):
		return 0.85
	case strings.Contains(s, "ENERGY"), strings.Contains(s, "MATERIALS"), strings.Contains(s, "BASIC MATERIALS"):
		return 1.15
	case strings.Contains(s, "TECHNOLOGY"), strings.Contains(i, "BIOTECH"):
		return 1.10
	default:
		return 1.0
	}
}

func leverageFactor(debtToEquity *float64) float64 {
	if debtToEquity == nil {
		return 1.0
	}
	switch de := *debtToEquity; {
	case de < 0.5:
		return 0.95
	case de < 1.0:
		return 1.0
	case de < 2.0:
		return 1.10
	default:
		return 1.20
	}
}

// HistoricalVolatility annualizes the sample standard deviation of daily log
// returns over the last lookback closes. Non-positive closes are skipped.
func HistoricalVolatility(closes []float64, lookback int) (float64, error) {
	if lookback <= 0 {
		lookback = DefaultVolatilityLookback
	}
	if len(closes) > lookback {
		closes = closes[len(closes)-lookback:]
	}

	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < minReturns {
		return 0, ErrInsufficientHistory
	}
	return stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
