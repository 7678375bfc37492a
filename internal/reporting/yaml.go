package reporting

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"trs-pricer/internal/decision"
)

type yamlReport struct {
	GeneratedAt string           `yaml:"generated_at"`
	Run         yamlRun          `yaml:"run"`
	Trade       yamlTrade        `yaml:"trade"`
	Valuation   yamlValuation    `yaml:"valuation"`
	Profile     []yamlProfileRow `yaml:"profile"`
	Warnings    []string         `yaml:"warnings,omitempty"`
	Decision    *decision.Result `yaml:"decision,omitempty"`
}

type yamlRun struct {
	RunID          string `yaml:"run_id,omitempty"`
	ShortID        string `yaml:"short_id,omitempty"`
	InputHash      string `yaml:"input_hash,omitempty"`
	ExecutionID    string `yaml:"execution_id,omitempty"`
	Seed           uint64 `yaml:"seed"`
	PathsSimulated int    `yaml:"paths_simulated"`
	PathsExcluded  int    `yaml:"paths_excluded"`
	Partial        bool   `yaml:"partial"`
}

type yamlTrade struct {
	Ticker           string  `yaml:"ticker"`
	Notional         float64 `yaml:"notional"`
	InitialPrice     float64 `yaml:"initial_price"`
	DividendYield    float64 `yaml:"dividend_yield"`
	BenchmarkRate    float64 `yaml:"benchmark_rate"`
	FundingSpread    float64 `yaml:"funding_spread"`
	Tenor            float64 `yaml:"tenor"`
	PaymentFrequency int     `yaml:"payment_frequency"`
	NumSimulations   int     `yaml:"num_simulations"`
	Volatility       float64 `yaml:"volatility"`
}

type yamlValuation struct {
	NPVMean        float64            `yaml:"npv_mean"`
	NPVStd         float64            `yaml:"npv_std"`
	NPVPercentiles map[string]float64 `yaml:"npv_percentiles"`
	TotalReturnLeg float64            `yaml:"total_return_leg_total"`
	FundingLeg     float64            `yaml:"funding_leg_total"`
	PeakEPE        float64            `yaml:"peak_epe"`
	PeakEPEPeriod  int                `yaml:"peak_epe_period"`
	DeltaExposure  float64            `yaml:"delta_exposure"`
	FundingLegPV   float64            `yaml:"funding_leg_pv"`
}

type yamlProfileRow struct {
	Period          int     `yaml:"period"`
	TimeYears       float64 `yaml:"time_years"`
	EPE             float64 `yaml:"epe"`
	MeanNetCashFlow float64 `yaml:"mean_net_cash_flow"`
}

// RenderYAML renders report as a YAML document.
func RenderYAML(r *Report) ([]byte, error) {
	p := r.Params
	s := r.Summary

	doc := yamlReport{
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		Run: yamlRun{
			RunID:          r.RunID,
			ShortID:        r.ShortID,
			InputHash:      r.InputHash,
			ExecutionID:    r.ExecutionID,
			Seed:           r.Seed(),
			PathsSimulated: r.PathsSimulated,
			PathsExcluded:  r.PathsExcluded,
			Partial:        r.Partial,
		},
		Trade: yamlTrade{
			Ticker:           p.Ticker,
			Notional:         p.Notional,
			InitialPrice:     p.InitialPrice,
			DividendYield:    p.DividendYield,
			BenchmarkRate:    p.BenchmarkRate,
			FundingSpread:    p.FundingSpread,
			Tenor:            p.Tenor,
			PaymentFrequency: p.PaymentFrequency,
			NumSimulations:   p.NumSimulations,
			Volatility:       p.Volatility,
		},
		Valuation: yamlValuation{
			NPVMean: s.NPVMean,
			NPVStd:  s.NPVStd,
			NPVPercentiles: map[string]float64{
				"p5":  s.NPVPercentiles.P5,
				"p25": s.NPVPercentiles.P25,
				"p50": s.NPVPercentiles.P50,
				"p75": s.NPVPercentiles.P75,
				"p95": s.NPVPercentiles.P95,
			},
			TotalReturnLeg: s.TotalReturnLegTotal,
			FundingLeg:     s.FundingLegTotal,
			PeakEPE:        r.PeakEPE,
			PeakEPEPeriod:  r.PeakEPEPeriod,
			DeltaExposure:  r.DeltaExposure,
			FundingLegPV:   r.FundingLegPV,
		},
		Profile:  make([]yamlProfileRow, len(r.Profile)),
		Warnings: r.Warnings,
		Decision: r.Decision,
	}
	for i, row := range r.Profile {
		doc.Profile[i] = yamlProfileRow(row)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml report: %w", err)
	}
	return out, nil
}
