package decision

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for inputs that cannot be evaluated.
var ErrInvalidInput = errors.New("invalid decision input")

// Status is a traffic-light rating.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Level orders statuses by severity: green 1, yellow 2, red 3.
func (s Status) Level() int {
	switch s {
	case StatusGreen:
		return 1
	case StatusYellow:
		return 2
	case StatusRed:
		return 3
	default:
		return 0
	}
}

// Label is the human-readable verdict for s.
func (s Status) Label() string {
	switch s {
	case StatusGreen:
		return "APPROVED"
	case StatusYellow:
		return "REVIEW REQUIRED"
	case StatusRed:
		return "NOT APPROVED"
	default:
		return string(s)
	}
}

// Issue names a metric outside its green band.
type Issue string

const (
	IssueNPVTooLow  Issue = "npv_too_low"
	IssueVaRTooHigh Issue = "var_too_high"
	IssueEPETooHigh Issue = "epe_too_high"
)

// Description is the human-readable form of i.
func (i Issue) Description() string {
	switch i {
	case IssueNPVTooLow:
		return "NPV below acceptable threshold"
	case IssueVaRTooHigh:
		return "VaR exceeds acceptable limit"
	case IssueEPETooHigh:
		return "EPE exceeds acceptable limit"
	default:
		return string(i)
	}
}

// Band holds the green and yellow cut-offs of one metric, as fractions of notional.
type Band struct {
	Green  float64 `mapstructure:"green" yaml:"green"`
	Yellow float64 `mapstructure:"yellow" yaml:"yellow"`
}

// Thresholds configures the evaluator. VaR and EPE bands are base values
// scaled per trade by volatility and tenor relative to the baselines.
type Thresholds struct {
	NPV Band `mapstructure:"npv" yaml:"npv"` // higher is better
	VaR Band `mapstructure:"var" yaml:"var"` // lower is better
	EPE Band `mapstructure:"epe" yaml:"epe"` // lower is better

	BaselineVolatility float64 `mapstructure:"baseline_volatility" yaml:"baseline_volatility"`
	BaselineTenor      float64 `mapstructure:"baseline_tenor" yaml:"baseline_tenor"`
	MinScale           float64 `mapstructure:"min_scale" yaml:"min_scale"`
	MaxScale           float64 `mapstructure:"max_scale" yaml:"max_scale"`
}

// DefaultThresholds returns the standard desk limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NPV:                Band{Green: 0.01, Yellow: 0.005},
		VaR:                Band{Green: 0.40, Yellow: 0.55},
		EPE:                Band{Green: 0.10, Yellow: 0.20},
		BaselineVolatility: 0.25,
		BaselineTenor:      1.0,
		MinScale:           0.5,
		MaxScale:           4.0,
	}
}

// Validate checks band ordering and scale bounds.
func (t Thresholds) Validate() error {
	if t.NPV.Green < t.NPV.Yellow {
		return fmt.Errorf("npv green threshold %.4f below yellow %.4f", t.NPV.Green, t.NPV.Yellow)
	}
	if t.VaR.Green > t.VaR.Yellow {
		return fmt.Errorf("var green threshold %.4f above yellow %.4f", t.VaR.Green, t.VaR.Yellow)
	}
	if t.EPE.Green > t.EPE.Yellow {
		return fmt.Errorf("epe green threshold %.4f above yellow %.4f", t.EPE.Green, t.EPE.Yellow)
	}
	if t.MinScale <= 0 || t.MaxScale < t.MinScale {
		return fmt.Errorf("scale bounds [%.2f, %.2f] invalid", t.MinScale, t.MaxScale)
	}
	return nil
}

// Input contains the run figures a decision is made from.
type Input struct {
	Ticker           string
	Notional         float64
	Tenor            float64
	PaymentFrequency int
	Volatility       float64
	FundingSpread    float64

	NPVMean float64
	NPVP5   float64
	PeakEPE float64
}

// KeyMetrics are the three evaluated ratios, as fractions of notional.
type KeyMetrics struct {
	NPVPct float64 `yaml:"npv_pct"` // mean NPV / notional
	VaRPct float64 `yaml:"var_pct"` // |P5 NPV| / notional
	EPEPct float64 `yaml:"epe_pct"` // peak EPE / notional
}

// CriterionResult rates one metric against its (scaled) band.
type CriterionResult struct {
	Name           string  `yaml:"name"`
	Value          float64 `yaml:"value"`
	Green          float64 `yaml:"green"`
	Yellow         float64 `yaml:"yellow"`
	HigherIsBetter bool    `yaml:"higher_is_better"`
	Status         Status  `yaml:"status"`
}

// ScaleFactors record how VaR and EPE bands were widened or tightened.
type ScaleFactors struct {
	VaR float64 `yaml:"var"`
	EPE float64 `yaml:"epe"`
}

// SpreadAdjustment lifts the funding spread until mean NPV reaches the green band.
type SpreadAdjustment struct {
	DeltaBps  float64 `yaml:"delta_bps"`
	NewSpread float64 `yaml:"new_spread"`
}

// NotionalReduction shrinks the trade until VaR reaches the green band.
type NotionalReduction struct {
	ReductionPct float64 `yaml:"reduction_pct"` // 0..100
	NewNotional  float64 `yaml:"new_notional"`
}

// CollateralRequirement covers peak EPE above the green band.
type CollateralRequirement struct {
	CollateralPct    float64 `yaml:"collateral_pct"`
	CollateralAmount float64 `yaml:"collateral_amount"`
}

// Adjustments are present only for the matching issue.
type Adjustments struct {
	Spread     *SpreadAdjustment      `yaml:"spread_adjustment,omitempty"`
	Notional   *NotionalReduction     `yaml:"notional_reduction,omitempty"`
	Collateral *CollateralRequirement `yaml:"collateral_requirement,omitempty"`
}

// Empty reports whether no adjustment was produced.
func (a Adjustments) Empty() bool {
	return a.Spread == nil && a.Notional == nil && a.Collateral == nil
}

// Result contains the decision with its checklist.
type Result struct {
	Overall     Status            `yaml:"overall_status"`
	Metrics     KeyMetrics        `yaml:"metrics"`
	Criteria    []CriterionResult `yaml:"criteria"` // NPV, VaR, EPE
	Issues      []Issue           `yaml:"issues"`
	Adjustments Adjustments       `yaml:"adjustments"`
	Scale       ScaleFactors      `yaml:"scale_factors"`
	Input       Input             `yaml:"-"`
}
