package decision

import (
	"fmt"
	"math"
)

// Evaluator rates a trade against configured thresholds.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Thresholds returns the evaluator's base thresholds.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate produces a Result from Input.
// Overall status is the worst of the three metric statuses. Every
// non-green metric raises an issue and, where computable, an adjustment.
func (e *Evaluator) Evaluate(in Input) (*Result, error) {
	if !(in.Notional > 0) || math.IsInf(in.Notional, 0) {
		return nil, fmt.Errorf("%w: notional %v", ErrInvalidInput, in.Notional)
	}
	for name, v := range map[string]float64{"npv_mean": in.NPVMean, "npv_p5": in.NPVP5, "peak_epe": in.PeakEPE} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidInput, name)
		}
	}

	t := e.thresholds
	metrics := KeyMetrics{
		NPVPct: in.NPVMean / in.Notional,
		VaRPct: math.Abs(in.NPVP5) / in.Notional,
		EPEPct: in.PeakEPE / in.Notional,
	}
	scale := ScaleFactors{
		VaR: e.VaRScaleFactor(in.Volatility, in.Tenor),
		EPE: e.EPEScaleFactor(in.Volatility, in.Tenor),
	}

	criteria := []CriterionResult{
		rate("npv", metrics.NPVPct, t.NPV.Green, t.NPV.Yellow, true),
		rate("var", metrics.VaRPct, t.VaR.Green*scale.VaR, t.VaR.Yellow*scale.VaR, false),
		rate("epe", metrics.EPEPct, t.EPE.Green*scale.EPE, t.EPE.Yellow*scale.EPE, false),
	}

	overall := StatusGreen
	for _, c := range criteria {
		if c.Status.Level() > overall.Level() {
			overall = c.Status
		}
	}

	var issues []Issue
	if criteria[0].Status != StatusGreen {
		issues = append(issues, IssueNPVTooLow)
	}
	if criteria[1].Status != StatusGreen {
		issues = append(issues, IssueVaRTooHigh)
	}
	if criteria[2].Status != StatusGreen {
		issues = append(issues, IssueEPETooHigh)
	}

	return &Result{
		Overall:     overall,
		Metrics:     metrics,
		Criteria:    criteria,
		Issues:      issues,
		Adjustments: e.adjustments(in, metrics, criteria, issues),
		Scale:       scale,
		Input:       in,
	}, nil
}

// VaRScaleFactor is (σ/σ₀)·√(T/T₀), clamped to the configured bounds.
func (e *Evaluator) VaRScaleFactor(volatility, tenor float64) float64 {
	t := e.thresholds
	return clampScale(volRatio(volatility, t.BaselineVolatility)*tenorRatio(tenor, t.BaselineTenor, 0.5), t.MinScale, t.MaxScale)
}

// EPEScaleFactor is (σ/σ₀)·(T/T₀)^0.7, clamped to the configured bounds.
func (e *Evaluator) EPEScaleFactor(volatility, tenor float64) float64 {
	t := e.thresholds
	return clampScale(volRatio(volatility, t.BaselineVolatility)*tenorRatio(tenor, t.BaselineTenor, 0.7), t.MinScale, t.MaxScale)
}

func volRatio(vol, baseline float64) float64 {
	if baseline <= 0 {
		return 1
	}
	return vol / baseline
}

func tenorRatio(tenor, baseline, exponent float64) float64 {
	if baseline <= 0 {
		return 1
	}
	return math.Pow(tenor/baseline, exponent)
}

func clampScale(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func rate(name string, value, green, yellow float64, higherIsBetter bool) CriterionResult {
	status := StatusRed
	if higherIsBetter {
		switch {
		case value >= green:
			status = StatusGreen
		case value >= yellow:
			status = StatusYellow
		}
	} else {
		switch {
		case value <= green:
			status = StatusGreen
		case value <= yellow:
			status = StatusYellow
		}
	}
	return CriterionResult{
		Name:           name,
		Value:          value,
		Green:          green,
		Yellow:         yellow,
		HigherIsBetter: higherIsBetter,
		Status:         status,
	}
}

func (e *Evaluator) adjustments(in Input, m KeyMetrics, criteria []CriterionResult, issues []Issue) Adjustments {
	var adj Adjustments
	for _, issue := range issues {
		switch issue {
		case IssueNPVTooLow:
			if in.Tenor > 0 {
				target := e.thresholds.NPV.Green * in.Notional
				deltaBps := (target - in.NPVMean) / (in.Notional * in.Tenor) * 1e4
				adj.Spread = &SpreadAdjustment{
					DeltaBps:  deltaBps,
					NewSpread: math.Max(0, in.FundingSpread+deltaBps/1e4),
				}
			}

		case IssueVaRTooHigh:
			current := m.VaRPct * in.Notional
			if current > 0 {
				target := criteria[1].Green * in.Notional
				pct := clampScale((current-target)/current*100, 0, 100)
				adj.Notional = &NotionalReduction{
					ReductionPct: pct,
					NewNotional:  math.Max(0, in.Notional*(1-pct/100)),
				}
			}

		case IssueEPETooHigh:
			current := m.EPEPct * in.Notional
			target := criteria[2].Green * in.Notional
			pct := math.Max(0, (current-target)/in.Notional*100)
			adj.Collateral = &CollateralRequirement{
				CollateralPct:    pct,
				CollateralAmount: in.Notional * pct / 100,
			}
		}
	}
	return adj
}
