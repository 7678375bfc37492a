package decision

import (
	"math"
	"strings"
	"testing"
)

func baseInput() Input {
	return Input{
		Ticker:           "AAPL",
		Notional:         10_000_000,
		Tenor:            1,
		PaymentFrequency: 4,
		Volatility:       0.25,
		FundingSpread:    0.015,
		NPVMean:          150_000,    // 1.5%
		NPVP5:            -2_000_000, // 20%
		PeakEPE:          500_000,    // 5%
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_Green(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())

	result, err := evaluator.Evaluate(baseInput())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Overall != StatusGreen {
		t.Errorf("Expected green, got %s", result.Overall)
	}
	for _, c := range result.Criteria {
		if c.Status != StatusGreen {
			t.Errorf("criterion %s should be green, got %s", c.Name, c.Status)
		}
	}
	if len(result.Issues) != 0 {
		t.Errorf("Expected no issues, got %v", result.Issues)
	}
	if !result.Adjustments.Empty() {
		t.Errorf("Expected no adjustments, got %+v", result.Adjustments)
	}
	if !approx(result.Scale.VaR, 1) || !approx(result.Scale.EPE, 1) {
		t.Errorf("baseline trade should have unit scale, got %+v", result.Scale)
	}
}

func TestEvaluate_NPVYellowSuggestsSpread(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())
	in := baseInput()
	in.NPVMean = 60_000 // 0.6%

	result, err := evaluator.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Overall != StatusYellow {
		t.Errorf("Expected yellow, got %s", result.Overall)
	}
	if len(result.Issues) != 1 || result.Issues[0] != IssueNPVTooLow {
		t.Fatalf("Expected [npv_too_low], got %v", result.Issues)
	}

	adj := result.Adjustments.Spread
	if adj == nil {
		t.Fatal("Expected spread adjustment")
	}
	// (100,000 - 60,000) / (10,000,000 * 1) * 10,000 = 40 bps
	if !approx(adj.DeltaBps, 40) {
		t.Errorf("DeltaBps = %v, want 40", adj.DeltaBps)
	}
	if !approx(adj.NewSpread, 0.019) {
		t.Errorf("NewSpread = %v, want 0.019", adj.NewSpread)
	}
	if result.Adjustments.Notional != nil || result.Adjustments.Collateral != nil {
		t.Error("only the spread adjustment should be present")
	}
}

func TestEvaluate_NegativeNPVIsRed(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())
	in := baseInput()
	in.NPVMean = -10_000

	result, err := evaluator.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Criteria[0].Status != StatusRed {
		t.Errorf("Expected npv red, got %s", result.Criteria[0].Status)
	}
	if result.Overall != StatusRed {
		t.Errorf("Expected overall red, got %s", result.Overall)
	}
}

func TestEvaluate_VaRRedSuggestsNotionalReduction(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())
	in := baseInput()
	in.NPVP5 = -8_000_000 // 80% > 55%

	result, err := evaluator.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Criteria[1].Status != StatusRed {
		t.Errorf("Expected var red, got %s", result.Criteria[1].Status)
	}
	adj := result.Adjustments.Notional
	if adj == nil {
		t.Fatal("Expected notional reduction")
	}
	// (8m - 4m) / 8m = 50%
	if !approx(adj.ReductionPct, 50) {
		t.Errorf("ReductionPct = %v, want 50", adj.ReductionPct)
	}
	if !approx(adj.NewNotional, 5_000_000) {
		t.Errorf("NewNotional = %v, want 5,000,000", adj.NewNotional)
	}
}

func TestEvaluate_EPEYellowSuggestsCollateral(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())
	in := baseInput()
	in.PeakEPE = 1_500_000 // 15%

	result, err := evaluator.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Criteria[2].Status != StatusYellow {
		t.Errorf("Expected epe yellow, got %s", result.Criteria[2].Status)
	}
	adj := result.Adjustments.Collateral
	if adj == nil {
		t.Fatal("Expected collateral requirement")
	}
	if !approx(adj.CollateralPct, 5) {
		t.Errorf("CollateralPct = %v, want 5", adj.CollateralPct)
	}
	if !approx(adj.CollateralAmount, 500_000) {
		t.Errorf("CollateralAmount = %v, want 500,000", adj.CollateralAmount)
	}
}

func TestEvaluate_ScaledThresholds(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())
	in := baseInput()
	in.Volatility = 0.50
	in.Tenor = 2
	in.NPVP5 = -8_000_000 // 80%: red at baseline, green once scaled

	result, err := evaluator.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	wantVaR := 2 * math.Sqrt(2)
	wantEPE := 2 * math.Pow(2, 0.7)
	if !approx(result.Scale.VaR, wantVaR) {
		t.Errorf("VaR scale = %v, want %v", result.Scale.VaR, wantVaR)
	}
	if !approx(result.Scale.EPE, wantEPE) {
		t.Errorf("EPE scale = %v, want %v", result.Scale.EPE, wantEPE)
	}
	if !approx(result.Criteria[1].Green, 0.40*wantVaR) {
		t.Errorf("VaR green = %v, want %v", result.Criteria[1].Green, 0.40*wantVaR)
	}
	if result.Criteria[1].Status != StatusGreen {
		t.Errorf("Expected var green after scaling, got %s", result.Criteria[1].Status)
	}
}

func TestScaleFactorClamp(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())

	tests := []struct {
		name    string
		vol     float64
		tenor   float64
		varWant float64
		epeWant float64
	}{
		{"low vol short tenor", 0.05, 0.25, 0.5, 0.5},
		{"extreme vol long tenor", 1.5, 10, 4, 4},
		{"baseline", 0.25, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluator.VaRScaleFactor(tt.vol, tt.tenor); !approx(got, tt.varWant) {
				t.Errorf("VaRScaleFactor = %v, want %v", got, tt.varWant)
			}
			if got := evaluator.EPEScaleFactor(tt.vol, tt.tenor); !approx(got, tt.epeWant) {
				t.Errorf("EPEScaleFactor = %v, want %v", got, tt.epeWant)
			}
		})
	}
}

func TestEvaluate_AllRed(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())
	in := baseInput()
	in.NPVMean = -500_000
	in.NPVP5 = -9_000_000
	in.PeakEPE = 3_000_000

	result, err := evaluator.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	want := []Issue{IssueNPVTooLow, IssueVaRTooHigh, IssueEPETooHigh}
	if len(result.Issues) != len(want) {
		t.Fatalf("issues = %v, want %v", result.Issues, want)
	}
	for i := range want {
		if result.Issues[i] != want[i] {
			t.Errorf("issue[%d] = %s, want %s", i, result.Issues[i], want[i])
		}
	}
	if result.Adjustments.Spread == nil || result.Adjustments.Notional == nil || result.Adjustments.Collateral == nil {
		t.Errorf("expected all adjustments, got %+v", result.Adjustments)
	}
	if result.Adjustments.Spread.DeltaBps <= 0 {
		t.Errorf("spread must widen, got %v bps", result.Adjustments.Spread.DeltaBps)
	}
}

func TestEvaluate_InvalidInput(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())

	in := baseInput()
	in.Notional = 0
	if _, err := evaluator.Evaluate(in); err == nil {
		t.Error("expected error for zero notional")
	}

	in = baseInput()
	in.NPVMean = math.NaN()
	if _, err := evaluator.Evaluate(in); err == nil {
		t.Error("expected error for NaN npv")
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds invalid: %v", err)
	}

	th := DefaultThresholds()
	th.VaR = Band{Green: 0.6, Yellow: 0.5}
	if err := th.Validate(); err == nil {
		t.Error("expected error for inverted var band")
	}

	th = DefaultThresholds()
	th.NPV = Band{Green: 0.001, Yellow: 0.01}
	if err := th.Validate(); err == nil {
		t.Error("expected error for inverted npv band")
	}
}

func TestRenderMarkdown(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())
	in := baseInput()
	in.NPVMean = 60_000
	in.PeakEPE = 1_500_000

	result, err := evaluator.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	md := RenderMarkdown(result)

	for _, want := range []string{
		"# Trade Decision Report",
		"## Decision: REVIEW REQUIRED (yellow)",
		"| NPV / Notional | 0.60% | ≥1.00% | ≥0.50% | yellow |",
		"- NPV below acceptable threshold",
		"- EPE exceeds acceptable limit",
		"- Spread: +40.0 bps to 1.90%",
		"- Collateral: 5.00% of notional (500000)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}
