package reporting

import (
	"fmt"
	"strings"

	"trs-pricer/internal/decision"
)

const rule = "----------------------------------------"

// RenderText renders the console summary of a run.
func RenderText(r *Report) string {
	var sb strings.Builder
	p := r.Params
	s := r.Summary

	sb.WriteString("=== TRS Pricing Simulation Results ===\n")
	sb.WriteString(fmt.Sprintf("Reference Asset: %s\n", p.Ticker))
	sb.WriteString(fmt.Sprintf("Notional: %s\n", formatMoney(p.Notional)))
	sb.WriteString(fmt.Sprintf("Tenor: %g years\n", p.Tenor))
	sb.WriteString(rule + "\n")

	sb.WriteString("Market Data:\n")
	sb.WriteString(fmt.Sprintf("  Initial Price: $%s\n", formatFixed(p.InitialPrice, 2)))
	sb.WriteString(fmt.Sprintf("  Dividend Yield: %s\n", formatPct(p.DividendYield, 2)))
	sb.WriteString(fmt.Sprintf("  Volatility: %s\n", formatPct(p.Volatility, 1)))
	sb.WriteString(fmt.Sprintf("  Benchmark Rate: %s\n", formatPct(p.BenchmarkRate, 2)))
	sb.WriteString(fmt.Sprintf("  Funding Spread: %s\n", formatPct(p.FundingSpread, 2)))
	sb.WriteString(fmt.Sprintf("  Effective Funding Rate: %s\n", formatPct(p.EffectiveFundingRate(), 2)))
	sb.WriteString(rule + "\n")

	sb.WriteString("Valuation (Desk's Perspective):\n")
	sb.WriteString(fmt.Sprintf("  Expected NPV: %s\n", formatSignedMoney(s.NPVMean)))
	sb.WriteString(fmt.Sprintf("  Std Dev of NPV: %s\n", formatMoney(s.NPVStd)))
	sb.WriteString(fmt.Sprintf("  5th Percentile NPV: %s\n", formatMoney(s.NPVPercentiles.P5)))
	sb.WriteString(fmt.Sprintf("  25th Percentile NPV: %s\n", formatMoney(s.NPVPercentiles.P25)))
	sb.WriteString(fmt.Sprintf("  50th Percentile NPV: %s\n", formatMoney(s.NPVPercentiles.P50)))
	sb.WriteString(fmt.Sprintf("  75th Percentile NPV: %s\n", formatMoney(s.NPVPercentiles.P75)))
	sb.WriteString(fmt.Sprintf("  95th Percentile NPV: %s\n", formatMoney(s.NPVPercentiles.P95)))
	sb.WriteString(rule + "\n")

	sb.WriteString("Total Cash Flows (Undiscounted, Mean Across Simulations):\n")
	sb.WriteString(fmt.Sprintf("  Total Return Leg (Desk -> Client): %s\n", formatMoney(s.TotalReturnLegTotal)))
	sb.WriteString(fmt.Sprintf("  Funding Leg (Client -> Desk): %s\n", formatMoney(s.FundingLegTotal)))
	sb.WriteString(fmt.Sprintf("  Net Cash Flow (Undiscounted): %s\n", formatMoney(s.NetCashFlowTotal())))
	sb.WriteString(rule + "\n")

	sb.WriteString("Risk Metrics:\n")
	if r.PeakEPEPeriod > 0 {
		sb.WriteString(fmt.Sprintf("  Peak EPE (at %s years): %s\n", formatFixed(r.PeakEPEYears(), 2), formatMoney(r.PeakEPE)))
	} else {
		sb.WriteString(fmt.Sprintf("  Peak EPE: %s\n", formatMoney(r.PeakEPE)))
	}
	sb.WriteString(fmt.Sprintf("  Delta Exposure: %s\n", formatMoney(r.DeltaExposure)))
	sb.WriteString(fmt.Sprintf("  Funding Leg PV: %s\n", formatMoney(r.FundingLegPV)))
	sb.WriteString(rule + "\n")

	sb.WriteString("Simulation Details:\n")
	sb.WriteString(fmt.Sprintf("  Number of Simulations: %d\n", p.NumSimulations))
	sb.WriteString(fmt.Sprintf("  Paths Aggregated: %d (excluded %d)\n", s.PathCount, r.PathsExcluded))
	sb.WriteString(fmt.Sprintf("  Payment Frequency: %d per year\n", p.PaymentFrequency))
	sb.WriteString(fmt.Sprintf("  Seed: %d\n", r.Seed()))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("  Run ID: %s (%s)\n", r.ShortID, r.RunID))
	}
	if r.Partial {
		sb.WriteString(fmt.Sprintf("  PARTIAL: %d of %d paths completed\n", r.PathsSimulated, p.NumSimulations))
	}
	for _, w := range r.Warnings {
		sb.WriteString(fmt.Sprintf("  Warning: %s\n", w))
	}

	if r.Decision != nil {
		sb.WriteString("\n")
		sb.WriteString(renderDecisionText(r.Decision, p.FundingSpread, p.Notional))
	}

	return sb.String()
}

var decisionRule = strings.Repeat("=", 60)

func renderDecisionText(d *decision.Result, spread, notional float64) string {
	var sb strings.Builder

	sb.WriteString(decisionRule + "\n")
	sb.WriteString("TRS DECISION DASHBOARD - TRADE EVALUATION REPORT\n")
	sb.WriteString(decisionRule + "\n")
	sb.WriteString(fmt.Sprintf("Status: %s\n\n", d.Overall.Label()))

	sb.WriteString("KEY METRICS (as % of Notional)\n")
	for _, c := range d.Criteria {
		cmp := "<="
		if c.HigherIsBetter {
			cmp = ">="
		}
		sb.WriteString(fmt.Sprintf("  %-4s %8s  %-15s Green %s%s | Yellow %s%s\n",
			strings.ToUpper(c.Name), formatPct(c.Value, 2), c.Status.Label(),
			cmp, formatPct(c.Green, 2), cmp, formatPct(c.Yellow, 2)))
	}
	sb.WriteString(fmt.Sprintf("  Scale factors: VaR %s, EPE %s\n\n", formatFixed(d.Scale.VaR, 3), formatFixed(d.Scale.EPE, 3)))

	sb.WriteString("ISSUES IDENTIFIED\n")
	if len(d.Issues) == 0 {
		sb.WriteString("  None - All metrics within acceptable thresholds\n")
	}
	for _, issue := range d.Issues {
		sb.WriteString(fmt.Sprintf("  * %s\n", issue.Description()))
	}

	if d.Adjustments.Empty() {
		return sb.String()
	}

	sb.WriteString("\nADJUSTMENT RECOMMENDATIONS\n")
	if a := d.Adjustments.Spread; a != nil {
		sb.WriteString(fmt.Sprintf("  Spread: %s -> %s (+%s bps)\n", formatPct(spread, 2), formatPct(a.NewSpread, 2), formatFixed(a.DeltaBps, 1)))
	}
	if a := d.Adjustments.Notional; a != nil {
		sb.WriteString(fmt.Sprintf("  Notional: %s -> %s (-%s%%)\n", formatMoney(notional), formatMoney(a.NewNotional), formatFixed(a.ReductionPct, 2)))
	}
	if a := d.Adjustments.Collateral; a != nil {
		sb.WriteString(fmt.Sprintf("  Collateral: %s of notional (%s)\n", formatFixed(a.CollateralPct, 2)+"%", formatMoney(a.CollateralAmount)))
	}
	return sb.String()
}
