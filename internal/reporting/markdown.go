package reporting

import (
	"fmt"
	"strings"
	"time"

	"trs-pricer/internal/decision"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	p := r.Params
	s := r.Summary

	sb.WriteString(fmt.Sprintf("# TRS Valuation: %s\n\n", p.Ticker))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s` (`%s`), seed %d\n\n", r.ShortID, r.RunID, r.Seed()))
	}
	if r.Partial {
		sb.WriteString(fmt.Sprintf("**Partial run:** %d of %d paths completed.\n\n", r.PathsSimulated, p.NumSimulations))
	}

	sb.WriteString("## Trade\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Notional | %s |\n", formatMoney(p.Notional)))
	sb.WriteString(fmt.Sprintf("| Initial Price | $%s |\n", formatFixed(p.InitialPrice, 2)))
	sb.WriteString(fmt.Sprintf("| Tenor | %g years |\n", p.Tenor))
	sb.WriteString(fmt.Sprintf("| Payment Frequency | %d per year |\n", p.PaymentFrequency))
	sb.WriteString(fmt.Sprintf("| Dividend Yield | %s |\n", formatPct(p.DividendYield, 2)))
	sb.WriteString(fmt.Sprintf("| Volatility | %s |\n", formatPct(p.Volatility, 1)))
	sb.WriteString(fmt.Sprintf("| Benchmark Rate | %s |\n", formatPct(p.BenchmarkRate, 2)))
	sb.WriteString(fmt.Sprintf("| Funding Spread | %s |\n", formatPct(p.FundingSpread, 2)))
	sb.WriteString(fmt.Sprintf("| Simulations | %d |\n", p.NumSimulations))
	sb.WriteString("\n")

	sb.WriteString("## Valuation\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| NPV Mean | %s |\n", formatSignedMoney(s.NPVMean)))
	sb.WriteString(fmt.Sprintf("| NPV Std Dev | %s |\n", formatMoney(s.NPVStd)))
	sb.WriteString(fmt.Sprintf("| NPV P5 | %s |\n", formatMoney(s.NPVPercentiles.P5)))
	sb.WriteString(fmt.Sprintf("| NPV P25 | %s |\n", formatMoney(s.NPVPercentiles.P25)))
	sb.WriteString(fmt.Sprintf("| NPV P50 | %s |\n", formatMoney(s.NPVPercentiles.P50)))
	sb.WriteString(fmt.Sprintf("| NPV P75 | %s |\n", formatMoney(s.NPVPercentiles.P75)))
	sb.WriteString(fmt.Sprintf("| NPV P95 | %s |\n", formatMoney(s.NPVPercentiles.P95)))
	sb.WriteString(fmt.Sprintf("| Total Return Leg | %s |\n", formatMoney(s.TotalReturnLegTotal)))
	sb.WriteString(fmt.Sprintf("| Funding Leg | %s |\n", formatMoney(s.FundingLegTotal)))
	sb.WriteString(fmt.Sprintf("| Net Cash Flow | %s |\n", formatMoney(s.NetCashFlowTotal())))
	sb.WriteString(fmt.Sprintf("| Peak EPE | %s at %s years |\n", formatMoney(r.PeakEPE), formatFixed(r.PeakEPEYears(), 2)))
	sb.WriteString(fmt.Sprintf("| Delta Exposure | %s |\n", formatMoney(r.DeltaExposure)))
	sb.WriteString(fmt.Sprintf("| Funding Leg PV | %s |\n", formatMoney(r.FundingLegPV)))
	sb.WriteString(fmt.Sprintf("| Paths (aggregated / excluded) | %d / %d |\n", s.PathCount, r.PathsExcluded))
	sb.WriteString("\n")

	if len(r.Profile) > 0 {
		sb.WriteString("## Exposure Profile\n\n")
		sb.WriteString("| Period | Time (years) | EPE | Mean Net Cash Flow |\n")
		sb.WriteString("|--------|--------------|-----|--------------------|\n")
		for _, row := range r.Profile {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				row.Period, formatFixed(row.TimeYears, 2), formatMoney(row.EPE), formatMoney(row.MeanNetCashFlow)))
		}
		sb.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	if r.Decision != nil {
		md := decision.RenderMarkdown(r.Decision)
		// demote the decision report one heading level
		md = strings.ReplaceAll(md, "\n## ", "\n### ")
		md = strings.Replace(md, "# Trade Decision Report", "## Decision", 1)
		sb.WriteString(md)
	}

	return sb.String()
}
