package decision

import (
	"fmt"
	"strings"
)

var criterionTitles = map[string]string{
	"npv": "NPV / Notional",
	"var": "VaR / Notional (95%)",
	"epe": "Peak EPE / Notional",
}

// RenderMarkdown renders Result as Markdown string.
func RenderMarkdown(result *Result) string {
	var sb strings.Builder

	sb.WriteString("# Trade Decision Report\n\n")
	if result.Input.Ticker != "" {
		sb.WriteString(fmt.Sprintf("Reference asset: **%s**\n\n", result.Input.Ticker))
	}
	sb.WriteString(fmt.Sprintf("## Decision: %s (%s)\n\n", result.Overall.Label(), result.Overall))

	sb.WriteString("## Key Metrics\n\n")
	sb.WriteString("| Metric | Actual | Green | Yellow | Status |\n")
	sb.WriteString("|--------|--------|-------|--------|--------|\n")
	for _, c := range result.Criteria {
		cmp := "≤"
		if c.HigherIsBetter {
			cmp = "≥"
		}
		sb.WriteString(fmt.Sprintf("| %s | %.2f%% | %s%.2f%% | %s%.2f%% | %s |\n",
			criterionTitles[c.Name], c.Value*100, cmp, c.Green*100, cmp, c.Yellow*100, c.Status))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Scale factors: VaR %.3f, EPE %.3f\n\n", result.Scale.VaR, result.Scale.EPE))

	sb.WriteString("## Issues\n\n")
	if len(result.Issues) == 0 {
		sb.WriteString("None - all metrics within acceptable thresholds.\n\n")
	} else {
		for _, issue := range result.Issues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue.Description()))
		}
		sb.WriteString("\n")
	}

	if result.Adjustments.Empty() {
		return sb.String()
	}

	sb.WriteString("## Recommended Adjustments\n\n")
	if a := result.Adjustments.Spread; a != nil {
		sb.WriteString(fmt.Sprintf("- Spread: +%.1f bps to %.2f%%\n", a.DeltaBps, a.NewSpread*100))
	}
	if a := result.Adjustments.Notional; a != nil {
		sb.WriteString(fmt.Sprintf("- Notional: reduce %.2f%% to %.0f\n", a.ReductionPct, a.NewNotional))
	}
	if a := result.Adjustments.Collateral; a != nil {
		sb.WriteString(fmt.Sprintf("- Collateral: %.2f%% of notional (%.0f)\n", a.CollateralPct, a.CollateralAmount))
	}

	return sb.String()
}
