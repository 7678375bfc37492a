package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the exposure profile as CSV string.
func RenderCSV(profile []ProfileRow) string {
	var sb strings.Builder

	sb.WriteString("period,time_years,epe,mean_net_cash_flow\n")
	for _, row := range profile {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f,%.6f\n",
			row.Period,
			row.TimeYears,
			row.EPE,
			row.MeanNetCashFlow,
		))
	}

	return sb.String()
}

// RenderRunsCSV renders one summary line per report.
func RenderRunsCSV(reports []*Report) string {
	var sb strings.Builder

	sb.WriteString("run_id,ticker,notional,tenor,payment_frequency,num_simulations,seed,")
	sb.WriteString("npv_mean,npv_std,npv_p5,npv_p50,npv_p95,peak_epe,peak_epe_period,partial,status\n")

	for _, r := range reports {
		status := ""
		if r.Decision != nil {
			status = string(r.Decision.Overall)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f,%g,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%t,%s\n",
			r.RunID,
			r.Params.Ticker,
			r.Params.Notional,
			r.Params.Tenor,
			r.Params.PaymentFrequency,
			r.Params.NumSimulations,
			r.Seed(),
			r.Summary.NPVMean,
			r.Summary.NPVStd,
			r.Summary.NPVPercentiles.P5,
			r.Summary.NPVPercentiles.P50,
			r.Summary.NPVPercentiles.P95,
			r.PeakEPE,
			r.PeakEPEPeriod,
			r.Partial,
			status,
		))
	}

	return sb.String()
}
