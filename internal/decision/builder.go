package decision

import "trs-pricer/internal/domain"

// NewInput builds an Input from the resolved parameters and run outputs.
func NewInput(params domain.TradeParameters, summary domain.SummaryStatistics, peakEPE float64) Input {
	return Input{
		Ticker:           params.Ticker,
		Notional:         params.Notional,
		Tenor:            params.Tenor,
		PaymentFrequency: params.PaymentFrequency,
		Volatility:       params.Volatility,
		FundingSpread:    params.FundingSpread,
		NPVMean:          summary.NPVMean,
		NPVP5:            summary.NPVPercentiles.P5,
		PeakEPE:          peakEPE,
	}
}

// InputFromRecord rebuilds the Input of a persisted run.
func InputFromRecord(rec *domain.RunRecord) Input {
	return NewInput(rec.Params, rec.Summary, rec.PeakEPE)
}
