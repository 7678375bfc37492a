package domain

// EPEPoint is one entry of the expected positive exposure profile.
type EPEPoint struct {
	Period                   int     // 1..N
	TimeOffsetYears          float64 // Period / PaymentFrequency
	ExpectedPositiveExposure float64 // always >= 0
}

// Percentiles of the NPV distribution, linear interpolation between order statistics.
type Percentiles struct {
	P5  float64
	P25 float64
	P50 float64
	P75 float64
	P95 float64
}

// SummaryStatistics aggregates the NPV distribution and cash flow ensemble.
type SummaryStatistics struct {
	PathCount int // paths included after exclusions

	NPVMean        float64
	NPVStd         float64 // population standard deviation
	NPVPercentiles Percentiles

	// Ensemble mean of net cash flow per period, index 0 = period 1.
	MeanNetCashFlowByPeriod []float64

	// Undiscounted per-path leg totals, averaged across paths.
	TotalReturnLegTotal float64
	FundingLegTotal     float64
}

// NetCashFlowTotal is the undiscounted net to the desk.
func (s SummaryStatistics) NetCashFlowTotal() float64 {
	return s.FundingLegTotal - s.TotalReturnLegTotal
}
