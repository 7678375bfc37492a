package domain

import "time"

// RunRecord is the persisted outcome of one valuation run.
// Corresponds to the trs_runs table.
type RunRecord struct {
	RunID       string // SHA256 of parameters, seed and execution id
	InputHash   string // SHA256 of parameters and seed; equal hashes must reproduce
	ExecutionID string // unique per execution
	CreatedAt   time.Time

	Params  TradeParameters // Seed always set
	Summary SummaryStatistics

	PeakEPE        float64
	PeakEPEPeriod  int
	DeltaExposure  float64
	FundingLegPV   float64
	PathsSimulated int
	PathsExcluded  int
	Partial        bool
}

// ProfilePoint is one persisted per-period row of a run.
// Corresponds to the trs_profiles table.
type ProfilePoint struct {
	RunID                    string
	Period                   int
	TimeOffsetYears          float64
	ExpectedPositiveExposure float64
	MeanNetCashFlow          float64
}
