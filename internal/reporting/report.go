package reporting

import (
	"time"

	"trs-pricer/internal/decision"
	"trs-pricer/internal/domain"
	"trs-pricer/internal/idhash"
)

// Report is the rendered view of one valuation run.
type Report struct {
	GeneratedAt time.Time

	RunID       string
	ShortID     string
	InputHash   string
	ExecutionID string
	CreatedAt   time.Time

	Params  domain.TradeParameters
	Summary domain.SummaryStatistics

	PeakEPE        float64
	PeakEPEPeriod  int
	DeltaExposure  float64
	FundingLegPV   float64
	PathsSimulated int
	PathsExcluded  int
	Partial        bool
	Warnings       []string

	// Profile is ordered by period.
	Profile []ProfileRow

	// Decision is nil when no evaluator was configured.
	Decision *decision.Result
}

// ProfileRow is one period of the exposure profile.
type ProfileRow struct {
	Period          int
	TimeYears       float64
	EPE             float64
	MeanNetCashFlow float64
}

// Seed returns the run's seed, 0 if unset.
func (r *Report) Seed() uint64 {
	if r.Params.Seed == nil {
		return 0
	}
	return *r.Params.Seed
}

// PeakEPEYears is the time of peak EPE in years, 0 if the profile is empty.
func (r *Report) PeakEPEYears() float64 {
	if r.PeakEPEPeriod <= 0 || r.Params.PaymentFrequency <= 0 {
		return 0
	}
	return float64(r.PeakEPEPeriod) / float64(r.Params.PaymentFrequency)
}

// NewReport assembles a report from a run record and its profile points.
func NewReport(rec *domain.RunRecord, points []*domain.ProfilePoint, dec *decision.Result, warnings []string) *Report {
	profile := make([]ProfileRow, len(points))
	for i, p := range points {
		profile[i] = ProfileRow{
			Period:          p.Period,
			TimeYears:       p.TimeOffsetYears,
			EPE:             p.ExpectedPositiveExposure,
			MeanNetCashFlow: p.MeanNetCashFlow,
		}
	}

	return &Report{
		GeneratedAt:    time.Now().UTC(),
		RunID:          rec.RunID,
		ShortID:        idhash.ShortID(rec.RunID),
		InputHash:      rec.InputHash,
		ExecutionID:    rec.ExecutionID,
		CreatedAt:      rec.CreatedAt,
		Params:         rec.Params,
		Summary:        rec.Summary,
		PeakEPE:        rec.PeakEPE,
		PeakEPEPeriod:  rec.PeakEPEPeriod,
		DeltaExposure:  rec.DeltaExposure,
		FundingLegPV:   rec.FundingLegPV,
		PathsSimulated: rec.PathsSimulated,
		PathsExcluded:  rec.PathsExcluded,
		Partial:        rec.Partial,
		Warnings:       warnings,
		Profile:        profile,
		Decision:       dec,
	}
}
