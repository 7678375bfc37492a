package domain

// CashFlowRecord is the settlement of one period on one path.
// Sign convention: TotalReturnCashFlow is paid desk -> client, FundingCashFlow
// is paid client -> desk, NetCashFlow is to the desk.
type CashFlowRecord struct {
	Period              int // 1..N
	PeriodStartPrice    float64
	PeriodEndPrice      float64
	TotalReturnCashFlow float64
	FundingCashFlow     float64
	NetCashFlow         float64
}

// PathCashFlows holds the N ordered records derived from one price path.
type PathCashFlows struct {
	PathIndex int
	Records   []CashFlowRecord
}

// NetSeries returns the net cash flow per period in period order.
func (c PathCashFlows) NetSeries() []float64 {
	out := make([]float64, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.NetCashFlow
	}
	return out
}

// FundingSeries returns the funding leg per period in period order.
func (c PathCashFlows) FundingSeries() []float64 {
	out := make([]float64, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.FundingCashFlow
	}
	return out
}
