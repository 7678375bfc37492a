package domain

// PricePath is one simulated price trajectory.
// Prices[0] is the inception price shared by every path; Prices[1..N] are simulated.
type PricePath struct {
	Index  int // path number within the ensemble
	prices []float64
}

// NewPricePath wraps prices without copying. Callers hand over ownership.
func NewPricePath(index int, prices []float64) PricePath {
	return PricePath{Index: index, prices: prices}
}

// Len returns N+1.
func (p PricePath) Len() int {
	return len(p.prices)
}

// At returns the price at period t (0..N).
func (p PricePath) At(t int) float64 {
	return p.prices[t]
}

// Prices returns a copy of the path.
func (p PricePath) Prices() []float64 {
	out := make([]float64, len(p.prices))
	copy(out, p.prices)
	return out
}

// Ensemble is the set of paths produced by one simulation run.
type Ensemble struct {
	Paths   []PricePath // ordered by Index
	Periods int         // N
	Partial bool        // true if the run was cancelled before every path completed
}
