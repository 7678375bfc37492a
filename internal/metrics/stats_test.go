package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		q    float64
		want float64
	}{
		{0.0, 1},
		{0.05, 1.45}, // h = 0.45
		{0.25, 3.25}, // h = 2.25
		{0.50, 5.5},  // h = 4.5
		{0.75, 7.75}, // h = 6.75
		{0.95, 9.55}, // h = 8.55
		{1.0, 10},
	}

	for _, tt := range tests {
		got := Percentile(sorted, tt.q)
		assert.InDelta(t, tt.want, got, 1e-12, "q=%v", tt.q)
	}
}

func TestPercentile_EdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.95))
	assert.Equal(t, 2.0, Percentile([]float64{2, 4}, 0))
	assert.Equal(t, 3.0, Percentile([]float64{2, 4}, 0.5))
}

func TestNPVPercentiles_OrderedAndInputUntouched(t *testing.T) {
	values := []float64{5, -3, 12, 0, 7, -8, 2, 9, 1, -1, 4}
	original := make([]float64, len(values))
	copy(original, values)

	p := NPVPercentiles(values)

	assert.Equal(t, original, values, "input must not be sorted in place")
	assert.LessOrEqual(t, p.P5, p.P25)
	assert.LessOrEqual(t, p.P25, p.P50)
	assert.LessOrEqual(t, p.P50, p.P75)
	assert.LessOrEqual(t, p.P75, p.P95)
	assert.Equal(t, 2.0, p.P50)
}

func TestMeanAndPopStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(values), 1e-12)
	// population variance = 4
	assert.InDelta(t, 2.0, PopStdDev(values), 1e-12)

	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, PopStdDev([]float64{3}))
}

func TestArgMax(t *testing.T) {
	idx, v := ArgMax([]float64{1, 5, 3, 5})
	assert.Equal(t, 1, idx)
	assert.Equal(t, 5.0, v)

	idx, v = ArgMax(nil)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0.0, v)

	idx, _ = ArgMax([]float64{math.Inf(-1), -2})
	assert.Equal(t, 1, idx)
}
