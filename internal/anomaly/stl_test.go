package anomaly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSTLParamsFromConfig(t *testing.T) {
	p := STLParamsFromConfig(DefaultConfig())
	assert.Equal(t, 24, p.Period)
	assert.Equal(t, 7, p.Seasonal)
	assert.Equal(t, 47, p.Trend)
	assert.Equal(t, 25, p.LowPass)
	assert.Equal(t, 2, p.Inner)
	assert.Equal(t, 15, p.Outer)
}

func TestConfigSmootherLengths(t *testing.T) {
	tests := []struct {
		period  int
		lowPass int
	}{
		{24, 25},
		{25, 27},
		{7, 9},
		{12, 13},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Period = tt.period
		assert.Equal(t, tt.lowPass, cfg.LowPassSmoother(), "period %d", tt.period)
		assert.Equal(t, 1, cfg.TrendSmoother()%2, "period %d", tt.period)
	}
}

func TestSTLReconstructsInput(t *testing.T) {
	tests := []struct {
		name  string
		hours int
	}{
		{"two periods", 48},
		{"three periods", 72},
		{"partial last period", 100},
		{"two weeks", 336},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets := hourlySeries(tt.hours, 10, 3)
			buckets[tt.hours/2].Amount *= 40
			y := make([]float64, len(buckets))
			for i, b := range buckets {
				y[i] = b.Amount
			}

			dec := STL(y, STLParamsFromConfig(DefaultConfig()))
			require.Len(t, dec.Trend, len(y))
			require.Len(t, dec.Seasonal, len(y))
			require.Len(t, dec.Resid, len(y))
			for i := range y {
				sum := dec.Trend[i] + dec.Seasonal[i] + dec.Resid[i]
				assert.InDelta(t, y[i], sum, 1e-9*math.Max(1, math.Abs(y[i])), "hour %d", i)
			}
		})
	}
}

func TestSTLPeriodicSignal(t *testing.T) {
	n := 96
	y := make([]float64, n)
	for i := range y {
		y[i] = 100 + 25*math.Sin(2*math.Pi*float64(i)/24)
	}

	p := STLParamsFromConfig(DefaultConfig())
	p.Outer = 0
	dec := STL(y, p)

	for i := range y {
		assert.InDelta(t, 0, dec.Resid[i], 1e-6, "hour %d", i)
		assert.InDelta(t, 100, dec.Trend[i], 1e-6, "hour %d", i)
	}
	for i := 24; i < n; i++ {
		assert.InDelta(t, dec.Seasonal[i-24], dec.Seasonal[i], 1e-6)
	}
}

func TestSTLRobustWeightsDownweightSpike(t *testing.T) {
	buckets := hourlySeries(72, 10, 11)
	y := make([]float64, len(buckets))
	for i, b := range buckets {
		y[i] = b.Amount
	}
	y[40] *= 100

	dec := STL(y, STLParamsFromConfig(DefaultConfig()))
	assert.Equal(t, 0.0, dec.Weights[40])
	assert.Greater(t, dec.Resid[40], 0.9*y[40]-2000)
}

func TestOddAtLeast3(t *testing.T) {
	assert.Equal(t, 3, oddAtLeast3(0))
	assert.Equal(t, 3, oddAtLeast3(2))
	assert.Equal(t, 5, oddAtLeast3(4))
	assert.Equal(t, 7, oddAtLeast3(7))
}
