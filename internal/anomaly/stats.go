package anomaly

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ZScores returns population z-scores (ddof 0). Non-finite inputs count as
// zero. A series with zero variance, or fewer than two values, scores 0
// everywhere.
func ZScores(xs []float64) []float64 {
	clean := make([]float64, len(xs))
	for i, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			clean[i] = x
		}
	}

	z := make([]float64, len(clean))
	n := len(clean)
	if n < 2 || floats.Min(clean) == floats.Max(clean) {
		return z
	}

	mean, sampleVar := stat.MeanVariance(clean, nil)
	popStd := math.Sqrt(sampleVar * float64(n-1) / float64(n))
	if popStd == 0 || math.IsNaN(popStd) {
		return z
	}
	for i, x := range clean {
		z[i] = stat.StdScore(x, mean, popStd)
	}
	return z
}

// MinMaxNormalize scales xs into [0,1]. Non-finite inputs count as zero.
// A constant slice maps to zeros.
func MinMaxNormalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	clean := make([]float64, len(xs))
	for i, x := range xs {
		clean[i] = finiteOrZero(x)
	}
	lo, hi := floats.Min(clean), floats.Max(clean)
	if hi == lo {
		return out
	}
	span := hi - lo
	for i, x := range clean {
		out[i] = Clip((x-lo)/span, 0, 1)
	}
	return out
}

// Percentile returns the p-th percentile (0-100) of xs using linear
// interpolation between closest ranks.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Clip bounds x to [lo, hi]. NaN counts as zero.
func Clip(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		x = 0
	}
	return math.Max(lo, math.Min(hi, x))
}

// finiteOrZero replaces NaN and infinities with zero
func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// median returns the middle value of xs, averaging the two middle values
// for even lengths.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
