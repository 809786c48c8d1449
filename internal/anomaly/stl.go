package anomaly

import (
	"math"
	"sort"
)

// STLParams configures a seasonal-trend decomposition by loess. Smoother
// spans must be odd and at least 3.
type STLParams struct {
	Period      int
	Seasonal    int
	Trend       int
	LowPass     int
	SeasonalDeg int
	TrendDeg    int
	LowPassDeg  int
	Inner       int
	Outer       int
}

// STLParamsFromConfig derives decomposition parameters from the detection
// config. All smoothers use local linear fits.
func STLParamsFromConfig(cfg Config) STLParams {
	return STLParams{
		Period:      cfg.Period,
		Seasonal:    cfg.SeasonalSmoother,
		Trend:       cfg.TrendSmoother(),
		LowPass:     cfg.LowPassSmoother(),
		SeasonalDeg: 1,
		TrendDeg:    1,
		LowPassDeg:  1,
		Inner:       cfg.InnerIterations,
		Outer:       cfg.RobustIterations,
	}
}

// Decomposition is the output of STL. Trend+Seasonal+Resid reproduces the
// input series.
type Decomposition struct {
	Trend    []float64
	Seasonal []float64
	Resid    []float64
	Weights  []float64
}

// STL decomposes y. The caller must supply at least two full periods.
func STL(y []float64, p STLParams) Decomposition {
	n := len(y)
	p.Seasonal = oddAtLeast3(p.Seasonal)
	p.Trend = oddAtLeast3(p.Trend)
	p.LowPass = oddAtLeast3(p.LowPass)
	if p.Period < 2 {
		p.Period = 2
	}

	trend := make([]float64, n)
	season := make([]float64, n)
	rw := make([]float64, n)
	fit := make([]float64, n)
	userw := false

	for k := 0; ; k++ {
		stlInner(y, p, userw, rw, season, trend)
		if k >= p.Outer {
			break
		}
		for i := range fit {
			fit[i] = trend[i] + season[i]
		}
		robustnessWeights(y, fit, rw)
		userw = true
	}
	if p.Outer <= 0 {
		for i := range rw {
			rw[i] = 1
		}
	}

	resid := make([]float64, n)
	for i := range resid {
		resid[i] = y[i] - trend[i] - season[i]
	}
	return Decomposition{Trend: trend, Seasonal: season, Resid: resid, Weights: rw}
}

// stlInner runs the inner loop, updating season and trend in place
func stlInner(y []float64, p STLParams, userw bool, rw, season, trend []float64) {
	n := len(y)
	np := p.Period
	detrended := make([]float64, n)
	cycle := make([]float64, n+2*np)

	for iter := 0; iter < p.Inner; iter++ {
		for i := range detrended {
			detrended[i] = y[i] - trend[i]
		}
		cycleSubseries(detrended, np, p.Seasonal, p.SeasonalDeg, userw, rw, cycle)

		low := lowPassFilter(cycle, np)
		low = loess(low, p.LowPass, p.LowPassDeg, false, nil)
		for i := 0; i < n; i++ {
			season[i] = cycle[np+i] - low[i]
		}

		deseasoned := make([]float64, n)
		for i := range deseasoned {
			deseasoned[i] = y[i] - season[i]
		}
		copy(trend, loess(deseasoned, p.Trend, p.TrendDeg, userw, rw))
	}
}

// cycleSubseries smooths each cycle-subseries and extends it by one
// period on both ends. out has length len(y)+2*np.
func cycleSubseries(y []float64, np, span, deg int, userw bool, rw, out []float64) {
	n := len(y)
	for j := 0; j < np; j++ {
		k := (n-j-1)/np + 1
		sub := make([]float64, k)
		subW := make([]float64, k)
		for i := 0; i < k; i++ {
			sub[i] = y[i*np+j]
			if userw {
				subW[i] = rw[i*np+j]
			}
		}

		smoothed := make([]float64, k+2)
		fallback := median(sub)
		copy(smoothed[1:], loessWithFallback(sub, span, deg, userw, subW, func(int) float64 { return fallback }))

		scratch := make([]float64, k)
		nright := min(span, k) - 1
		if v, ok := loessEstimate(sub, span, deg, -1, 0, nright, scratch, userw, subW); ok {
			smoothed[0] = v
		} else {
			smoothed[0] = smoothed[1]
		}
		nleft := max(0, k-span)
		if v, ok := loessEstimate(sub, span, deg, float64(k), nleft, k-1, scratch, userw, subW); ok {
			smoothed[k+1] = v
		} else {
			smoothed[k+1] = smoothed[k]
		}

		for m := range smoothed {
			out[m*np+j] = smoothed[m]
		}
	}
}

// lowPassFilter applies moving averages of length np, np and 3, shrinking
// a series of length n+2*np to n.
func lowPassFilter(x []float64, np int) []float64 {
	return movingAverage(movingAverage(movingAverage(x, np), np), 3)
}

func movingAverage(x []float64, length int) []float64 {
	n := len(x) - length + 1
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	flen := float64(length)
	var v float64
	for i := 0; i < length; i++ {
		v += x[i]
	}
	out[0] = v / flen
	for j := 1; j < n; j++ {
		v = v - x[j-1] + x[j+length-1]
		out[j] = v / flen
	}
	return out
}

// loess smooths y with a tricube-weighted local fit of the given span and
// degree (0 or 1), evaluated at every point. Where every weight in the
// window vanishes the input value is kept.
func loess(y []float64, span, deg int, userw bool, rw []float64) []float64 {
	return loessWithFallback(y, span, deg, userw, rw, func(i int) float64 { return y[i] })
}

// loessWithFallback is loess with a caller-chosen value for windows whose
// weights all vanish. Cycle-subseries use the subseries median so that a
// window of rejected points cannot copy an outlier into the seasonal.
func loessWithFallback(y []float64, span, deg int, userw bool, rw []float64, fallback func(int) float64) []float64 {
	n := len(y)
	ys := make([]float64, n)
	if n == 0 {
		return ys
	}
	if n < 2 {
		ys[0] = y[0]
		return ys
	}

	w := make([]float64, n)
	if span >= n {
		for i := 0; i < n; i++ {
			v, ok := loessEstimate(y, span, deg, float64(i), 0, n-1, w, userw, rw)
			if !ok {
				v = fallback(i)
			}
			ys[i] = v
		}
		return ys
	}

	half := (span + 1) / 2
	nleft, nright := 0, span-1
	for i := 0; i < n; i++ {
		if i+1 > half && nright != n-1 {
			nleft++
			nright++
		}
		v, ok := loessEstimate(y, span, deg, float64(i), nleft, nright, w, userw, rw)
		if !ok {
			v = fallback(i)
		}
		ys[i] = v
	}
	return ys
}

// loessEstimate fits y[nleft..nright] around xs. It reports false when all
// weights vanish.
func loessEstimate(y []float64, span, deg int, xs float64, nleft, nright int, w []float64, userw bool, rw []float64) (float64, bool) {
	n := len(y)
	rng := float64(n - 1)
	h := math.Max(xs-float64(nleft), float64(nright)-xs)
	if span > n {
		h += float64((span - n) / 2)
	}
	h9 := 0.999 * h
	h1 := 0.001 * h

	var a float64
	for j := nleft; j <= nright; j++ {
		w[j] = 0
		r := math.Abs(float64(j) - xs)
		if r > h9 {
			continue
		}
		if r <= h1 {
			w[j] = 1
		} else {
			q := r / h
			q = 1 - q*q*q
			w[j] = q * q * q
		}
		if userw {
			w[j] *= rw[j]
		}
		a += w[j]
	}
	if a <= 0 {
		return 0, false
	}

	for j := nleft; j <= nright; j++ {
		w[j] /= a
	}
	if h > 0 && deg > 0 {
		var center float64
		for j := nleft; j <= nright; j++ {
			center += w[j] * float64(j)
		}
		b := xs - center
		var c float64
		for j := nleft; j <= nright; j++ {
			d := float64(j) - center
			c += w[j] * d * d
		}
		if math.Sqrt(c) > 0.001*rng {
			b /= c
			for j := nleft; j <= nright; j++ {
				w[j] *= b*(float64(j)-center) + 1
			}
		}
	}

	var ys float64
	for j := nleft; j <= nright; j++ {
		ys += w[j] * y[j]
	}
	return ys, true
}

// robustnessWeights sets bisquare weights from residuals scaled by six
// times their median absolute value.
func robustnessWeights(y, fit, rw []float64) {
	n := len(y)
	r := make([]float64, n)
	for i := range r {
		r[i] = math.Abs(y[i] - fit[i])
	}
	sorted := make([]float64, n)
	copy(sorted, r)
	sort.Float64s(sorted)

	mid1 := n / 2
	mid2 := n - n/2 - 1
	cmad := 3 * (sorted[mid1] + sorted[mid2])
	c9 := 0.999 * cmad
	c1 := 0.001 * cmad

	for i, ri := range r {
		switch {
		case ri <= c1:
			rw[i] = 1
		case ri <= c9:
			q := ri / cmad
			q = 1 - q*q
			rw[i] = q * q
		default:
			rw[i] = 0
		}
	}
}

func oddAtLeast3(v int) int {
	if v < 3 {
		v = 3
	}
	if v%2 == 0 {
		v++
	}
	return v
}
