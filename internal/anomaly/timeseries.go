package anomaly

import "math"

// DetectHourly decomposes the hourly amount series and flags hours whose
// residual or count deviates statistically.
//
// Grids shorter than cfg.MinLength() are not decomposed: trend equals the
// amount, seasonal and residual are zero, and only the count test can flag
// an hour.
func DetectHourly(buckets []HourlyBucket, cfg Config) TimeSeriesResult {
	n := len(buckets)
	amounts := make([]float64, n)
	counts := make([]float64, n)
	for i, b := range buckets {
		amounts[i] = b.Amount
		counts[i] = float64(b.Count)
	}

	var dec Decomposition
	decomposed := n >= cfg.MinLength()
	if decomposed {
		dec = STL(amounts, STLParamsFromConfig(cfg))
	} else {
		dec = Decomposition{
			Trend:    append([]float64(nil), amounts...),
			Seasonal: make([]float64, n),
			Resid:    make([]float64, n),
		}
	}

	resid := make([]float64, n)
	for i, r := range dec.Resid {
		resid[i] = finiteOrZero(r)
	}
	residZ := ZScores(resid)
	countZ := ZScores(counts)

	hours := make([]HourlyAnomaly, n)
	for i, b := range buckets {
		h := HourlyAnomaly{
			HourlyBucket: b,
			Trend:        dec.Trend[i],
			Seasonal:     dec.Seasonal[i],
			Resid:        dec.Resid[i],
			ResidZ:       residZ[i],
			CountZ:       countZ[i],
		}
		h.ResidAnomaly = math.Abs(h.ResidZ) > cfg.ResidZThreshold
		h.CountAnomaly = math.Abs(h.CountZ) > cfg.CountZThreshold
		h.Anomaly = h.ResidAnomaly || h.CountAnomaly
		hours[i] = h
	}

	return TimeSeriesResult{Hours: hours, Decomposed: decomposed}
}

// HourFlags indexes the time-series flag by hour start (Unix seconds)
func (r TimeSeriesResult) HourFlags() map[int64]bool {
	flags := make(map[int64]bool, len(r.Hours))
	for _, h := range r.Hours {
		flags[h.Hour.Unix()] = h.Anomaly
	}
	return flags
}
