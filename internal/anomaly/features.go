package anomaly

import "math"

// BuildFeatures derives the six-feature vector of every row, keyed by row.
// Non-finite values, including those of rows without a timestamp, become 0.
func BuildFeatures(txs []Transaction) []FeatureVector {
	maxMerchant, maxChannel := 0, 0
	for _, tx := range txs {
		maxMerchant = max(maxMerchant, tx.MerchantFreq)
		maxChannel = max(maxChannel, tx.ChannelFreq)
	}

	vectors := make([]FeatureVector, len(txs))
	for i, tx := range txs {
		v := FeatureVector{Row: tx.Row}
		v.Values[FeatureAmount] = tx.AmountValue
		v.Values[FeatureAmountLog] = math.Log1p(tx.AmountValue)
		v.Values[FeatureMerchantFreqNorm] = ratio(tx.MerchantFreq, maxMerchant)
		v.Values[FeatureChannelFreqNorm] = ratio(tx.ChannelFreq, maxChannel)
		if tx.HasTime {
			angle := 2 * math.Pi * float64(tx.Hour) / 24
			v.Values[FeatureHourSin] = math.Sin(angle)
			v.Values[FeatureHourCos] = math.Cos(angle)
		}
		for f := range v.Values {
			v.Values[f] = finiteOrZero(v.Values[f])
		}
		vectors[i] = v
	}
	return vectors
}

func ratio(n, d int) float64 {
	return float64(n) / float64(d)
}

// Matrix returns the feature values as rows of a dense matrix, in the
// order of vectors.
func Matrix(vectors []FeatureVector) [][]float64 {
	x := make([][]float64, len(vectors))
	for i := range vectors {
		row := vectors[i].Values
		x[i] = row[:]
	}
	return x
}
