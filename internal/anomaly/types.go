package anomaly

import (
	"time"

	"txanomaly/internal/transactions"
)

// DateLayout is the calendar date format of Transaction.Date
const DateLayout = "2006-01-02"

// Transaction is an enriched transaction row. Row is the row key assigned
// from the input position and carried through every later stage.
type Transaction struct {
	transactions.Record

	Row          int
	Time         time.Time
	HasTime      bool
	AmountValue  float64
	Date         string
	Hour         int
	DayOfWeek    int
	MerchantFreq int
	ChannelFreq  int
}

// HourlyBucket is one hour of the regular grid
type HourlyBucket struct {
	Hour   time.Time
	Count  int
	Amount float64
}

// HourlyAnomaly is an hourly bucket annotated by the time-series detector
type HourlyAnomaly struct {
	HourlyBucket

	Trend        float64
	Seasonal     float64
	Resid        float64
	ResidZ       float64
	CountZ       float64
	ResidAnomaly bool
	CountAnomaly bool
	Anomaly      bool
}

// TimeSeriesResult holds the annotated grid. Decomposed is false when the
// grid was shorter than the minimum length and STL was skipped.
type TimeSeriesResult struct {
	Hours      []HourlyAnomaly
	Decomposed bool
}

// AnomalousHours counts hours with the time-series flag set
func (r TimeSeriesResult) AnomalousHours() int {
	n := 0
	for _, h := range r.Hours {
		if h.Anomaly {
			n++
		}
	}
	return n
}

// Feature positions within FeatureVector.Values
const (
	FeatureAmount = iota
	FeatureAmountLog
	FeatureMerchantFreqNorm
	FeatureChannelFreqNorm
	FeatureHourSin
	FeatureHourCos
	NumFeatures
)

// FeatureNames are the column names of the feature matrix
var FeatureNames = [NumFeatures]string{
	"amount",
	"amount_log",
	"merchant_freq_norm",
	"channel_freq_norm",
	"hour_sin",
	"hour_cos",
}

// FeatureVector is the numeric feature tuple of one row
type FeatureVector struct {
	Row    int
	Values [NumFeatures]float64
}

// RowScore holds both model scores for one row. Raw scores are higher for
// more anomalous rows; Iso and Lof are the normalized scores in [0,1].
type RowScore struct {
	Row        int
	IsoRaw     float64
	LofRaw     float64
	Iso        float64
	Lof        float64
	IsoAnomaly bool
	LofAnomaly bool
}

// ScoredTransaction is the final per-row output
type ScoredTransaction struct {
	Transaction

	Features   FeatureVector
	Scores     RowScore
	HourRound  time.Time
	TSAnomaly  bool
	FinalScore float64
	Flag       bool
}

// Summary is the run summary returned to the caller
type Summary struct {
	TotalTransactions int `json:"total_transactions"`
	RowLevelAnomalies int `json:"row_level_anomalies"`
	HourlyAnomalies   int `json:"hourly_anomalies"`
}

// Result is the complete output of one detection run
type Result struct {
	Rows       []ScoredTransaction
	TimeSeries TimeSeriesResult
	Summary    Summary
}
