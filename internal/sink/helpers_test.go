package sink

import (
	"time"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/exporter"
	"txanomaly/internal/transactions"
)

var runStart = time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)

func testRun() Run {
	hour := time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)
	rows := []anomaly.ScoredTransaction{
		{
			Transaction: anomaly.Transaction{
				Record:      transactions.Record{TransactionID: "tx-0", AccountID: "acc-0", MerchantCategory: "fuel", Channel: "pos"},
				Row:         0,
				Time:        hour.Add(5 * time.Minute),
				HasTime:     true,
				AmountValue: 10,
			},
			Scores:     anomaly.RowScore{Row: 0, Iso: 0.1, Lof: 0.2},
			FinalScore: 0.145,
		},
		{
			Transaction: anomaly.Transaction{
				Record:      transactions.Record{TransactionID: "tx-1"},
				Row:         1,
				AmountValue: 0,
			},
			Scores: anomaly.RowScore{Row: 1},
		},
		{
			Transaction: anomaly.Transaction{
				Record:      transactions.Record{TransactionID: "tx-2", AccountID: "acc-2"},
				Row:         2,
				Time:        hour.Add(time.Hour + 10*time.Minute),
				HasTime:     true,
				AmountValue: 90000,
			},
			Scores:     anomaly.RowScore{Row: 2, Iso: 1, Lof: 1, IsoAnomaly: true, LofAnomaly: true},
			TSAnomaly:  true,
			FinalScore: 1,
			Flag:       true,
		},
	}
	hours := []anomaly.HourlyAnomaly{
		{HourlyBucket: anomaly.HourlyBucket{Hour: hour, Count: 1, Amount: 10}},
		{HourlyBucket: anomaly.HourlyBucket{Hour: hour.Add(time.Hour), Count: 1, Amount: 90000}, CountZ: 4.5, CountAnomaly: true, Anomaly: true},
	}
	ts := anomaly.TimeSeriesResult{Hours: hours}
	res := &anomaly.Result{Rows: rows, TimeSeries: ts, Summary: anomaly.Summarize(rows, ts)}

	return Run{
		Summary: exporter.RunSummary{Summary: res.Summary, RunID: "run-1", StartedAt: runStart},
		Result:  res,
	}
}
