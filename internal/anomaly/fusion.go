package anomaly

import (
	"sort"
	"time"
)

// Fuse joins each row to its hour's time-series flag and computes the
// composite score. Rows, features and scores are matched by row key, not
// by position. A row whose hour is missing from the grid, or which has no
// timestamp, gets no time-series contribution.
func Fuse(txs []Transaction, features []FeatureVector, scores []RowScore, ts TimeSeriesResult, cfg Config) []ScoredTransaction {
	hourFlags := ts.HourFlags()

	featureByRow := make(map[int]FeatureVector, len(features))
	for _, f := range features {
		featureByRow[f.Row] = f
	}
	scoreByRow := make(map[int]RowScore, len(scores))
	for _, s := range scores {
		scoreByRow[s.Row] = s
	}

	out := make([]ScoredTransaction, len(txs))
	for i, tx := range txs {
		st := ScoredTransaction{
			Transaction: tx,
			Features:    featureByRow[tx.Row],
			Scores:      scoreByRow[tx.Row],
		}
		if tx.HasTime {
			st.HourRound = FloorHour(tx.Time)
			st.TSAnomaly = hourFlags[st.HourRound.Unix()]
		}
		st.FinalScore = CompositeScore(st.Scores.Iso, st.Scores.Lof, st.TSAnomaly, cfg)
		st.Flag = st.FinalScore > cfg.FinalThreshold
		out[i] = st
	}
	return out
}

// CompositeScore is the clipped weighted sum of both model scores and the
// time-series flag. The default weights sum to 1.15, so the clip binds.
func CompositeScore(iso, lof float64, tsAnomaly bool, cfg Config) float64 {
	var ts float64
	if tsAnomaly {
		ts = 1
	}
	score := cfg.IsolationWeight*iso + cfg.DensityWeight*lof + cfg.TimeSeriesWeight*ts
	return Clip(score, 0, 1)
}

// Summarize counts flagged rows and hours
func Summarize(rows []ScoredTransaction, ts TimeSeriesResult) Summary {
	s := Summary{
		TotalTransactions: len(rows),
		HourlyAnomalies:   ts.AnomalousHours(),
	}
	for _, r := range rows {
		if r.Flag {
			s.RowLevelAnomalies++
		}
	}
	return s
}

// DailyFlagCounts returns the number of flagged rows per calendar date in
// ascending date order. Rows without a timestamp are skipped.
func DailyFlagCounts(rows []ScoredTransaction) ([]time.Time, []int) {
	counts := make(map[string]int)
	var dates []string
	for _, r := range rows {
		if !r.HasTime {
			continue
		}
		if _, seen := counts[r.Date]; !seen {
			dates = append(dates, r.Date)
			counts[r.Date] = 0
		}
		if r.Flag {
			counts[r.Date]++
		}
	}

	sort.Strings(dates)

	days := make([]time.Time, 0, len(dates))
	values := make([]int, 0, len(dates))
	for _, d := range dates {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		days = append(days, t)
		values = append(values, counts[d])
	}
	return days, values
}
