package exporter

import (
	"fmt"
	"log/slog"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/config"
	"txanomaly/internal/transactions"
)

// RowHeaders are the columns of the per-transaction table
var RowHeaders = append(append([]string{}, transactions.Columns...),
	"row",
	"date",
	"hour",
	"dayofweek",
	"merchant_freq",
	"channel_freq",
	"amount_log",
	"hour_sin",
	"hour_cos",
	"merchant_freq_norm",
	"channel_freq_norm",
	"iso_score",
	"lof_score",
	"iso_anomaly",
	"lof_anomaly",
	"hour_round",
	"ts_anomaly",
	"final_anomaly_score",
	"final_anomaly_flag",
)

// HourlyHeaders are the columns of the hourly table
var HourlyHeaders = []string{
	"transaction_timestamp",
	"tx_count",
	"tx_amount",
	"stl_trend",
	"stl_seasonal",
	"stl_resid",
	"stl_resid_z",
	"tx_count_z",
	"ts_anom_resid",
	"ts_anom_count",
	"ts_anomaly",
}

// RowRecord renders one scored transaction in RowHeaders order. The
// timestamp and amount columns hold the parsed values.
func RowRecord(st anomaly.ScoredTransaction) []string {
	f := st.Features.Values
	var hour, dow, date string
	if st.HasTime {
		hour = formatInt(st.Hour)
		dow = formatInt(st.DayOfWeek)
		date = st.Date
	}
	return []string{
		st.TransactionID,
		st.AccountID,
		formatTime(st.Time),
		formatFloat(st.AmountValue),
		st.TransactionType,
		st.MerchantCategory,
		st.Channel,
		formatInt(st.Row),
		date,
		hour,
		dow,
		formatInt(st.MerchantFreq),
		formatInt(st.ChannelFreq),
		formatFloat(f[anomaly.FeatureAmountLog]),
		formatFloat(f[anomaly.FeatureHourSin]),
		formatFloat(f[anomaly.FeatureHourCos]),
		formatFloat(f[anomaly.FeatureMerchantFreqNorm]),
		formatFloat(f[anomaly.FeatureChannelFreqNorm]),
		formatFloat(st.Scores.Iso),
		formatFloat(st.Scores.Lof),
		formatBool(st.Scores.IsoAnomaly),
		formatBool(st.Scores.LofAnomaly),
		formatTime(st.HourRound),
		formatBool(st.TSAnomaly),
		formatFloat(st.FinalScore),
		formatBool(st.Flag),
	}
}

// HourlyRecord renders one annotated hour in HourlyHeaders order
func HourlyRecord(h anomaly.HourlyAnomaly) []string {
	return []string{
		formatTime(h.Hour),
		formatInt(h.Count),
		formatFloat(h.Amount),
		formatFloat(h.Trend),
		formatFloat(h.Seasonal),
		formatFloat(h.Resid),
		formatFloat(h.ResidZ),
		formatFloat(h.CountZ),
		formatBool(h.ResidAnomaly),
		formatBool(h.CountAnomaly),
		formatBool(h.Anomaly),
	}
}

// WriteRowAnomalies streams the per-transaction table in row order
func (w *CSVWriter) WriteRowAnomalies(rows []anomaly.ScoredTransaction) error {
	stream, err := w.CreateStreamWriter(config.RowAnomaliesFile, RowHeaders)
	if err != nil {
		return fmt.Errorf("create %s: %w", config.RowAnomaliesFile, err)
	}
	for i := range rows {
		if err := stream.WriteRecord(RowRecord(rows[i])); err != nil {
			stream.Close()
			return fmt.Errorf("write row %d: %w", rows[i].Row, err)
		}
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close %s: %w", config.RowAnomaliesFile, err)
	}

	w.logger.Info("Wrote row anomalies",
		slog.String("file", config.RowAnomaliesFile),
		slog.Int("rows", len(rows)))
	return nil
}

// WriteHourlyAnomalies writes the hourly table
func (w *CSVWriter) WriteHourlyAnomalies(hours []anomaly.HourlyAnomaly) error {
	records := make([][]string, len(hours))
	for i, h := range hours {
		records[i] = HourlyRecord(h)
	}
	if err := w.WriteSimpleCSV(config.HourlyAnomaliesFile, HourlyHeaders, records); err != nil {
		return fmt.Errorf("write %s: %w", config.HourlyAnomaliesFile, err)
	}
	return nil
}
