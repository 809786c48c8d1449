package anomaly

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"txanomaly/internal/transactions"
)

// timestampLayouts are tried in order; layouts without a zone parse as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a transaction timestamp. The second result is
// false for empty or unparseable input.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseAmount coerces a raw amount to a finite number. Anything that is
// not a finite number becomes 0.
func ParseAmount(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Preprocess parses, sorts and enriches raw records. Row keys follow input
// order. Rows without a valid timestamp are kept and sorted last. Empty
// merchant or channel values count as missing and get frequency 0. The
// input slice is not modified.
func Preprocess(records []transactions.Record) []Transaction {
	merchantCounts := make(map[string]int)
	channelCounts := make(map[string]int)
	for _, r := range records {
		if r.MerchantCategory != "" {
			merchantCounts[r.MerchantCategory]++
		}
		if r.Channel != "" {
			channelCounts[r.Channel]++
		}
	}

	out := make([]Transaction, len(records))
	for i, r := range records {
		tx := Transaction{
			Record:       r,
			Row:          i,
			AmountValue:  ParseAmount(r.Amount),
			MerchantFreq: merchantCounts[r.MerchantCategory],
			ChannelFreq:  channelCounts[r.Channel],
		}
		if ts, ok := ParseTimestamp(r.Timestamp); ok {
			tx.Time = ts
			tx.HasTime = true
			tx.Date = ts.Format(DateLayout)
			tx.Hour = ts.Hour()
			tx.DayOfWeek = (int(ts.Weekday()) + 6) % 7
		}
		out[i] = tx
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasTime != b.HasTime {
			return a.HasTime
		}
		return a.HasTime && a.Time.Before(b.Time)
	})

	return out
}
