package anomaly

import (
	"time"

	"github.com/shopspring/decimal"
)

// FloorHour truncates t to the start of its UTC hour
func FloorHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// AggregateHourly resamples transactions onto a gap-free hourly grid that
// spans the first to the last valid timestamp. Hours without transactions
// have zero count and amount. Rows without a timestamp are ignored.
func AggregateHourly(txs []Transaction) []HourlyBucket {
	var first, last time.Time
	found := false
	for _, tx := range txs {
		if !tx.HasTime {
			continue
		}
		h := FloorHour(tx.Time)
		if !found || h.Before(first) {
			first = h
		}
		if !found || h.After(last) {
			last = h
		}
		found = true
	}
	if !found {
		return nil
	}

	n := int(last.Sub(first)/time.Hour) + 1
	counts := make([]int, n)
	sums := make([]decimal.Decimal, n)
	for _, tx := range txs {
		if !tx.HasTime {
			continue
		}
		i := int(FloorHour(tx.Time).Sub(first) / time.Hour)
		counts[i]++
		sums[i] = sums[i].Add(decimal.NewFromFloat(tx.AmountValue))
	}

	buckets := make([]HourlyBucket, n)
	for i := range buckets {
		amount, _ := sums[i].Float64()
		buckets[i] = HourlyBucket{
			Hour:   first.Add(time.Duration(i) * time.Hour),
			Count:  counts[i],
			Amount: finiteOrZero(amount),
		}
	}
	return buckets
}
