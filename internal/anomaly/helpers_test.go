package anomaly

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"txanomaly/internal/transactions"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func record(id, ts, amount, merchant, channel string) transactions.Record {
	return transactions.Record{
		TransactionID:    id,
		AccountID:        "acc-" + id,
		Timestamp:        ts,
		Amount:           amount,
		TransactionType:  "purchase",
		MerchantCategory: merchant,
		Channel:          channel,
	}
}

// syntheticRecords spreads n transactions over the given number of hours
// with a daily amount cycle. The output is fully determined by seed.
func syntheticRecords(n, hours int, seed int64) []transactions.Record {
	rng := rand.New(rand.NewSource(seed))
	merchants := []string{"grocery", "fuel", "travel", "dining", "retail"}
	channels := []string{"pos", "online", "atm"}

	records := make([]transactions.Record, n)
	for i := range records {
		h := i % hours
		ts := testStart.Add(time.Duration(h)*time.Hour + time.Duration(rng.Intn(3600))*time.Second)
		base := 50 + 20*math.Sin(2*math.Pi*float64(ts.Hour())/24)
		amount := base * (0.8 + 0.4*rng.Float64())
		records[i] = record(
			fmt.Sprintf("tx-%04d", i),
			ts.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2f", amount),
			merchants[rng.Intn(len(merchants))],
			channels[rng.Intn(len(channels))],
		)
	}
	return records
}

// hourlySeries builds a gap-free grid with a daily sine on the amount and
// about one percent of seeded noise.
func hourlySeries(hours int, count int, seed int64) []HourlyBucket {
	rng := rand.New(rand.NewSource(seed))
	buckets := make([]HourlyBucket, hours)
	for i := range buckets {
		base := 1000 + 300*math.Sin(2*math.Pi*float64(i)/24)
		buckets[i] = HourlyBucket{
			Hour:   testStart.Add(time.Duration(i) * time.Hour),
			Count:  count,
			Amount: base * (1 + 0.02*(rng.Float64()-0.5)),
		}
	}
	return buckets
}
