package quality

import (
	"strings"

	"github.com/shopspring/decimal"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/transactions"
)

// CleanedTimestampLayout is the timestamp format of cleaned records
const CleanedTimestampLayout = "2006-01-02 15:04:05"

// CleanTransactions returns a cleaned copy of records. Exact duplicates
// after the first are dropped, as are rows with an empty timestamp.
// Negative amounts become their absolute value. Timestamps are rewritten
// in CleanedTimestampLayout; unparseable ones become empty.
func CleanTransactions(records []transactions.Record) []transactions.Record {
	seen := make(map[transactions.Record]struct{}, len(records))
	cleaned := make([]transactions.Record, 0, len(records))

	for _, r := range records {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}

		if strings.TrimSpace(r.Timestamp) == "" {
			continue
		}

		if t, ok := anomaly.ParseTimestamp(r.Timestamp); ok {
			r.Timestamp = t.Format(CleanedTimestampLayout)
		} else {
			r.Timestamp = ""
		}
		r.Amount = absAmount(r.Amount)
		cleaned = append(cleaned, r)
	}
	return cleaned
}

// absAmount strips the sign of a negative decimal amount. Anything that
// is not a decimal number is returned unchanged.
func absAmount(raw string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsNegative() {
		return raw
	}
	return d.Abs().String()
}
