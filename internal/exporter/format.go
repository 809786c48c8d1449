package exporter

import (
	"strconv"
	"time"
)

// TimestampLayout is the layout of every timestamp written to a report
const TimestampLayout = "2006-01-02 15:04:05"

// formatFloat writes the shortest decimal that round-trips to f. Negative
// zero is written as 0.
func formatFloat(f float64) string {
	if f == 0 {
		f = 0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an integer value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatTime formats t in UTC; the zero time, used for a missing
// timestamp, becomes an empty cell
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}
