package quality

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"txanomaly/internal/anomaly"
	"txanomaly/internal/transactions"
)

// ColumnType is the expected type of a column's values
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeFloat  ColumnType = "float"
	TypeInt    ColumnType = "int"
)

// ColumnSpec is one expected column
type ColumnSpec struct {
	Name string
	Type ColumnType
}

// DefaultMaxGap is the largest accepted distance between consecutive
// timestamps
const DefaultMaxGap = 2 * time.Hour

// TransactionSchema is the expected layout of the transactions table
var TransactionSchema = []ColumnSpec{
	{transactions.ColTransactionID, TypeString},
	{transactions.ColAccountID, TypeString},
	{transactions.ColTimestamp, TypeString},
	{transactions.ColAmount, TypeFloat},
	{transactions.ColTransactionType, TypeString},
	{transactions.ColMerchantCategory, TypeString},
	{transactions.ColChannel, TypeString},
}

// TableReport holds the TDQ counts of one table. TimestampColumn is empty
// when the table has no timestamp or date column, in which case the two
// timestamp counts are not applicable.
type TableReport struct {
	Table             string
	MissingColumns    int
	ExtraColumns      int
	DtypeMismatch     int
	NullIssues        int
	DuplicateRows     int
	TimestampColumn   string
	MissingTimestamps int
	TimeGaps          int
}

// TableReportHeaders are the columns of a TDQ report file
var TableReportHeaders = []string{
	"table",
	"missing_columns",
	"extra_columns",
	"dtype_mismatch",
	"null_issues",
	"duplicate_rows",
	"missing_timestamps",
	"time_gaps",
}

// Record renders r in TableReportHeaders order
func (r TableReport) Record() []string {
	missingTS, gaps := "", ""
	if r.TimestampColumn != "" {
		missingTS = strconv.Itoa(r.MissingTimestamps)
		gaps = strconv.Itoa(r.TimeGaps)
	}
	return []string{
		r.Table,
		strconv.Itoa(r.MissingColumns),
		strconv.Itoa(r.ExtraColumns),
		strconv.Itoa(r.DtypeMismatch),
		strconv.Itoa(r.NullIssues),
		strconv.Itoa(r.DuplicateRows),
		missingTS,
		gaps,
	}
}

// CheckTable computes the TDQ report of a table against the expected
// columns. Consecutive parsed timestamps further apart than maxGap count
// as gaps; maxGap <= 0 uses DefaultMaxGap.
func CheckTable(name string, header []string, rows [][]string, expected []ColumnSpec, maxGap time.Duration) TableReport {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	report := TableReport{Table: name}

	index := make(map[string]int, len(header))
	for i, col := range header {
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}
	known := make(map[string]bool, len(expected))
	for _, spec := range expected {
		known[spec.Name] = true
		i, ok := index[spec.Name]
		if !ok {
			report.MissingColumns++
			continue
		}
		if inferType(rows, i) != spec.Type {
			report.DtypeMismatch++
		}
	}
	for col := range index {
		if !known[col] {
			report.ExtraColumns++
		}
	}

	for i := range header {
		for _, row := range rows {
			if isNull(cell(row, i)) {
				report.NullIssues++
				break
			}
		}
	}

	report.DuplicateRows = countDuplicates(rows)

	if ts := timestampColumn(header); ts >= 0 {
		report.TimestampColumn = header[ts]
		report.MissingTimestamps, report.TimeGaps = freshness(rows, ts, maxGap)
	}
	return report
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func isNull(v string) bool {
	return strings.TrimSpace(v) == ""
}

// inferType returns the narrowest type holding every non-empty value of
// column i. A column whose cells are all empty is a float column.
func inferType(rows [][]string, i int) ColumnType {
	allInt, allFloat, seen := true, true, false
	for _, row := range rows {
		v := strings.TrimSpace(cell(row, i))
		if v == "" {
			// Missing values force a float column, as with NaN.
			allInt = false
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
		}
	}
	switch {
	case !seen && len(rows) > 0:
		return TypeFloat
	case !seen:
		return TypeString
	case allInt:
		return TypeInt
	case allFloat:
		return TypeFloat
	default:
		return TypeString
	}
}

// countDuplicates counts rows equal to an earlier row
func countDuplicates(rows [][]string) int {
	seen := make(map[string]struct{}, len(rows))
	dups := 0
	for _, row := range rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// timestampColumn returns the first column whose name mentions a
// timestamp or date, or -1
func timestampColumn(header []string) int {
	for i, col := range header {
		if strings.Contains(col, "timestamp") || strings.Contains(col, "date") {
			return i
		}
	}
	return -1
}

// freshness counts empty timestamps and gaps larger than maxGap between
// consecutive parsed timestamps in time order
func freshness(rows [][]string, col int, maxGap time.Duration) (missing, gaps int) {
	times := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		v := cell(row, col)
		if isNull(v) {
			missing++
			continue
		}
		if t, ok := anomaly.ParseTimestamp(v); ok {
			times = append(times, t)
		}
	}
	sort.Slice(times, func(a, b int) bool { return times[a].Before(times[b]) })
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) > maxGap {
			gaps++
		}
	}
	return missing, gaps
}
