package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"txanomaly/internal/transactions"
)

func TestCheckTable(t *testing.T) {
	header := []string{"transaction_id", "account_id", "transaction_timestamp", "amount", "transaction_type", "merchant_category", "channel"}

	tests := []struct {
		name   string
		header []string
		rows   [][]string
		want   TableReport
	}{
		{
			name:   "clean table",
			header: header,
			rows: [][]string{
				{"t1", "a1", "2024-01-01 00:00:00", "10.5", "debit", "grocery", "pos"},
				{"t2", "a2", "2024-01-01 01:00:00", "3", "credit", "fuel", "web"},
			},
			want: TableReport{Table: "transactions", TimestampColumn: "transaction_timestamp"},
		},
		{
			name:   "duplicates nulls and gaps",
			header: header,
			rows: [][]string{
				{"t1", "a1", "2024-01-01 05:00:00", "10.5", "debit", "grocery", "pos"},
				{"t1", "a1", "2024-01-01 05:00:00", "10.5", "debit", "grocery", "pos"},
				{"t2", "", "", "3", "credit", "fuel", "web"},
				{"t3", "a3", "2024-01-01 00:00:00", "1", "credit", "", "web"},
				{"t4", "a4", "2024-01-01 08:00:01", "2", "credit", "fuel", "web"},
			},
			want: TableReport{
				Table:             "transactions",
				NullIssues:        3,
				DuplicateRows:     1,
				TimestampColumn:   "transaction_timestamp",
				MissingTimestamps: 1,
				TimeGaps:          2,
			},
		},
		{
			name:   "schema drift",
			header: []string{"transaction_id", "account_id", "amount", "note"},
			rows: [][]string{
				{"1", "a1", "ten", "x"},
				{"2", "a2", "11", "y"},
			},
			want: TableReport{
				Table:          "transactions",
				MissingColumns: 4,
				ExtraColumns:   1,
				DtypeMismatch:  2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckTable("transactions", tt.header, tt.rows, TransactionSchema, 0)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckTableDoesNotMutate(t *testing.T) {
	header := append([]string{}, transactions.Columns...)
	rows := [][]string{
		{"t2", "a", "2024-01-02 00:00:00", "1", "x", "m", "c"},
		{"t1", "a", "2024-01-01 00:00:00", "1", "x", "m", "c"},
	}
	before := [][]string{append([]string{}, rows[0]...), append([]string{}, rows[1]...)}

	CheckTable("transactions", header, rows, TransactionSchema, time.Hour)
	assert.Equal(t, before, rows)
	assert.Equal(t, transactions.Columns, header)
}

func TestCheckTableGapThreshold(t *testing.T) {
	header := []string{"transaction_timestamp"}
	rows := [][]string{{"2024-01-01 00:00:00"}, {"2024-01-01 02:00:00"}, {"2024-01-01 04:00:01"}}

	assert.Equal(t, 1, CheckTable("t", header, rows, nil, 0).TimeGaps, "exactly two hours is not a gap")
	assert.Equal(t, 2, CheckTable("t", header, rows, nil, time.Hour).TimeGaps)
}

func TestInferType(t *testing.T) {
	tests := []struct {
		values []string
		want   ColumnType
	}{
		{[]string{"1", "2"}, TypeInt},
		{[]string{"1", "2.5"}, TypeFloat},
		{[]string{"1", ""}, TypeFloat},
		{[]string{"a", "2"}, TypeString},
		{[]string{"", ""}, TypeFloat},
		{nil, TypeString},
	}
	for _, tt := range tests {
		rows := make([][]string, len(tt.values))
		for i, v := range tt.values {
			rows[i] = []string{v}
		}
		assert.Equal(t, tt.want, inferType(rows, 0), "%v", tt.values)
	}
}

func TestTableReportRecord(t *testing.T) {
	r := TableReport{Table: "transactions", DuplicateRows: 2, TimestampColumn: "transaction_timestamp", TimeGaps: 5}
	assert.Equal(t, []string{"transactions", "0", "0", "0", "0", "2", "0", "5"}, r.Record())

	noTS := TableReport{Table: "marketing"}
	assert.Equal(t, []string{"marketing", "0", "0", "0", "0", "0", "", ""}, noTS.Record())
	assert.Len(t, TableReportHeaders, len(r.Record()))
}
