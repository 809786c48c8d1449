package transactions

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "txanomaly/internal/errors"
)

// Table is a raw delimited table: a header and string rows
type Table struct {
	Source string
	Header []string
	Rows   [][]string
}

// ReadTable reads a CSV table. A UTF-8 byte order mark on the header is
// removed and header names are trimmed.
func ReadTable(r io.Reader, source string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", source, apperrors.ErrEmptyInput)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		header[i] = strings.TrimSpace(col)
	}

	var rows [][]string
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		rows = append(rows, record)
	}

	return &Table{Source: source, Header: header, Rows: rows}, nil
}

// Index returns the position of each header column
func (t *Table) Index() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, col := range t.Header {
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}
	return idx
}

// MissingColumns returns the required columns absent from the header
func (t *Table) MissingColumns(required []string) []string {
	idx := t.Index()
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// Records maps the table onto Records. Every column in Columns must be
// present. Short rows yield empty values for the absent cells.
func (t *Table) Records() ([]Record, error) {
	if missing := t.MissingColumns(Columns); len(missing) > 0 {
		return nil, &apperrors.SchemaError{Source: t.Source, Missing: missing}
	}
	idx := t.Index()

	cell := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, Record{
			TransactionID:    cell(row, ColTransactionID),
			AccountID:        cell(row, ColAccountID),
			Timestamp:        cell(row, ColTimestamp),
			Amount:           cell(row, ColAmount),
			TransactionType:  cell(row, ColTransactionType),
			MerchantCategory: cell(row, ColMerchantCategory),
			Channel:          cell(row, ColChannel),
		})
	}
	return records, nil
}

// LoadTable opens and reads a CSV table from disk
func LoadTable(ctx context.Context, path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, apperrors.ErrInputNotFound)
		}
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	table, err := ReadTable(file, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "loaded table",
		slog.String("path", path),
		slog.Int("columns", len(table.Header)),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

// Load reads the transactions extract at path. A missing file, missing
// required columns and an extract without rows are all fatal.
func Load(ctx context.Context, path string) ([]Record, error) {
	table, err := LoadTable(ctx, path)
	if err != nil {
		return nil, err
	}
	records, err := table.Records()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, apperrors.ErrEmptyInput)
	}
	return records, nil
}

// WriteCSV writes records with the canonical header
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for i, r := range records {
		if err := writer.Write(r.Values()); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
