package exporter

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"txanomaly/internal/anomaly"
)

// Workbook sheet names
const (
	SheetRows    = "rows"
	SheetHourly  = "hourly"
	SheetSummary = "summary"
)

// WriteWorkbook writes both result tables and the summary to one .xlsx
// file. Cells hold the same text as the CSV tables so the two stay in step.
func WriteWorkbook(path string, result *anomaly.Result, summary RunSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRows); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetHourly); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetHourly, err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetSummary, err)
	}

	rows := make([][]string, len(result.Rows))
	for i := range result.Rows {
		rows[i] = RowRecord(result.Rows[i])
	}
	if err := streamSheet(f, SheetRows, RowHeaders, rows); err != nil {
		return err
	}

	hours := make([][]string, len(result.TimeSeries.Hours))
	for i, h := range result.TimeSeries.Hours {
		hours[i] = HourlyRecord(h)
	}
	if err := streamSheet(f, SheetHourly, HourlyHeaders, hours); err != nil {
		return err
	}

	summaryRows := [][]string{
		{"run_id", summary.RunID},
		{"started_at", formatTime(summary.StartedAt)},
		{"total_transactions", strconv.Itoa(summary.TotalTransactions)},
		{"row_level_anomalies", strconv.Itoa(summary.RowLevelAnomalies)},
		{"hourly_anomalies", strconv.Itoa(summary.HourlyAnomalies)},
		{"decomposed", formatBool(summary.Decomposed)},
	}
	if err := streamSheet(f, SheetSummary, []string{"key", "value"}, summaryRows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// streamSheet writes a header row and records to sheet with the excelize
// stream writer
func streamSheet(f *excelize.File, sheet string, headers []string, records [][]string) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream sheet %s: %w", sheet, err)
	}

	if err := sw.SetRow("A1", toCells(headers)); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(rec)); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return sw.Flush()
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
